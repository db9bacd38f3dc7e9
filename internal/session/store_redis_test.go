// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/session"
)

const (
	testRefreshTTL = 60 * 24 * time.Hour
	testSSOTTL     = 30 * 24 * time.Hour
	testMaxDevices = 2
)

// newTestStores spins up an in-process Redis and both repositories on it.
func newTestStores(t *testing.T) (*miniredis.Miniredis, *session.RedisAppSessionRepository, *session.RedisSSOSessionRepository) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	appStore := session.NewAppSessionRepository(client, testRefreshTTL, testMaxDevices)
	ssoStore := session.NewSSOSessionRepository(client, testSSOTTL)
	return server, appStore, ssoStore
}

/*
TestAppSessionRepository_Create verifies device id assignment and that only
the token hash, never the raw refresh token, reaches storage.
*/
func TestAppSessionRepository_Create(t *testing.T) {
	server, store, _ := newTestStores(t)
	ctx := context.Background()

	deviceID, err := store.Create(ctx, session.CreateParams{
		UserID:       "user-1",
		ClientID:     "field-ops",
		RefreshToken: "refresh-token-plain",
		IPAddress:    "203.0.113.7",
		DeviceInfo:   session.DeviceInfo{Platform: "android", DeviceName: "Pixel 9"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, deviceID, "server must assign a device id when absent")

	record, err := store.Get(ctx, "user-1", "field-ops", deviceID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "field-ops", record.ClientID)
	assert.Equal(t, deviceID, record.DeviceID)
	assert.Equal(t, "android", record.DeviceInfo.Platform)
	assert.NotEqual(t, "refresh-token-plain", record.RefreshTokenHash)
	assert.Len(t, record.RefreshTokenHash, 64, "hash must be hex SHA-256")

	// Raw token must not appear anywhere in the stored payload.
	stored, err := server.Get("session:user-1:field-ops:" + deviceID)
	require.NoError(t, err)
	assert.NotContains(t, stored, "refresh-token-plain")

	// A caller-provided device id is honored as-is.
	givenID, err := store.Create(ctx, session.CreateParams{
		UserID:       "user-1",
		ClientID:     "field-ops",
		RefreshToken: "another-token",
		DeviceID:     "tablet-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "tablet-7", givenID)
}

/*
TestAppSessionRepository_SingleSessionPolicy covers the per-app
single-session rules: same device replaces, different device rejects.
*/
func TestAppSessionRepository_SingleSessionPolicy(t *testing.T) {
	_, store, _ := newTestStores(t)
	ctx := context.Background()

	first, err := store.Create(ctx, session.CreateParams{
		UserID:        "user-1",
		ClientID:      "hr-kiosk",
		RefreshToken:  "token-a",
		SingleSession: true,
		DeviceID:      "device-a",
	})
	require.NoError(t, err)

	// Same device logs in again: the old session is replaced.
	again, err := store.Create(ctx, session.CreateParams{
		UserID:        "user-1",
		ClientID:      "hr-kiosk",
		RefreshToken:  "token-b",
		SingleSession: true,
		DeviceID:      "device-a",
	})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	valid, err := store.ValidateRefresh(ctx, "user-1", "hr-kiosk", "device-a", "token-b")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = store.ValidateRefresh(ctx, "user-1", "hr-kiosk", "device-a", "token-a")
	require.NoError(t, err)
	assert.False(t, valid, "replaced session must not validate the old token")

	// A different device is rejected while the first session lives.
	_, err = store.Create(ctx, session.CreateParams{
		UserID:        "user-1",
		ClientID:      "hr-kiosk",
		RefreshToken:  "token-c",
		SingleSession: true,
		DeviceID:      "device-b",
	})
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "ALREADY_LOGGED_IN", appError.Code)

	// After the blocking session is gone, the other device may log in.
	require.NoError(t, store.DeleteDevice(ctx, "user-1", "hr-kiosk", "device-a"))

	_, err = store.Create(ctx, session.CreateParams{
		UserID:        "user-1",
		ClientID:      "hr-kiosk",
		RefreshToken:  "token-c",
		SingleSession: true,
		DeviceID:      "device-b",
	})
	assert.NoError(t, err)
}

/*
TestAppSessionRepository_MaxSessionsEviction checks that reaching the
device cap on a multi-session app evicts the least recently active session.
*/
func TestAppSessionRepository_MaxSessionsEviction(t *testing.T) {
	_, store, _ := newTestStores(t)
	ctx := context.Background()

	_, err := store.Create(ctx, session.CreateParams{
		UserID: "user-1", ClientID: "field-ops", RefreshToken: "t-a", DeviceID: "device-a",
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, session.CreateParams{
		UserID: "user-1", ClientID: "field-ops", RefreshToken: "t-b", DeviceID: "device-b",
	})
	require.NoError(t, err)

	// Touch device-a so device-b becomes the least recently active.
	updated, err := store.Update(ctx, session.UpdateParams{
		UserID: "user-1", ClientID: "field-ops", DeviceID: "device-a",
	})
	require.NoError(t, err)
	require.True(t, updated)

	// Cap is 2: a third device evicts device-b.
	_, err = store.Create(ctx, session.CreateParams{
		UserID: "user-1", ClientID: "field-ops", RefreshToken: "t-c", DeviceID: "device-c",
	})
	require.NoError(t, err)

	sessions, err := store.ListByClient(ctx, "user-1", "field-ops")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	devices := map[string]bool{}
	for _, liveSession := range sessions {
		devices[liveSession.DeviceID] = true
	}
	assert.True(t, devices["device-a"])
	assert.True(t, devices["device-c"])
	assert.False(t, devices["device-b"], "LRU session must have been evicted")
}

/*
TestAppSessionRepository_UpdateRotation verifies hash rotation and the
missing-session result.
*/
func TestAppSessionRepository_UpdateRotation(t *testing.T) {
	_, store, _ := newTestStores(t)
	ctx := context.Background()

	deviceID, err := store.Create(ctx, session.CreateParams{
		UserID: "user-1", ClientID: "field-ops", RefreshToken: "old-token",
	})
	require.NoError(t, err)

	updated, err := store.Update(ctx, session.UpdateParams{
		UserID: "user-1", ClientID: "field-ops", DeviceID: deviceID,
		RefreshToken: "new-token",
		PushToken:    "push-registration-1",
	})
	require.NoError(t, err)
	assert.True(t, updated)

	valid, err := store.ValidateRefresh(ctx, "user-1", "field-ops", deviceID, "new-token")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = store.ValidateRefresh(ctx, "user-1", "field-ops", deviceID, "old-token")
	require.NoError(t, err)
	assert.False(t, valid, "rotation must invalidate the previous token")

	record, err := store.Get(ctx, "user-1", "field-ops", deviceID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "push-registration-1", record.PushToken)

	updated, err = store.Update(ctx, session.UpdateParams{
		UserID: "user-1", ClientID: "field-ops", DeviceID: "ghost-device",
	})
	require.NoError(t, err)
	assert.False(t, updated)
}

/*
TestAppSessionRepository_DeleteScopes exercises the three deletion scopes
and their idempotency.
*/
func TestAppSessionRepository_DeleteScopes(t *testing.T) {
	_, store, _ := newTestStores(t)
	ctx := context.Background()

	seed := []struct{ client, device string }{
		{"field-ops", "device-a"},
		{"field-ops", "device-b"},
		{"sso_portal", "browser-1"},
	}
	for _, s := range seed {
		_, err := store.Create(ctx, session.CreateParams{
			UserID: "user-1", ClientID: s.client, RefreshToken: "tok-" + s.device, DeviceID: s.device,
		})
		require.NoError(t, err)
	}

	// Scope: one device.
	require.NoError(t, store.DeleteDevice(ctx, "user-1", "field-ops", "device-a"))
	record, err := store.Get(ctx, "user-1", "field-ops", "device-a")
	require.NoError(t, err)
	assert.Nil(t, record)

	// Deleting it again is a no-op, never an error.
	require.NoError(t, store.DeleteDevice(ctx, "user-1", "field-ops", "device-a"))

	// Scope: whole client.
	deleted, err := store.DeleteClient(ctx, "user-1", "field-ops")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	all, err := store.ListAll(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "sso_portal", all[0].ClientID)

	// Scope: everything.
	deleted, err = store.DeleteAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	all, err = store.ListAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, all)

	deleted, err = store.DeleteAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

/*
TestAppSessionRepository_ListSelfHealing checks that enumeration skips and
prunes index members whose primary records disappeared.
*/
func TestAppSessionRepository_ListSelfHealing(t *testing.T) {
	server, store, _ := newTestStores(t)
	ctx := context.Background()

	for _, device := range []string{"device-a", "device-b"} {
		_, err := store.Create(ctx, session.CreateParams{
			UserID: "user-1", ClientID: "field-ops", RefreshToken: "tok-" + device, DeviceID: device,
		})
		require.NoError(t, err)
	}

	// Expire one primary behind the store's back.
	server.Del("session:user-1:field-ops:device-a")

	sessions, err := store.ListByClient(ctx, "user-1", "field-ops")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "device-b", sessions[0].DeviceID)

	// The stale member must have been pruned from both indexes.
	members, err := server.SMembers("client_sessions:user-1:field-ops")
	require.NoError(t, err)
	assert.Equal(t, []string{"device-b"}, members)

	pairs, err := server.SMembers("user_sessions:user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"field-ops:device-b"}, pairs)
}

/*
TestSSOSessionRepository_CreateAndValidate covers token minting, lookup,
and rotation on re-login.
*/
func TestSSOSessionRepository_CreateAndValidate(t *testing.T) {
	_, _, store := newTestStores(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1", "203.0.113.7")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	record, err := store.Validate(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "203.0.113.7", record.IPAddress)
	assert.NotEqual(t, token, record.TokenHash, "plain token must never be stored")

	// A second login replaces the session: old token dies, new one lives.
	rotated, err := store.Create(ctx, "user-1", "203.0.113.8")
	require.NoError(t, err)
	assert.NotEqual(t, token, rotated)

	record, err = store.Validate(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, record)

	record, err = store.Validate(ctx, rotated)
	require.NoError(t, err)
	require.NotNil(t, record)

	// Garbage never validates.
	record, err = store.Validate(ctx, "not-a-token")
	require.NoError(t, err)
	assert.Nil(t, record)
}

/*
TestSSOSessionRepository_ValidatePreservesTTL pins the rule that activity
bumps must not extend an SSO session's life.
*/
func TestSSOSessionRepository_ValidatePreservesTTL(t *testing.T) {
	server, _, store := newTestStores(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1", "")
	require.NoError(t, err)

	// Halfway through the session's life...
	server.FastForward(testSSOTTL / 2)

	record, err := store.Validate(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, record)

	// ...a validation must leave the remaining TTL untouched.
	assert.Equal(t, testSSOTTL/2, server.TTL("sso:user-1"))

	// Past the TTL the session is gone entirely.
	server.FastForward(testSSOTTL/2 + time.Second)

	record, err = store.Validate(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, record)
}

/*
TestSSOSessionRepository_Delete verifies both keys are removed and that
deletion reports whether a session existed.
*/
func TestSSOSessionRepository_Delete(t *testing.T) {
	server, _, store := newTestStores(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1", "")
	require.NoError(t, err)

	existed, err := store.Delete(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, existed)

	record, err := store.Validate(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, record)

	// Neither the primary nor the reverse index may survive.
	assert.False(t, server.Exists("sso:user-1"))
	assert.Empty(t, server.Keys())

	existed, err = store.Delete(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, existed)
}

/*
TestSSOSessionRepository_Refresh checks explicit token rotation.
*/
func TestSSOSessionRepository_Refresh(t *testing.T) {
	_, _, store := newTestStores(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1", "203.0.113.7")
	require.NoError(t, err)

	rotated, err := store.Refresh(ctx, token)
	require.NoError(t, err)
	require.NotEmpty(t, rotated)
	assert.NotEqual(t, token, rotated)

	record, err := store.Validate(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, record, "refresh must retire the old token")

	record, err = store.Validate(ctx, rotated)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "203.0.113.7", record.IPAddress, "ip carries over on rotation")

	rotated, err = store.Refresh(ctx, "bogus-token")
	require.NoError(t, err)
	assert.Empty(t, rotated)
}
