// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/constants"
	"github.com/taibuivan/tessera/internal/platform/sec"
)

// # Application Session Repository

// RedisAppSessionRepository implements AppSessionRepository using Redis.
type RedisAppSessionRepository struct {
	client      *redis.Client
	ttl         time.Duration
	maxSessions int
}

// NewAppSessionRepository creates a Redis-backed AppSessionRepository.
// ttl must equal the refresh-token lifetime; maxSessions caps concurrent
// devices per (user, client) for multi-session applications.
func NewAppSessionRepository(client *redis.Client, ttl time.Duration, maxSessions int) *RedisAppSessionRepository {
	return &RedisAppSessionRepository{client: client, ttl: ttl, maxSessions: maxSessions}
}

func sessionKey(userID, clientID, deviceID string) string {
	return fmt.Sprintf("%s%s:%s:%s", constants.RedisPrefixSession, userID, clientID, deviceID)
}

func clientIndexKey(userID, clientID string) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisPrefixClientSessions, userID, clientID)
}

func userIndexKey(userID string) string {
	return fmt.Sprintf("%s%s", constants.RedisPrefixUserSessions, userID)
}

/*
Create opens a session and returns the effective device id.

Description: Enforces the application's session policy before writing.
The refresh token is stored only as its SHA-256 hash. Both secondary
indexes are updated and their TTLs re-armed on every write.

Parameters:
  - context: context.Context
  - params: CreateParams

Returns:
  - string: Effective device id
  - error: apperr.AlreadyLoggedInElsewhere or storage failures
*/
func (repository *RedisAppSessionRepository) Create(context context.Context, params CreateParams) (string, error) {

	// ── 1. Assign a device id when the client did not send one ──
	deviceID := params.DeviceID
	if deviceID == "" {
		deviceID = uuid.New().String()
	}

	// ── 2. Enumerate live sessions for this (user, client) ──
	existing, err := repository.ListByClient(context, params.UserID, params.ClientID)
	if err != nil {
		return "", err
	}

	sameDevice := false
	for _, liveSession := range existing {
		if liveSession.DeviceID == deviceID {
			sameDevice = true
			break
		}
	}

	// ── 3. Apply the session policy ──
	if params.SingleSession {
		// Any live session on a different device blocks the login.
		for _, liveSession := range existing {
			if liveSession.DeviceID != deviceID {
				return "", apperr.AlreadyLoggedInElsewhere()
			}
		}
		if sameDevice {
			if err := repository.DeleteDevice(context, params.UserID, params.ClientID, deviceID); err != nil {
				return "", err
			}
		}
	} else {
		if sameDevice {
			// Same device logging in again replaces its session.
			if err := repository.DeleteDevice(context, params.UserID, params.ClientID, deviceID); err != nil {
				return "", err
			}
		} else if len(existing) >= repository.maxSessions {
			// Cap reached on a new device: evict the least recently active.
			if err := repository.evictOldest(context, existing); err != nil {
				return "", err
			}
		}
	}

	// ── 4. Write the primary record ──
	now := time.Now().UTC()
	record := &AppSession{
		UserID:           params.UserID,
		ClientID:         params.ClientID,
		DeviceID:         deviceID,
		RefreshTokenHash: sec.HashToken(params.RefreshToken),
		DeviceInfo:       params.DeviceInfo,
		IPAddress:        params.IPAddress,
		PushToken:        params.PushToken,
		CreatedAt:        now,
		LastActivity:     now,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("redis_session_marshal_failed: %w", err)
	}

	if err := repository.client.SetEx(context, sessionKey(params.UserID, params.ClientID, deviceID), payload, repository.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis_session_create_failed: %w", err)
	}

	// ── 5. Update both indexes and re-arm their TTLs ──
	clientIndex := clientIndexKey(params.UserID, params.ClientID)
	if err := repository.client.SAdd(context, clientIndex, deviceID).Err(); err != nil {
		return "", fmt.Errorf("redis_session_index_failed: %w", err)
	}
	if err := repository.client.Expire(context, clientIndex, repository.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis_session_index_failed: %w", err)
	}

	userIndex := userIndexKey(params.UserID)
	if err := repository.client.SAdd(context, userIndex, params.ClientID+":"+deviceID).Err(); err != nil {
		return "", fmt.Errorf("redis_session_index_failed: %w", err)
	}
	if err := repository.client.Expire(context, userIndex, repository.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis_session_index_failed: %w", err)
	}

	return deviceID, nil
}

/*
Get returns the session for the exact triple, or nil when absent.

Parameters:
  - context: context.Context
  - userID: string
  - clientID: string
  - deviceID: string

Returns:
  - *AppSession: Hydrated record, nil when absent
  - error: Storage failures only
*/
func (repository *RedisAppSessionRepository) Get(context context.Context, userID, clientID, deviceID string) (*AppSession, error) {

	// Fetch the primary record
	payload, err := repository.client.Get(context, sessionKey(userID, clientID, deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	record := &AppSession{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, fmt.Errorf("redis_session_unmarshal_failed: %w", err)
	}

	return record, nil
}

/*
ValidateRefresh reports whether the presented refresh token matches the
stored hash for the triple.

Parameters:
  - context: context.Context
  - userID: string
  - clientID: string
  - deviceID: string
  - refreshToken: string

Returns:
  - bool: true iff a session exists and the hashes match
  - error: Storage failures only
*/
func (repository *RedisAppSessionRepository) ValidateRefresh(context context.Context, userID, clientID, deviceID, refreshToken string) (bool, error) {
	record, err := repository.Get(context, userID, clientID, deviceID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	return record.RefreshTokenHash == sec.HashToken(refreshToken), nil
}

/*
Update rewrites the session in place and re-arms the full TTL.

Description: Refreshing the token hash here is how rotation works; the
previous refresh token silently stops validating.

Parameters:
  - context: context.Context
  - params: UpdateParams

Returns:
  - bool: false when no session exists for the triple
  - error: Storage failures only
*/
func (repository *RedisAppSessionRepository) Update(context context.Context, params UpdateParams) (bool, error) {
	record, err := repository.Get(context, params.UserID, params.ClientID, params.DeviceID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	// Apply the requested mutations
	record.LastActivity = time.Now().UTC()
	if params.RefreshToken != "" {
		record.RefreshTokenHash = sec.HashToken(params.RefreshToken)
	}
	if params.PushToken != "" {
		record.PushToken = params.PushToken
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("redis_session_marshal_failed: %w", err)
	}

	// Re-SETEX with the full TTL: a refresh extends the session.
	if err := repository.client.SetEx(context, sessionKey(params.UserID, params.ClientID, params.DeviceID), payload, repository.ttl).Err(); err != nil {
		return false, fmt.Errorf("redis_session_update_failed: %w", err)
	}

	return true, nil
}

/*
DeleteDevice removes one device session and its index entries.

Parameters:
  - context: context.Context
  - userID: string
  - clientID: string
  - deviceID: string

Returns:
  - error: Storage failures only
*/
func (repository *RedisAppSessionRepository) DeleteDevice(context context.Context, userID, clientID, deviceID string) error {

	// Delete the primary record
	if err := repository.client.Del(context, sessionKey(userID, clientID, deviceID)).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}

	// Index cleanup is best-effort; orphans are pruned on next enumeration.
	repository.client.SRem(context, clientIndexKey(userID, clientID), deviceID)
	repository.client.SRem(context, userIndexKey(userID), clientID+":"+deviceID)

	return nil
}

/*
DeleteClient removes every device session for a (user, client) pair.

Parameters:
  - context: context.Context
  - userID: string
  - clientID: string

Returns:
  - int: Number of sessions removed
  - error: Storage failures only
*/
func (repository *RedisAppSessionRepository) DeleteClient(context context.Context, userID, clientID string) (int, error) {
	clientIndex := clientIndexKey(userID, clientID)

	deviceIDs, err := repository.client.SMembers(context, clientIndex).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_session_enumerate_failed: %w", err)
	}

	deleted := 0
	for _, deviceID := range deviceIDs {
		removed, err := repository.client.Del(context, sessionKey(userID, clientID, deviceID)).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis_session_delete_failed: %w", err)
		}
		deleted += int(removed)

		repository.client.SRem(context, userIndexKey(userID), clientID+":"+deviceID)
	}

	if err := repository.client.Del(context, clientIndex).Err(); err != nil {
		return deleted, fmt.Errorf("redis_session_delete_failed: %w", err)
	}

	return deleted, nil
}

/*
DeleteAll removes every session the user holds across all clients.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int: Number of sessions removed
  - error: Storage failures only
*/
func (repository *RedisAppSessionRepository) DeleteAll(context context.Context, userID string) (int, error) {
	userIndex := userIndexKey(userID)

	pairs, err := repository.client.SMembers(context, userIndex).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_session_enumerate_failed: %w", err)
	}

	deleted := 0
	for _, pair := range pairs {
		clientID, deviceID, found := strings.Cut(pair, ":")
		if !found {
			continue
		}

		removed, err := repository.client.Del(context, sessionKey(userID, clientID, deviceID)).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis_session_delete_failed: %w", err)
		}
		deleted += int(removed)

		repository.client.SRem(context, clientIndexKey(userID, clientID), deviceID)
	}

	if err := repository.client.Del(context, userIndex).Err(); err != nil {
		return deleted, fmt.Errorf("redis_session_delete_failed: %w", err)
	}

	return deleted, nil
}

/*
ListByClient enumerates live sessions for a (user, client) pair.

Description: Reads the device index then each primary. Members whose
primaries have expired are pruned from both indexes in passing.

Parameters:
  - context: context.Context
  - userID: string
  - clientID: string

Returns:
  - []*AppSession: Live sessions
  - error: Storage failures only
*/
func (repository *RedisAppSessionRepository) ListByClient(context context.Context, userID, clientID string) ([]*AppSession, error) {
	deviceIDs, err := repository.client.SMembers(context, clientIndexKey(userID, clientID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_session_enumerate_failed: %w", err)
	}

	sessions := make([]*AppSession, 0, len(deviceIDs))
	for _, deviceID := range deviceIDs {
		record, err := repository.Get(context, userID, clientID, deviceID)
		if err != nil {
			return nil, err
		}

		// Self-healing: prune index members whose primary is gone.
		if record == nil {
			repository.client.SRem(context, clientIndexKey(userID, clientID), deviceID)
			repository.client.SRem(context, userIndexKey(userID), clientID+":"+deviceID)
			continue
		}

		sessions = append(sessions, record)
	}

	return sessions, nil
}

/*
ListAll enumerates every live session the user holds.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*AppSession: Live sessions
  - error: Storage failures only
*/
func (repository *RedisAppSessionRepository) ListAll(context context.Context, userID string) ([]*AppSession, error) {
	pairs, err := repository.client.SMembers(context, userIndexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_session_enumerate_failed: %w", err)
	}

	sessions := make([]*AppSession, 0, len(pairs))
	for _, pair := range pairs {
		clientID, deviceID, found := strings.Cut(pair, ":")
		if !found {
			repository.client.SRem(context, userIndexKey(userID), pair)
			continue
		}

		record, err := repository.Get(context, userID, clientID, deviceID)
		if err != nil {
			return nil, err
		}

		// Self-healing: prune index members whose primary is gone.
		if record == nil {
			repository.client.SRem(context, userIndexKey(userID), pair)
			repository.client.SRem(context, clientIndexKey(userID, clientID), deviceID)
			continue
		}

		sessions = append(sessions, record)
	}

	return sessions, nil
}

// evictOldest removes the least recently active session from the slice.
func (repository *RedisAppSessionRepository) evictOldest(context context.Context, sessions []*AppSession) error {
	if len(sessions) == 0 {
		return nil
	}

	oldest := sessions[0]
	for _, candidate := range sessions[1:] {
		if candidate.LastActivity.Before(oldest.LastActivity) {
			oldest = candidate
		}
	}

	return repository.DeleteDevice(context, oldest.UserID, oldest.ClientID, oldest.DeviceID)
}

// # SSO Session Repository

// RedisSSOSessionRepository implements SSOSessionRepository using Redis.
type RedisSSOSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSSOSessionRepository creates a Redis-backed SSOSessionRepository.
func NewSSOSessionRepository(client *redis.Client, ttl time.Duration) *RedisSSOSessionRepository {
	return &RedisSSOSessionRepository{client: client, ttl: ttl}
}

func ssoKey(userID string) string {
	return constants.RedisPrefixSSO + userID
}

func ssoTokenKey(tokenHash string) string {
	return constants.RedisPrefixSSOToken + tokenHash
}

/*
Create mints a fresh SSO token, replacing any existing session.

Description: The old reverse index is deleted before the old primary, and
the new primary is written before the new reverse index. A concurrent
validator therefore never resolves a stale token onto a fresh session;
the worst case is a clean validation failure.

Parameters:
  - context: context.Context
  - userID: string
  - ipAddress: string

Returns:
  - string: The plain SSO token, visible only here
  - error: Storage failures
*/
func (repository *RedisSSOSessionRepository) Create(context context.Context, userID, ipAddress string) (string, error) {

	// ── 1. Drop any existing session, reverse index first ──
	if err := repository.deleteInternal(context, userID); err != nil {
		return "", err
	}

	// ── 2. Mint and hash the new token ──
	ssoToken := uuid.New().String()
	tokenHash := sec.HashToken(ssoToken)

	now := time.Now().UTC()
	record := &SSOSession{
		UserID:       userID,
		TokenHash:    tokenHash,
		IPAddress:    ipAddress,
		CreatedAt:    now,
		LastActivity: now,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("redis_sso_marshal_failed: %w", err)
	}

	// ── 3. Write primary, then reverse index ──
	if err := repository.client.SetEx(context, ssoKey(userID), payload, repository.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis_sso_create_failed: %w", err)
	}

	if err := repository.client.SetEx(context, ssoTokenKey(tokenHash), userID, repository.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis_sso_create_failed: %w", err)
	}

	return ssoToken, nil
}

/*
Validate resolves an SSO token to its session record.

Description: Touches last_activity but keeps the remaining TTL; an SSO
session never lives longer than its creation TTL regardless of use.

Parameters:
  - context: context.Context
  - ssoToken: string

Returns:
  - *SSOSession: Hydrated record, nil when invalid
  - error: Storage failures only
*/
func (repository *RedisSSOSessionRepository) Validate(context context.Context, ssoToken string) (*SSOSession, error) {
	tokenHash := sec.HashToken(ssoToken)

	// ── 1. Reverse lookup: token hash → user id ──
	userID, err := repository.client.Get(context, ssoTokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_sso_lookup_failed: %w", err)
	}

	// ── 2. Load the primary record ──
	record, err := repository.getByUser(context, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	// ── 3. The primary must still point at this token ──
	if record.TokenHash != tokenHash {
		return nil, nil
	}

	// ── 4. Touch last_activity, preserving the remaining TTL ──
	record.LastActivity = time.Now().UTC()

	remaining, err := repository.client.TTL(context, ssoKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_sso_ttl_failed: %w", err)
	}
	if remaining > 0 {
		payload, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("redis_sso_marshal_failed: %w", err)
		}
		if err := repository.client.SetEx(context, ssoKey(userID), payload, remaining).Err(); err != nil {
			return nil, fmt.Errorf("redis_sso_touch_failed: %w", err)
		}
	}

	return record, nil
}

/*
Delete removes the user's SSO session.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - bool: false when no session existed
  - error: Storage failures only
*/
func (repository *RedisSSOSessionRepository) Delete(context context.Context, userID string) (bool, error) {
	record, err := repository.getByUser(context, userID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	if err := repository.deleteInternal(context, userID); err != nil {
		return false, err
	}

	return true, nil
}

/*
Refresh rotates the SSO token for a valid session.

Parameters:
  - context: context.Context
  - ssoToken: string

Returns:
  - string: New plain SSO token, empty when the old one is invalid
  - error: Storage failures only
*/
func (repository *RedisSSOSessionRepository) Refresh(context context.Context, ssoToken string) (string, error) {
	record, err := repository.Validate(context, ssoToken)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", nil
	}

	return repository.Create(context, record.UserID, record.IPAddress)
}

// getByUser loads the primary record, or nil when absent.
func (repository *RedisSSOSessionRepository) getByUser(context context.Context, userID string) (*SSOSession, error) {
	payload, err := repository.client.Get(context, ssoKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_sso_get_failed: %w", err)
	}

	record := &SSOSession{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, fmt.Errorf("redis_sso_unmarshal_failed: %w", err)
	}

	return record, nil
}

// deleteInternal removes the reverse index before the primary so a
// concurrent Validate cannot resolve a token onto a missing record.
func (repository *RedisSSOSessionRepository) deleteInternal(context context.Context, userID string) error {
	record, err := repository.getByUser(context, userID)
	if err != nil {
		return err
	}

	if record != nil && record.TokenHash != "" {
		if err := repository.client.Del(context, ssoTokenKey(record.TokenHash)).Err(); err != nil {
			return fmt.Errorf("redis_sso_delete_failed: %w", err)
		}
	}

	if err := repository.client.Del(context, ssoKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis_sso_delete_failed: %w", err)
	}

	return nil
}
