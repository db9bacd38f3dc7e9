// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tessera/internal/platform/constants"
	"github.com/taibuivan/tessera/internal/platform/sec"
)

func writeTestKeys(t *testing.T) (privatePath, publicPath string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	directory := t.TempDir()

	privatePath = filepath.Join(directory, "private.pem")
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(privatePath, privatePEM, 0o600))

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPath = filepath.Join(directory, "public.pem")
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	require.NoError(t, os.WriteFile(publicPath, publicPEM, 0o644))

	return privatePath, publicPath
}

func newTestService(t *testing.T, accessTTL, refreshTTL time.Duration) *sec.TokenService {
	t.Helper()

	privatePath, publicPath := writeTestKeys(t)
	service, err := sec.NewTokenService(privatePath, publicPath, constants.AuthIssuer, accessTTL, refreshTTL)
	require.NoError(t, err)
	return service
}

/*
TestTokenService_AccessRoundTrip signs an access token and verifies every
claim survives the trip.
*/
func TestTokenService_AccessRoundTrip(t *testing.T) {
	service := newTestService(t, 30*time.Minute, 24*time.Hour)

	signed, err := service.GenerateAccessToken(sec.AccessTokenParams{
		UserID:      "user-1",
		Role:        "user",
		Name:        "Ayu Lestari",
		Email:       "ayu@tessera.io",
		AvatarURL:   "https://cdn.example.com/avatars/user-1.png",
		ClientID:    "field-ops",
		AllowedApps: []string{"field-ops", "back-office"},
	})
	require.NoError(t, err)

	claims, err := service.VerifyToken(signed, sec.TokenTypeAccess)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, constants.AuthIssuer, claims.Issuer)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "Ayu Lestari", claims.Name)
	assert.Equal(t, "ayu@tessera.io", claims.Email)
	assert.Equal(t, "https://cdn.example.com/avatars/user-1.png", claims.AvatarURL)
	assert.Equal(t, sec.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "field-ops", claims.ClientID)
	assert.Equal(t, []string{"field-ops", "back-office"}, claims.AllowedApps)

	// Access tokens carry no session binding.
	assert.Empty(t, claims.DeviceID)
	assert.Empty(t, claims.ID)

	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

/*
TestTokenService_RefreshRoundTrip signs a refresh token and checks the
session-binding claims.
*/
func TestTokenService_RefreshRoundTrip(t *testing.T) {
	service := newTestService(t, 30*time.Minute, 24*time.Hour)

	signed, err := service.GenerateRefreshToken(sec.RefreshTokenParams{
		UserID:   "user-1",
		Role:     "user",
		Name:     "Ayu Lestari",
		ClientID: "field-ops",
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	claims, err := service.VerifyToken(signed, sec.TokenTypeRefresh)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, sec.TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, "field-ops", claims.ClientID)
	assert.Equal(t, "device-a", claims.DeviceID)
	assert.NotEmpty(t, claims.ID, "refresh tokens carry a jti")

	// Identity snapshot fields stay off the long-lived token.
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.AvatarURL)
	assert.Empty(t, claims.AllowedApps)
}

/*
TestTokenService_RefreshTokensDistinct proves two refresh tokens signed
back to back never collide, even inside one clock second. Session rotation
depends on the old and new token hashes being different.
*/
func TestTokenService_RefreshTokensDistinct(t *testing.T) {
	service := newTestService(t, 30*time.Minute, 24*time.Hour)

	params := sec.RefreshTokenParams{
		UserID:   "user-1",
		Role:     "user",
		ClientID: "field-ops",
		DeviceID: "device-a",
	}

	first, err := service.GenerateRefreshToken(params)
	require.NoError(t, err)
	second, err := service.GenerateRefreshToken(params)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, sec.HashToken(first), sec.HashToken(second))
}

/*
TestTokenService_VerifyFailures walks the rejection paths: garbage input,
foreign signatures, wrong kind, and expiry.
*/
func TestTokenService_VerifyFailures(t *testing.T) {
	service := newTestService(t, 30*time.Minute, 24*time.Hour)

	access, err := service.GenerateAccessToken(sec.AccessTokenParams{UserID: "user-1", Role: "user"})
	require.NoError(t, err)

	// Same claims, different key pair.
	foreignService := newTestService(t, 30*time.Minute, 24*time.Hour)
	foreign, err := foreignService.GenerateAccessToken(sec.AccessTokenParams{UserID: "user-1", Role: "user"})
	require.NoError(t, err)

	// Negative TTL produces an already-expired token.
	expiredService := newTestService(t, -time.Minute, 24*time.Hour)
	expired, err := expiredService.GenerateAccessToken(sec.AccessTokenParams{UserID: "user-1", Role: "user"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		service  *sec.TokenService
		token    string
		expected sec.TokenType
		wantErr  error
	}{
		{"garbage", service, "not.a.token", sec.TokenTypeAccess, sec.ErrInvalidToken},
		{"empty", service, "", sec.TokenTypeAccess, sec.ErrInvalidToken},
		{"foreign_signature", service, foreign, sec.TokenTypeAccess, sec.ErrInvalidToken},
		{"wrong_type", service, access, sec.TokenTypeRefresh, sec.ErrWrongTokenType},
		{"expired", expiredService, expired, sec.TokenTypeAccess, sec.ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.service.VerifyToken(tt.token, tt.expected)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

/*
TestTokenService_TypeCheckedBeforeExpiry pins the verification order: an
expired token of the wrong kind reports the kind mismatch, not the expiry.
*/
func TestTokenService_TypeCheckedBeforeExpiry(t *testing.T) {
	expiredService := newTestService(t, 30*time.Minute, -time.Minute)

	refresh, err := expiredService.GenerateRefreshToken(sec.RefreshTokenParams{
		UserID: "user-1", Role: "user", ClientID: "field-ops", DeviceID: "device-a",
	})
	require.NoError(t, err)

	_, err = expiredService.VerifyToken(refresh, sec.TokenTypeAccess)
	assert.ErrorIs(t, err, sec.ErrWrongTokenType)

	_, err = expiredService.VerifyToken(refresh, sec.TokenTypeRefresh)
	assert.ErrorIs(t, err, sec.ErrExpiredToken)
}

/*
TestTokenService_JWKSDocument checks the shape of the published key set.
*/
func TestTokenService_JWKSDocument(t *testing.T) {
	service := newTestService(t, 30*time.Minute, 24*time.Hour)

	var document struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(service.JWKSDocument(), &document))
	require.Len(t, document.Keys, 1)

	key := document.Keys[0]
	assert.Equal(t, "RSA", key["kty"])
	assert.Equal(t, "sig", key["use"])
	assert.Equal(t, "RS256", key["alg"])
	assert.Equal(t, constants.JWKSKeyID, key["kid"])
	assert.NotEmpty(t, key["n"])
	assert.NotEmpty(t, key["e"])
}

/*
TestTokenService_AccessTTL confirms the configured lifetime is exposed for
the expires_in response field.
*/
func TestTokenService_AccessTTL(t *testing.T) {
	service := newTestService(t, 45*time.Minute, 24*time.Hour)
	assert.Equal(t, 45*time.Minute, service.AccessTTL())
}
