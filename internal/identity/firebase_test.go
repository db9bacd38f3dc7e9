// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tessera/internal/identity"
	"github.com/taibuivan/tessera/internal/platform/apperr"
)

const testFirebaseProject = "tessera-test"

// firebaseTestEnv bundles a signing key, a JWKS server for its public half,
// and a verifier pointed at that server.
type firebaseTestEnv struct {
	key      *rsa.PrivateKey
	server   *httptest.Server
	verifier *identity.FirebaseVerifier
	fetches  *atomic.Int64
}

func newFirebaseTestEnv(t *testing.T) *firebaseTestEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keySet := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     "test-kid",
		Algorithm: "RS256",
		Use:       "sig",
	}}}

	fetches := &atomic.Int64{}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		writer.Header().Set("Cache-Control", "public, max-age=3600")
		json.NewEncoder(writer).Encode(keySet)
	}))
	t.Cleanup(server.Close)

	verifier := identity.NewFirebaseVerifier(identity.FirebaseConfig{
		ProjectID: testFirebaseProject,
		KeysURL:   server.URL,
	}, discardLogger())

	return &firebaseTestEnv{key: key, server: server, verifier: verifier, fetches: fetches}
}

// signIDToken produces a Firebase-shaped ID token. The overrides map is
// merged over the defaults to break individual claims per test.
func (env *firebaseTestEnv) signIDToken(t *testing.T, kid string, overrides map[string]any) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":            "https://securetoken.google.com/" + testFirebaseProject,
		"aud":            testFirebaseProject,
		"sub":            "firebase-uid-1",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"email":          "ayu@example.com",
		"email_verified": true,
		"name":           "Ayu Lestari",
		"picture":        "https://lh3.example.com/photo.jpg",
		"firebase":       map[string]any{"sign_in_provider": "google.com"},
	}
	for claim, value := range overrides {
		claims[claim] = value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(env.key)
	require.NoError(t, err)
	return signed
}

/*
TestFirebaseVerifier_Verify checks that a well-formed ID token resolves to
the asserted identity and that the key set is fetched only once.
*/
func TestFirebaseVerifier_Verify(t *testing.T) {
	env := newFirebaseTestEnv(t)
	ctx := context.Background()

	external, err := env.verifier.Verify(ctx, env.signIDToken(t, "test-kid", nil))
	require.NoError(t, err)

	assert.Equal(t, identity.ProviderFirebase, external.Provider)
	assert.Equal(t, "firebase-uid-1", external.SubjectID)
	assert.Equal(t, "ayu@example.com", external.Email)
	assert.Equal(t, "Ayu Lestari", external.Name)
	assert.Equal(t, "https://lh3.example.com/photo.jpg", external.Picture)
	assert.True(t, external.EmailVerified)

	// Second verification rides the cached key set.
	_, err = env.verifier.Verify(ctx, env.signIDToken(t, "test-kid", nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.fetches.Load())
}

/*
TestFirebaseVerifier_Rejections covers the claim checks: audience, issuer,
expiry, missing subject, and an unknown signing key.
*/
func TestFirebaseVerifier_Rejections(t *testing.T) {
	env := newFirebaseTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		kid       string
		overrides map[string]any
	}{
		{"wrong audience", "test-kid", map[string]any{"aud": "some-other-project"}},
		{"wrong issuer", "test-kid", map[string]any{"iss": "https://securetoken.google.com/some-other-project"}},
		{"expired", "test-kid", map[string]any{"exp": time.Now().Add(-time.Minute).Unix()}},
		{"missing subject", "test-kid", map[string]any{"sub": ""}},
		{"unknown signing key", "rotated-away-kid", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.verifier.Verify(ctx, env.signIDToken(t, tc.kid, tc.overrides))
			require.Error(t, err)

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, "INVALID_TOKEN", appErr.Code)
		})
	}

	t.Run("garbage token", func(t *testing.T) {
		_, err := env.verifier.Verify(ctx, "not-a-jwt")
		require.Error(t, err)
		assert.Equal(t, "INVALID_TOKEN", apperr.As(err).Code)
	})
}
