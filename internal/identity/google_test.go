// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tessera/internal/identity"
	"github.com/taibuivan/tessera/internal/platform/apperr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestGoogleProvider_AuthCodeURL verifies the consent URL carries the full
OAuth2 parameter set and falls back to the configured redirect URI.
*/
func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	provider := identity.NewGoogleProvider(identity.GoogleConfig{
		ClientID:           "client-123",
		ClientSecret:       "secret",
		DefaultRedirectURI: "https://sso.example.com/callback",
	}, discardLogger())

	raw := provider.AuthCodeURL("", "csrf-state")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "client-123", query.Get("client_id"))
	assert.Equal(t, "https://sso.example.com/callback", query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "offline", query.Get("access_type"))
	assert.Equal(t, "consent", query.Get("prompt"))
	assert.Equal(t, "csrf-state", query.Get("state"))
	assert.Contains(t, query.Get("scope"), "userinfo.email")

	// An explicit redirect URI wins; omitting state drops the parameter.
	raw = provider.AuthCodeURL("https://other.example.com/cb", "")
	parsed, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/cb", parsed.Query().Get("redirect_uri"))
	assert.False(t, parsed.Query().Has("state"))
}

/*
TestGoogleProvider_Authenticate verifies the code-for-identity exchange
against a stubbed pair of Google endpoints.
*/
func TestGoogleProvider_Authenticate(t *testing.T) {
	var capturedForm url.Values
	var capturedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/token":
			require.NoError(t, request.ParseForm())
			capturedForm = request.PostForm
			json.NewEncoder(writer).Encode(map[string]string{"access_token": "google-access-token"})
		case "/userinfo":
			capturedAuth = request.Header.Get("Authorization")
			json.NewEncoder(writer).Encode(map[string]any{
				"id":             "google-sub-42",
				"email":          "ayu@example.com",
				"name":           "Ayu Lestari",
				"picture":        "https://lh3.example.com/photo.jpg",
				"verified_email": true,
			})
		default:
			http.NotFound(writer, request)
		}
	}))
	defer server.Close()

	provider := identity.NewGoogleProvider(identity.GoogleConfig{
		ClientID:         "client-123",
		ClientSecret:     "secret-xyz",
		TokenEndpoint:    server.URL + "/token",
		UserinfoEndpoint: server.URL + "/userinfo",
	}, discardLogger())

	external, err := provider.Authenticate(context.Background(), "auth-code-1", "https://sso.example.com/callback")
	require.NoError(t, err)

	assert.Equal(t, identity.ProviderGoogle, external.Provider)
	assert.Equal(t, "google-sub-42", external.SubjectID)
	assert.Equal(t, "ayu@example.com", external.Email)
	assert.Equal(t, "Ayu Lestari", external.Name)
	assert.Equal(t, "https://lh3.example.com/photo.jpg", external.Picture)
	assert.True(t, external.EmailVerified)

	assert.Equal(t, "auth-code-1", capturedForm.Get("code"))
	assert.Equal(t, "client-123", capturedForm.Get("client_id"))
	assert.Equal(t, "secret-xyz", capturedForm.Get("client_secret"))
	assert.Equal(t, "https://sso.example.com/callback", capturedForm.Get("redirect_uri"))
	assert.Equal(t, "authorization_code", capturedForm.Get("grant_type"))
	assert.Equal(t, "Bearer google-access-token", capturedAuth)
}

/*
TestGoogleProvider_AuthenticateFailures covers rejected exchanges and
incomplete userinfo documents.
*/
func TestGoogleProvider_AuthenticateFailures(t *testing.T) {
	tests := []struct {
		name        string
		tokenStatus int
		tokenBody   map[string]string
		userinfo    map[string]any
		wantCode    string
	}{
		{
			name:        "token endpoint rejects the code",
			tokenStatus: http.StatusBadRequest,
			tokenBody:   map[string]string{"error": "invalid_grant"},
			wantCode:    "VALIDATION_ERROR",
		},
		{
			name:        "token response without access_token",
			tokenStatus: http.StatusOK,
			tokenBody:   map[string]string{"scope": "openid"},
			wantCode:    "VALIDATION_ERROR",
		},
		{
			name:        "userinfo missing the account id",
			tokenStatus: http.StatusOK,
			tokenBody:   map[string]string{"access_token": "tok"},
			userinfo:    map[string]any{"email": "ayu@example.com"},
			wantCode:    "INVALID_TOKEN",
		},
		{
			name:        "userinfo missing the email",
			tokenStatus: http.StatusOK,
			tokenBody:   map[string]string{"access_token": "tok"},
			userinfo:    map[string]any{"id": "google-sub-42"},
			wantCode:    "INVALID_TOKEN",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				switch request.URL.Path {
				case "/token":
					writer.WriteHeader(tc.tokenStatus)
					json.NewEncoder(writer).Encode(tc.tokenBody)
				case "/userinfo":
					json.NewEncoder(writer).Encode(tc.userinfo)
				}
			}))
			defer server.Close()

			provider := identity.NewGoogleProvider(identity.GoogleConfig{
				ClientID:         "client-123",
				TokenEndpoint:    server.URL + "/token",
				UserinfoEndpoint: server.URL + "/userinfo",
			}, discardLogger())

			_, err := provider.Authenticate(context.Background(), "code", "")
			require.Error(t, err)

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tc.wantCode, appErr.Code)
		})
	}
}
