// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/constants"
)

// # Google OAuth2

// Production endpoints of the Google OAuth2 v2 flow.
const (
	googleAuthEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint    = "https://oauth2.googleapis.com/token"
	googleUserinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// googleScopes is the fixed scope set requested on every authorization.
const googleScopes = "openid https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/userinfo.profile"

// GoogleConfig configures a [GoogleProvider]. The endpoint fields exist so
// tests can point the provider at a local server; leave them empty for the
// real Google endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string

	// DefaultRedirectURI is used when the login request carries none. It must
	// match an authorized redirect URI of the OAuth client registration.
	DefaultRedirectURI string

	AuthEndpoint     string
	TokenEndpoint    string
	UserinfoEndpoint string
}

// GoogleProvider drives the server side of the Google authorization-code
// flow: building the consent URL, exchanging the returned code, and fetching
// the userinfo document.
type GoogleProvider struct {
	config GoogleConfig
	client *http.Client
	logger *slog.Logger
}

// NewGoogleProvider wires a GoogleProvider with a timeout-bounded HTTP client.
func NewGoogleProvider(config GoogleConfig, logger *slog.Logger) *GoogleProvider {
	if config.AuthEndpoint == "" {
		config.AuthEndpoint = googleAuthEndpoint
	}
	if config.TokenEndpoint == "" {
		config.TokenEndpoint = googleTokenEndpoint
	}
	if config.UserinfoEndpoint == "" {
		config.UserinfoEndpoint = googleUserinfoEndpoint
	}

	return &GoogleProvider{
		config: config,
		client: &http.Client{Timeout: constants.ProviderCallTimeout},
		logger: logger,
	}
}

/*
AuthCodeURL builds the Google consent-screen URL for the frontend to redirect
the browser to.

Description: Requests offline access with a forced consent prompt so Google
always returns a refreshable grant. The optional state parameter rides along
for CSRF protection.

Parameters:
  - redirectURI: string (empty uses the configured default)
  - state: string (optional)

Returns:
  - string: Fully-encoded authorization URL
*/
func (provider *GoogleProvider) AuthCodeURL(redirectURI, state string) string {
	if redirectURI == "" {
		redirectURI = provider.config.DefaultRedirectURI
	}

	params := url.Values{}
	params.Set("client_id", provider.config.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", googleScopes)
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	if state != "" {
		params.Set("state", state)
	}

	return provider.config.AuthEndpoint + "?" + params.Encode()
}

/*
Authenticate exchanges an authorization code and returns the verified Google
identity.

Description: Two provider round trips: code-for-token on the token endpoint,
then the userinfo document with the bearer token. Google id and email are
mandatory in the result; a userinfo document without them is rejected.

Parameters:
  - context: context.Context
  - code: string (authorization code from the callback)
  - redirectURI: string (must equal the one used in AuthCodeURL)

Returns:
  - ExternalIdentity: Provider "google", subject = Google account id
  - error: apperr.ValidationError on exchange failure, apperr.InvalidToken
    when userinfo cannot be retrieved or is incomplete
*/
func (provider *GoogleProvider) Authenticate(context context.Context, code, redirectURI string) (ExternalIdentity, error) {
	accessToken, err := provider.exchangeCode(context, code, redirectURI)
	if err != nil {
		return ExternalIdentity{}, err
	}
	return provider.fetchUser(context, accessToken)
}

func (provider *GoogleProvider) exchangeCode(context context.Context, code, redirectURI string) (string, error) {
	if redirectURI == "" {
		redirectURI = provider.config.DefaultRedirectURI
	}

	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", provider.config.ClientID)
	form.Set("client_secret", provider.config.ClientSecret)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")

	request, err := http.NewRequestWithContext(context, http.MethodPost, provider.config.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("google_token_request_failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := provider.client.Do(request)
	if err != nil {
		provider.logger.Error("google_token_exchange_failed", slog.String("error", err.Error()))
		return "", apperr.ValidationError("Could not reach Google to exchange the authorization code")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 2048))
		provider.logger.Error("google_token_exchange_rejected",
			slog.Int("status", response.StatusCode),
			slog.String("body", string(body)),
		)
		return "", apperr.ValidationError("Failed to obtain a token from Google")
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil || payload.AccessToken == "" {
		return "", apperr.ValidationError("Google returned an invalid token response")
	}

	return payload.AccessToken, nil
}

func (provider *GoogleProvider) fetchUser(context context.Context, accessToken string) (ExternalIdentity, error) {
	request, err := http.NewRequestWithContext(context, http.MethodGet, provider.config.UserinfoEndpoint, nil)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("google_userinfo_request_failed: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+accessToken)

	response, err := provider.client.Do(request)
	if err != nil {
		provider.logger.Error("google_userinfo_failed", slog.String("error", err.Error()))
		return ExternalIdentity{}, apperr.InvalidToken("Could not retrieve the Google user profile")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return ExternalIdentity{}, apperr.InvalidToken("Google rejected the access token")
	}

	// The v2 userinfo document: "id" is the stable account id and
	// "verified_email" the verification flag.
	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return ExternalIdentity{}, apperr.InvalidToken("Google returned an unreadable user profile")
	}

	if payload.ID == "" || payload.Email == "" {
		return ExternalIdentity{}, apperr.InvalidToken("The Google user profile is incomplete")
	}

	return ExternalIdentity{
		Provider:      ProviderGoogle,
		SubjectID:     payload.ID,
		Email:         payload.Email,
		Name:          payload.Name,
		Picture:       payload.Picture,
		EmailVerified: payload.VerifiedEmail,
	}, nil
}
