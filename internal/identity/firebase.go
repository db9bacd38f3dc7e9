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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/constants"
)

// # Firebase ID Tokens

// firebaseKeysEndpoint serves the JWK set Google signs Firebase ID tokens
// with. Keys rotate; the Cache-Control header bounds how long a fetch stays
// valid.
const firebaseKeysEndpoint = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// firebaseIssuerPrefix plus the project id forms the expected iss claim.
const firebaseIssuerPrefix = "https://securetoken.google.com/"

// defaultKeyCacheTTL applies when the key response carries no usable
// Cache-Control max-age.
const defaultKeyCacheTTL = time.Hour

// FirebaseVerifier checks Firebase ID tokens offline against Google's
// published signing keys. No Admin SDK round trip is involved: the token is
// an RS256 JWT and the key set is public.
type FirebaseVerifier struct {
	projectID string
	keysURL   string
	client    *http.Client
	logger    *slog.Logger

	mu         sync.RWMutex
	keys       jose.JSONWebKeySet
	keysExpiry time.Time
}

// FirebaseConfig configures a [FirebaseVerifier]. KeysURL exists for tests;
// leave it empty for the Google endpoint.
type FirebaseConfig struct {
	ProjectID string
	KeysURL   string
}

// NewFirebaseVerifier wires a verifier for the given Firebase project.
func NewFirebaseVerifier(config FirebaseConfig, logger *slog.Logger) *FirebaseVerifier {
	if config.KeysURL == "" {
		config.KeysURL = firebaseKeysEndpoint
	}

	return &FirebaseVerifier{
		projectID: config.ProjectID,
		keysURL:   config.KeysURL,
		client:    &http.Client{Timeout: constants.ProviderCallTimeout},
		logger:    logger,
	}
}

// firebaseClaims is the subset of a Firebase ID token this service reads.
type firebaseClaims struct {
	jwt.RegisteredClaims

	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
}

/*
Verify validates a Firebase ID token and returns the identity it asserts.

Description: Checks, in order: RS256 signature against the cached Google key
set (with one forced refresh on an unknown kid, covering rotation), issuer
"https://securetoken.google.com/{project}", audience equal to the project id,
expiry, and a non-empty subject.

Parameters:
  - context: context.Context
  - idToken: string (raw JWT from the Firebase client SDK)

Returns:
  - ExternalIdentity: Provider "firebase", subject = Firebase uid
  - error: apperr.InvalidToken on any verification failure
*/
func (verifier *FirebaseVerifier) Verify(context context.Context, idToken string) (ExternalIdentity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(firebaseIssuerPrefix+verifier.projectID),
		jwt.WithAudience(verifier.projectID),
		jwt.WithExpirationRequired(),
	)

	claims := &firebaseClaims{}
	token, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("firebase token has no kid header")
		}
		return verifier.keyByID(context, kid)
	})
	if err != nil {
		verifier.logger.Warn("firebase_token_rejected", slog.String("error", err.Error()))
		return ExternalIdentity{}, apperr.InvalidToken("Invalid Firebase token")
	}

	if !token.Valid || claims.Subject == "" {
		return ExternalIdentity{}, apperr.InvalidToken("Invalid Firebase token")
	}

	return ExternalIdentity{
		Provider:      ProviderFirebase,
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		Picture:       claims.Picture,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// keyByID resolves a signing key from the cached set, refreshing once when
// the kid is unknown so freshly rotated keys are picked up immediately.
func (verifier *FirebaseVerifier) keyByID(context context.Context, kid string) (interface{}, error) {
	verifier.mu.RLock()
	fresh := time.Now().Before(verifier.keysExpiry)
	matches := verifier.keys.Key(kid)
	verifier.mu.RUnlock()

	if fresh && len(matches) > 0 {
		return matches[0].Key, nil
	}

	if err := verifier.refreshKeys(context); err != nil {
		return nil, err
	}

	verifier.mu.RLock()
	matches = verifier.keys.Key(kid)
	verifier.mu.RUnlock()

	if len(matches) == 0 {
		return nil, fmt.Errorf("firebase signing key %q not found", kid)
	}
	return matches[0].Key, nil
}

func (verifier *FirebaseVerifier) refreshKeys(context context.Context) error {
	request, err := http.NewRequestWithContext(context, http.MethodGet, verifier.keysURL, nil)
	if err != nil {
		return fmt.Errorf("firebase_keys_request_failed: %w", err)
	}

	response, err := verifier.client.Do(request)
	if err != nil {
		return fmt.Errorf("firebase_keys_fetch_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("firebase_keys_fetch_failed: status %d", response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("firebase_keys_read_failed: %w", err)
	}

	var keySet jose.JSONWebKeySet
	if err := json.Unmarshal(body, &keySet); err != nil {
		return fmt.Errorf("firebase_keys_parse_failed: %w", err)
	}

	ttl := cacheTTL(response.Header.Get("Cache-Control"))

	verifier.mu.Lock()
	verifier.keys = keySet
	verifier.keysExpiry = time.Now().Add(ttl)
	verifier.mu.Unlock()

	verifier.logger.Debug("firebase_keys_refreshed",
		slog.Int("keys", len(keySet.Keys)),
		slog.Duration("ttl", ttl),
	)

	return nil
}

// cacheTTL extracts max-age from a Cache-Control header, falling back to
// [defaultKeyCacheTTL].
func cacheTTL(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		if value, found := strings.CutPrefix(directive, "max-age="); found {
			if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return defaultKeyCacheTTL
}
