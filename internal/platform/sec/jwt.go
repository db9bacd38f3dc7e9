// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, JWKS
// export) from the domain logic. It acts as an Infrastructure service
// injected into the Application layer. The RSA key pair is loaded once at
// startup and treated as read-only afterwards.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates the two token kinds this authority issues.
type TokenType string

const (
	// TokenTypeAccess marks short-lived tokens presented on API calls.
	TokenTypeAccess TokenType = "access"

	// TokenTypeRefresh marks long-lived tokens exchanged for new pairs.
	TokenTypeRefresh TokenType = "refresh"
)

// Verification failure modes. Callers map these onto the API error taxonomy.
var (
	// ErrInvalidToken covers garbled tokens, bad signatures, and wrong algorithms.
	ErrInvalidToken = errors.New("sec: invalid token")

	// ErrExpiredToken is returned when the token's exp claim is in the past.
	ErrExpiredToken = errors.New("sec: token has expired")

	// ErrWrongTokenType is returned when the type claim does not match the
	// expected kind, e.g. a refresh token presented where an access token is
	// required. The type claim is consulted before expiry, so an expired
	// token of the wrong kind still reports the type mismatch.
	ErrWrongTokenType = errors.New("sec: unexpected token type")
)

// TokenClaims is the payload embedded inside every token this authority
// signs. Access and refresh tokens share the struct; fields irrelevant to a
// kind are left empty and omitted from the wire form.
//
// # Why identity claims in the token?
//
// Downstream applications verify access tokens against the published JWKS
// and reconstruct the user WITHOUT calling back into this service. Only the
// refresh path consults session state.
type TokenClaims struct {
	jwt.RegisteredClaims

	Role      string    `json:"role"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	TokenType TokenType `json:"type"`

	// ClientID is the application code the token was issued for. Empty on
	// SSO-portal tokens.
	ClientID string `json:"client_id,omitempty"`

	// DeviceID binds a refresh token to one session record. Never set on
	// access tokens.
	DeviceID string `json:"device_id,omitempty"`

	// AllowedApps lists the codes of active applications the user may enter.
	// Only set on access tokens.
	AllowedApps []string `json:"allowed_apps,omitempty"`
}

// AccessTokenParams carries the identity snapshot baked into an access token.
type AccessTokenParams struct {
	UserID      string
	Role        string
	Name        string
	Email       string
	AvatarURL   string
	ClientID    string
	AllowedApps []string
}

// RefreshTokenParams carries the claims baked into a refresh token.
type RefreshTokenParams struct {
	UserID   string
	Role     string
	Name     string
	ClientID string
	DeviceID string
}

// TokenService signs and verifies JWTs using an RS256 key pair and exports
// the public half as a JWKS document.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration

	// jwksDocument is marshaled once at construction; see jwks.go.
	jwksDocument []byte
}

// NewTokenService creates a new TokenService.
// It reads RSA keys in PEM form from the provided filesystem paths and
// precomputes the JWKS document.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	service := &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}

	if service.jwksDocument, err = buildJWKSDocument(publicKey); err != nil {
		return nil, err
	}

	return service, nil
}

// AccessTTL returns the configured access-token lifetime. Handlers use it to
// populate the expires_in response field.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// GenerateAccessToken signs a new access token carrying the user's identity
// snapshot. Signing creates no server-side state.
func (service *TokenService) GenerateAccessToken(params AccessTokenParams) (string, error) {
	currentTime := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   params.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.accessTTL)),
		},
		Role:        params.Role,
		Name:        params.Name,
		Email:       params.Email,
		AvatarURL:   params.AvatarURL,
		TokenType:   TokenTypeAccess,
		ClientID:    params.ClientID,
		AllowedApps: params.AllowedApps,
	}

	return service.sign(claims)
}

// GenerateRefreshToken signs a new refresh token. The device id may be empty
// on the provisional token signed before the session store has assigned one.
func (service *TokenService) GenerateRefreshToken(params RefreshTokenParams) (string, error) {
	currentTime := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps tokens rotated within the same clock second
			// distinct, so the stored hash matches exactly one token.
			ID:        uuid.NewString(),
			Subject:   params.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.refreshTTL)),
		},
		Role:      params.Role,
		Name:      params.Name,
		TokenType: TokenTypeRefresh,
		ClientID:  params.ClientID,
		DeviceID:  params.DeviceID,
	}

	return service.sign(claims)
}

func (service *TokenService) sign(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}

// VerifyToken checks the signature of a JWT string, then the type claim,
// then expiry, in that order. A structurally valid token of the wrong kind
// reports [ErrWrongTokenType] even if it is also expired.
func (service *TokenService) VerifyToken(tokenString string, expectedType TokenType) (*TokenClaims, error) {
	// Claims validation is deferred so the type check can run before expiry.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: malformed claims", ErrInvalidToken)
	}

	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.TokenType, expectedType)
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrInvalidToken)
	}
	if time.Now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	return claims, nil
}
