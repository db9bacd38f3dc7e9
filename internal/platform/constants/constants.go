// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuer, key id, and the reserved portal client code.
  - Cache Taxonomy: Redis key prefixes for the two-level session model.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "tessera-sso"
	AppVersion = "2.0.0"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	// Login paths do outbound calls (identity broker, OAuth provider), so this
	// is generous relative to a pure CRUD service.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Outbound Calls

const (
	// ProviderCallTimeout bounds each call to an external identity provider
	// (ID-token verification, OAuth code exchange, userinfo fetch).
	ProviderCallTimeout = 10 * time.Second

	// AvatarFetchTimeout bounds the best-effort avatar download that runs
	// when an external identity is first linked to a local user.
	AvatarFetchTimeout = 10 * time.Second

	// AvatarMaxBytes caps the avatar download size.
	AvatarMaxBytes = 5 << 20
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "tessera.sso"

	// JWKSKeyID is the 'kid' advertised in the JWKS document and usable by
	// downstream verifiers to select the signing key.
	JWKSKeyID = "sso-v1"

	// PortalClientCode is the reserved client code for the SSO portal
	// frontend itself. It has no application row; refresh tokens without a
	// client_id claim are routed to this code.
	PortalClientCode = "sso_portal"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"

	// Logout-by-client takes its scope from headers rather than the body.
	HeaderClientID = "X-Client-ID"
	HeaderDeviceID = "X-Device-ID"
)

// # JSON Field Identifiers

const (
	FieldError     = "error"
	FieldErrorCode = "error_code"
	FieldMessage   = "message"
	FieldDetails   = "details"
	FieldTimestamp = "timestamp"
	FieldStatus    = "status"
	FieldApp       = "app"
	FieldVersion   = "version"
	FieldChecks    = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	// RedisPrefixSession keys the primary app-session record:
	// session:{user}:{client}:{device}.
	RedisPrefixSession = "session:"

	// RedisPrefixClientSessions keys the per-(user, client) device-id set:
	// client_sessions:{user}:{client}.
	RedisPrefixClientSessions = "client_sessions:"

	// RedisPrefixUserSessions keys the per-user "client:device" set:
	// user_sessions:{user}.
	RedisPrefixUserSessions = "user_sessions:"

	// RedisPrefixSSO keys the global SSO session record: sso:{user}.
	RedisPrefixSSO = "sso:"

	// RedisPrefixSSOToken keys the reverse hash-to-user index: sso_token:{hash}.
	RedisPrefixSSOToken = "sso_token:"
)
