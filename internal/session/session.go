// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session implements the volatile session state of the SSO authority.

Two kinds of session live here, both in Redis, both expiring by TTL:

  - Application sessions: one per (user, client, device) triple, holding the
    hash of the currently valid refresh token plus device metadata. TTL
    equals the refresh-token lifetime.
  - SSO sessions: one per user, holding the hash of the portal-wide SSO
    token. TTL is long (weeks). Exchanging an SSO token mints application
    tokens without re-entering credentials.

# Architecture

Stores in this package are leaves: they never call back into the flow
orchestrator and know nothing about JWTs beyond receiving opaque token
strings to hash. Raw tokens are never persisted; only their SHA-256.

# Index Consistency

Application sessions carry two secondary indexes (per-user and per-client
device sets) used for enumeration and bulk invalidation. Index cleanup on
delete is best-effort; enumeration is self-healing and prunes index members
whose primary records have expired.
*/
package session

import (
	"time"
)

// # Domain Entities

// AppSession is the per-(user, client, device) authentication record.
type AppSession struct {
	UserID           string     `json:"user_id"`
	ClientID         string     `json:"client_id"`
	DeviceID         string     `json:"device_id"`
	RefreshTokenHash string     `json:"refresh_token_hash"` // SHA-256; the raw token is never stored.
	DeviceInfo       DeviceInfo `json:"device_info"`
	IPAddress        string     `json:"ip_address,omitempty"`
	PushToken        string     `json:"push_token,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	LastActivity     time.Time  `json:"last_activity"`
}

// DeviceInfo describes the device that opened a session. All fields are
// client-reported and must be treated as untrusted display data.
type DeviceInfo struct {
	Platform   string            `json:"platform,omitempty"`
	OSVersion  string            `json:"os_version,omitempty"`
	AppVersion string            `json:"app_version,omitempty"`
	DeviceName string            `json:"device_name,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// SSOSession is the single per-user portal session record.
type SSOSession struct {
	UserID       string    `json:"user_id"`
	TokenHash    string    `json:"token_hash"` // SHA-256 of the current SSO token.
	IPAddress    string    `json:"ip_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// # Operation Parameters

// CreateParams carries the inputs for opening an application session.
type CreateParams struct {
	UserID       string
	ClientID     string
	RefreshToken string
	// SingleSession is the application's policy flag: at most one live
	// device per (user, client) when true.
	SingleSession bool
	// DeviceID is optional; the store assigns a fresh opaque id when empty.
	DeviceID   string
	DeviceInfo DeviceInfo
	IPAddress  string
	PushToken  string
}

// UpdateParams carries the inputs for rewriting an existing session.
// Empty RefreshToken keeps the stored hash; empty PushToken keeps the
// stored push token.
type UpdateParams struct {
	UserID       string
	ClientID     string
	DeviceID     string
	RefreshToken string
	PushToken    string
}
