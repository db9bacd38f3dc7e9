// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the login, exchange, refresh, and logout flows of
the SSO authority.

# Architecture

This package is the orchestrator: it owns no state of its own and composes
the identity resolver, the application gate, the token service, and the two
session stores into the flow state machine. Every credential path (password,
Firebase, Google) converges on the same issuing sequence, so the outcome
shape is identical no matter how the user proved who they are.

# Issuing Sequence

A login resolves the identity, authorizes the target client, rotates the SSO
session, then signs tokens. App-bound refresh tokens are signed twice: a
provisional token opens the session record, the store assigns the effective
device id, and the final token embedding that id replaces the provisional
hash. An SSO exchange reuses the tail of this sequence without touching the
SSO session itself.
*/
package auth

import (
	"time"

	"github.com/taibuivan/tessera/internal/application"
	"github.com/taibuivan/tessera/internal/session"
)

// tokenTypeBearer is the fixed token_type value in every token response.
const tokenTypeBearer = "bearer"

// # Flow Inputs

// LoginParams carries the client and device context accompanying any
// credential. All fields are optional; an empty ClientID means the login
// targets the SSO portal itself.
type LoginParams struct {
	ClientID   string
	DeviceID   string
	DeviceInfo session.DeviceInfo
	IPAddress  string
	PushToken  string
}

// # Flow Outcomes

// UserData is the identity snapshot returned alongside tokens and by the
// validate endpoint.
type UserData struct {
	ID          string                   `json:"id"`
	Role        string                   `json:"role"`
	Name        string                   `json:"name"`
	Email       string                   `json:"email,omitempty"`
	AvatarURL   string                   `json:"avatar_url,omitempty"`
	AllowedApps []application.AllowedApp `json:"allowed_apps"`
}

// LoginOutcome is the uniform response of every login-type flow. DeviceID is
// present only when the login targeted a registered client; SSO-portal
// logins receive tokens without a device binding.
type LoginOutcome struct {
	SSOToken     string   `json:"sso_token"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	DeviceID     string   `json:"device_id,omitempty"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         UserData `json:"user"`
}

// RefreshOutcome is the response of a successful token refresh. The SSO
// token is never rotated by refresh and therefore never returned here.
type RefreshOutcome struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SessionEntry is one device session in the session listing.
type SessionEntry struct {
	DeviceID     string             `json:"device_id"`
	DeviceInfo   session.DeviceInfo `json:"device_info"`
	IPAddress    string             `json:"ip_address,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	LastActivity time.Time          `json:"last_activity"`
}

// SessionListing groups a user's live sessions by client code.
type SessionListing struct {
	Sessions      map[string][]SessionEntry `json:"sessions"`
	TotalClients  int                       `json:"total_clients"`
	TotalSessions int                       `json:"total_sessions"`
}
