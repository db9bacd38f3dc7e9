// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity implements the user identity layer of the SSO authority.

It defines the core domain entities (User, Binding) and the resolution logic
that turns an incoming credential (password, Google OAuth code, Firebase ID
token) into a verified local user record.

# Architecture

This layer is the "Truth" of the system. Users are durable Postgres rows
managed by an external admin plane; this service authenticates them but never
creates them. Provider bindings are the one exception: a verified external
identity arriving with an email already known to us is linked in place.

# Resolution Policy

Every resolution branch only ever returns non-deleted users. The password
branch collapses all failure modes into a single InvalidCredentials error so
that callers cannot probe which accounts exist.
*/
package identity

import (
	"time"

	"github.com/taibuivan/tessera/internal/platform/sec"
)

// # Provider Kinds

// Values stored in auth_providers.provider. The provider plus its
// provider_user_id form the unique lookup key for a binding.
const (
	ProviderEmail    = "email"
	ProviderGoogle   = "google"
	ProviderFirebase = "firebase"
	ProviderApple    = "apple"
	ProviderPhone    = "phone"
	ProviderGithub   = "github"
)

// # Account Status

// Values stored in users.status. Only active users may log in.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// # Domain Entities

// User represents a registered account of the SSO authority.
//
// Email and phone are both optional but unique when present: accounts
// provisioned from phone-first channels may carry no email at all.
type User struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`

	// AvatarPath is the object-storage key of the mirrored avatar. Clients
	// receive a signed URL instead; the raw key never leaves the service.
	AvatarPath *string `json:"-"`

	Status string       `json:"status"`
	Role   sec.UserRole `json:"role"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Deleted reports whether the account is soft-deleted. Authentication paths
// must never surface a deleted user, even when a row carries the status
// without the timestamp.
func (u *User) Deleted() bool {
	return u.Status == StatusDeleted || u.DeletedAt != nil
}

// Binding links a user to one credential at one identity provider.
//
// For the email provider the ProviderUserID is the email address itself and
// PasswordHash carries the bcrypt digest. External providers store the
// provider-issued subject id and no hash.
type Binding struct {
	ID             int64   `json:"id"`
	UserID         string  `json:"user_id"`
	Provider       string  `json:"provider"`
	ProviderUserID string  `json:"provider_user_id"`
	PasswordHash   *string `json:"-"`

	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// # Credential Inputs

// PasswordCredential is the input to the email/password resolution branch.
type PasswordCredential struct {
	Email    string
	Password string
}

// ExternalIdentity is a provider-verified identity: the output of Google code
// exchange or Firebase ID-token verification, normalized to the fields the
// resolver needs.
type ExternalIdentity struct {
	// Provider is one of the Provider* constants above.
	Provider string

	// SubjectID is the provider's stable user id (Google sub, Firebase uid).
	SubjectID string

	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// # List Filtering

// Filter narrows the admin user listing. Zero values mean "no constraint".
type Filter struct {
	Status string
	Role   string

	// Search matches name or email, case-insensitively, as a substring.
	Search string
}
