// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
)

// # Application Session Data Access

// AppSessionRepository defines the data access contract for per-device
// application sessions. With the single exception of Create under a
// single-session conflict, operations never fail on missing sessions:
// deletion is idempotent and enumeration skips expired records.
type AppSessionRepository interface {

	/*
		Create opens a session for a (user, client, device) triple and
		returns the effective device id, assigning one when absent.

		Description: Applies the application's session policy. For a
		single-session app, any live session on a different device rejects
		the login with apperr.AlreadyLoggedInElsewhere; a session on the
		same device is replaced. For a multi-session app the same device is
		replaced, and when the concurrent-session cap is reached on a new
		device the least recently active session is evicted first.

		Parameters:
		  - context: context.Context
		  - params: CreateParams

		Returns:
		  - string: Effective device id
		  - error: apperr.AlreadyLoggedInElsewhere or storage failures
	*/
	Create(context context.Context, params CreateParams) (string, error)

	/*
		Get returns the session for the exact triple, or nil when no live
		session exists.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - clientID: string
		  - deviceID: string

		Returns:
		  - *AppSession: Hydrated record, nil when absent
		  - error: Storage failures only
	*/
	Get(context context.Context, userID, clientID, deviceID string) (*AppSession, error)

	/*
		ValidateRefresh reports whether the presented refresh token matches
		the hash stored for the triple.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - clientID: string
		  - deviceID: string
		  - refreshToken: string

		Returns:
		  - bool: true iff a session exists and the hashes match
		  - error: Storage failures only
	*/
	ValidateRefresh(context context.Context, userID, clientID, deviceID, refreshToken string) (bool, error)

	/*
		Update rewrites the session with a fresh last-activity timestamp,
		optionally rotating the refresh-token hash or push token, and
		re-arms the full TTL.

		Parameters:
		  - context: context.Context
		  - params: UpdateParams

		Returns:
		  - bool: false when no session exists for the triple
		  - error: Storage failures only
	*/
	Update(context context.Context, params UpdateParams) (bool, error)

	/*
		DeleteDevice removes one device session and its index entries.
		Removing an absent session is not an error.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - clientID: string
		  - deviceID: string

		Returns:
		  - error: Storage failures only
	*/
	DeleteDevice(context context.Context, userID, clientID, deviceID string) error

	/*
		DeleteClient removes every device session for a (user, client) pair.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - clientID: string

		Returns:
		  - int: Number of sessions removed
		  - error: Storage failures only
	*/
	DeleteClient(context context.Context, userID, clientID string) (int, error)

	/*
		DeleteAll removes every session the user holds across all clients.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - int: Number of sessions removed
		  - error: Storage failures only
	*/
	DeleteAll(context context.Context, userID string) (int, error)

	/*
		ListByClient enumerates live sessions for a (user, client) pair.

		Description: Reads the device index then each primary record.
		Index members whose primaries have expired are pruned in passing.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - clientID: string

		Returns:
		  - []*AppSession: Live sessions, empty slice when none
		  - error: Storage failures only
	*/
	ListByClient(context context.Context, userID, clientID string) ([]*AppSession, error)

	/*
		ListAll enumerates every live session the user holds.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*AppSession: Live sessions, empty slice when none
		  - error: Storage failures only
	*/
	ListAll(context context.Context, userID string) ([]*AppSession, error)
}

// # SSO Session Data Access

// SSOSessionRepository defines the data access contract for the per-user
// global SSO session and its reverse token index.
type SSOSessionRepository interface {

	/*
		Create mints a fresh SSO token for the user, replacing any session
		that already exists. The returned plain token is visible only here;
		storage keeps its hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - ipAddress: string

		Returns:
		  - string: The plain SSO token
		  - error: Storage failures
	*/
	Create(context context.Context, userID, ipAddress string) (string, error)

	/*
		Validate resolves an SSO token to its session record, or nil when
		the token is unknown, expired, or superseded.

		Description: A successful validation bumps last_activity while
		PRESERVING the remaining TTL; validation never extends a session.

		Parameters:
		  - context: context.Context
		  - ssoToken: string

		Returns:
		  - *SSOSession: Hydrated record, nil when invalid
		  - error: Storage failures only
	*/
	Validate(context context.Context, ssoToken string) (*SSOSession, error)

	/*
		Delete removes the user's SSO session and its reverse token index.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - bool: false when no session existed
		  - error: Storage failures only
	*/
	Delete(context context.Context, userID string) (bool, error)

	/*
		Refresh validates the token and mints a replacement session for the
		same user, rotating the token and re-arming the full TTL.

		Parameters:
		  - context: context.Context
		  - ssoToken: string

		Returns:
		  - string: New plain SSO token, empty when the old one is invalid
		  - error: Storage failures only
	*/
	Refresh(context context.Context, ssoToken string) (string, error)
}
