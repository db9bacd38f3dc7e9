// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
)

// # Repository Contracts

// UserRepository abstracts durable storage for user accounts.
//
// Lookup methods report a missing row via an error satisfying
// errors.Is(err, dberr.ErrNotFound); callers that treat absence as a normal
// branch (the resolver) test for it explicitly.
type UserRepository interface {

	/*
		FindByID retrieves a user by primary key.

		Description: Soft-deleted rows are invisible to this lookup.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *User: Hydrated account entity
		  - error: dberr.ErrNotFound or database errors
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail retrieves a user by their unique email address.

		Description: The primary entry point of the password branch and the
		auto-link fallback of the external branch. Soft-deleted rows are
		invisible.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated account entity
		  - error: dberr.ErrNotFound or database errors
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		List returns a page of users matching the filter, newest first.

		Parameters:
		  - context: context.Context
		  - filter: Filter (status / role / search, all optional)
		  - limit: int
		  - offset: int

		Returns:
		  - []*User: Page of users ordered by created_at DESC
		  - int: Total matching count before pagination
		  - error: Database errors
	*/
	List(context context.Context, filter Filter, limit, offset int) ([]*User, int, error)

	/*
		UpdateStatus transitions an account's lifecycle status.

		Description: Setting StatusDeleted also stamps deleted_at, making the
		row invisible to every other lookup.

		Parameters:
		  - context: context.Context
		  - id: string
		  - status: string (one of the Status* constants)

		Returns:
		  - error: dberr.ErrNotFound or database errors
	*/
	UpdateStatus(context context.Context, id, status string) error

	/*
		UpdateAvatarPath records the object-storage key of a mirrored avatar.

		Parameters:
		  - context: context.Context
		  - id: string
		  - path: string (object key, e.g. "users/{id}/avatar/x.jpg")

		Returns:
		  - error: dberr.ErrNotFound or database errors
	*/
	UpdateAvatarPath(context context.Context, id, path string) error
}

// BindingRepository abstracts storage for provider bindings.
type BindingRepository interface {

	/*
		FindByProviderSubject retrieves one binding by its unique
		(provider, provider_user_id) pair.

		Parameters:
		  - context: context.Context
		  - provider: string (Provider* constant)
		  - subject: string (provider-scoped user id)

		Returns:
		  - *Binding: The binding row
		  - error: dberr.ErrNotFound or database errors
	*/
	FindByProviderSubject(context context.Context, provider, subject string) (*Binding, error)

	/*
		FindWithUser retrieves a binding together with its (non-deleted) user
		in a single round trip.

		Description: The fast path of external resolution. A binding whose
		user has been soft-deleted is reported as not found.

		Parameters:
		  - context: context.Context
		  - provider: string
		  - subject: string

		Returns:
		  - *Binding: The binding row
		  - *User: The owning account
		  - error: dberr.ErrNotFound or database errors
	*/
	FindWithUser(context context.Context, provider, subject string) (*Binding, *User, error)

	/*
		FindByUserID lists all bindings attached to one user.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Binding: May be empty
		  - error: Database errors
	*/
	FindByUserID(context context.Context, userID string) ([]*Binding, error)

	/*
		Create persists a new binding and backfills its generated id and
		timestamps.

		Parameters:
		  - context: context.Context
		  - binding: *Binding

		Returns:
		  - error: Conflict on duplicate (provider, provider_user_id), or
		    database errors
	*/
	Create(context context.Context, binding *Binding) error

	/*
		TouchLastUsed stamps last_used_at with the current time.

		Description: Called on every successful authentication through the
		binding. Failures are surfaced but callers treat them as best-effort.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - error: Database errors
	*/
	TouchLastUsed(context context.Context, id int64) error
}
