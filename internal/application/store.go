// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"context"
)

// Repository abstracts durable storage for the application registry and the
// user grant table.
//
// Lookups report missing rows via errors satisfying
// errors.Is(err, dberr.ErrNotFound); soft-deleted applications are invisible
// everywhere.
type Repository interface {

	/*
		FindByID retrieves an application by primary key.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Application: The registration
		  - error: dberr.ErrNotFound or database errors
	*/
	FindByID(context context.Context, id string) (*Application, error)

	/*
		FindByCode retrieves an application by its unique client code.

		Description: The lookup the access gate runs on every app-scoped
		login. Active and inactive applications are both returned; the gate
		decides what inactivity means.

		Parameters:
		  - context: context.Context
		  - code: string

		Returns:
		  - *Application: The registration
		  - error: dberr.ErrNotFound or database errors
	*/
	FindByCode(context context.Context, code string) (*Application, error)

	/*
		ListForUser returns every application granted to a user.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Application: Includes inactive applications; may be empty
		  - error: Database errors
	*/
	ListForUser(context context.Context, userID string) ([]*Application, error)

	/*
		List returns a page of registrations, newest first.

		Parameters:
		  - context: context.Context
		  - filter: Filter
		  - limit: int
		  - offset: int

		Returns:
		  - []*Application: Page ordered by created_at DESC
		  - int: Total matching count
		  - error: Database errors
	*/
	List(context context.Context, filter Filter, limit, offset int) ([]*Application, int, error)

	/*
		Create persists a new registration and backfills generated fields.

		Parameters:
		  - context: context.Context
		  - app: *Application (ID may be empty; one is assigned)

		Returns:
		  - error: Conflict on duplicate name or code, or database errors
	*/
	Create(context context.Context, app *Application) error

	/*
		Update applies a partial update and returns the new state.

		Parameters:
		  - context: context.Context
		  - id: string
		  - params: UpdateParams (nil fields unchanged)

		Returns:
		  - *Application: State after the update
		  - error: dberr.ErrNotFound or database errors
	*/
	Update(context context.Context, id string, params UpdateParams) (*Application, error)

	/*
		SoftDelete stamps deleted_at, hiding the registration everywhere.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: dberr.ErrNotFound or database errors
	*/
	SoftDelete(context context.Context, id string) error

	/*
		Grant links a user to an application. Granting twice is a no-op.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - applicationID: string

		Returns:
		  - error: Database errors, including foreign-key failures for
		    unknown ids
	*/
	Grant(context context.Context, userID, applicationID string) error

	/*
		Revoke removes a user's grant. Revoking a missing grant is a no-op.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - applicationID: string

		Returns:
		  - error: Database errors
	*/
	Revoke(context context.Context, userID, applicationID string) error
}
