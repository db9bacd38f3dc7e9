// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/tessera/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations carry a SQLSTATE we can classify
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(uniqueViolationMessage(pgErr.ConstraintName))
		case pgerrcode.ForeignKeyViolation:
			return apperr.Conflict("Related resource does not exist")
		case pgerrcode.NotNullViolation:
			return apperr.ValidationError("A required field is missing")
		case pgerrcode.CheckViolation:
			return apperr.ValidationError("A field violates a data constraint")
		}
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// uniqueViolationMessage maps well-known constraint names onto client-safe
// messages, falling back to a generic duplicate notice.
func uniqueViolationMessage(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return "Email is already registered"
	case strings.Contains(constraint, "phone"):
		return "Phone number is already registered"
	case strings.Contains(constraint, "code"):
		return "Application code is already taken"
	case strings.Contains(constraint, "name"):
		return "Name is already taken"
	case strings.Contains(constraint, "provider"):
		return "This provider identity is already linked"
	default:
		return "Resource already exists"
	}
}
