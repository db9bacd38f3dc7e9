// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/dberr"
	"github.com/taibuivan/tessera/pkg/pagination"
	"github.com/taibuivan/tessera/pkg/slug"
)

// # Registry Administration

// Service implements the admin operations over the application registry.
type Service struct {
	repository Repository
	logger     *slog.Logger
}

// NewService wires the registry admin service.
func NewService(repository Repository, logger *slog.Logger) *Service {
	return &Service{repository: repository, logger: logger}
}

// Get returns one registration by id.
func (service *Service) Get(context context.Context, id string) (*Application, error) {
	app, err := service.repository.FindByID(context, id)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("Application")
		}
		return nil, err
	}
	return app, nil
}

// List returns one page of registrations plus pagination metadata.
func (service *Service) List(context context.Context, filter Filter, params pagination.Params) ([]*Application, pagination.Meta, error) {
	apps, total, err := service.repository.List(context, filter, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return apps, pagination.NewMeta(params.Page, params.Limit, total), nil
}

/*
Create registers a new downstream application.

Description: An empty code is derived from the name by slugification. The
code must be unique; a duplicate is reported as a Conflict before the insert
so the client sees a targeted message rather than a constraint error.

Parameters:
  - context: context.Context
  - params: CreateParams

Returns:
  - *Application: The persisted registration
  - error: apperr.Conflict on duplicate code, or storage errors
*/
func (service *Service) Create(context context.Context, params CreateParams) (*Application, error) {
	if params.Code == "" {
		params.Code = slug.From(params.Name)
	}

	if _, err := service.repository.FindByCode(context, params.Code); err == nil {
		return nil, apperr.Conflict("An application with this code already exists")
	} else if !errors.Is(err, dberr.ErrNotFound) {
		return nil, err
	}

	app := &Application{
		Name:          params.Name,
		Code:          params.Code,
		Description:   params.Description,
		BaseURL:       params.BaseURL,
		IsActive:      params.IsActive,
		SingleSession: params.SingleSession,
	}
	if err := service.repository.Create(context, app); err != nil {
		return nil, err
	}

	service.logger.Info("application_created",
		slog.String("application_id", app.ID),
		slog.String("code", app.Code),
	)

	return app, nil
}

// Update applies a partial update to one registration.
func (service *Service) Update(context context.Context, id string, params UpdateParams) (*Application, error) {
	app, err := service.repository.Update(context, id, params)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("Application")
		}
		return nil, err
	}

	service.logger.Info("application_updated", slog.String("application_id", app.ID))
	return app, nil
}

// Delete soft-deletes a registration. Existing sessions for the application
// survive until they expire; only new logins are blocked.
func (service *Service) Delete(context context.Context, id string) error {
	if err := service.repository.SoftDelete(context, id); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.NotFound("Application")
		}
		return err
	}

	service.logger.Info("application_deleted", slog.String("application_id", id))
	return nil
}

// GrantUser allows a user to log in to an application. Granting twice is
// idempotent.
func (service *Service) GrantUser(context context.Context, applicationID, userID string) error {
	if _, err := service.repository.FindByID(context, applicationID); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.NotFound("Application")
		}
		return err
	}

	if err := service.repository.Grant(context, userID, applicationID); err != nil {
		return err
	}

	service.logger.Info("application_granted",
		slog.String("application_id", applicationID),
		slog.String("user_id", userID),
	)
	return nil
}

// RevokeUser withdraws a user's access. Live sessions are untouched; the app
// disappears from allowed_apps at the next token issuance.
func (service *Service) RevokeUser(context context.Context, applicationID, userID string) error {
	if _, err := service.repository.FindByID(context, applicationID); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.NotFound("Application")
		}
		return err
	}

	if err := service.repository.Revoke(context, userID, applicationID); err != nil {
		return err
	}

	service.logger.Info("application_revoked",
		slog.String("application_id", applicationID),
		slog.String("user_id", userID),
	)
	return nil
}
