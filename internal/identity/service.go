// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/taibuivan/tessera/internal/application"
	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/dberr"
	"github.com/taibuivan/tessera/internal/platform/sec"
	"github.com/taibuivan/tessera/pkg/pagination"
	"github.com/taibuivan/tessera/pkg/slice"
)

// # User Administration

// Service implements the read and lifecycle operations of the user admin
// surface. Account creation itself lives in an external provisioning plane;
// this service only observes and transitions what exists.
type Service struct {
	users    UserRepository
	bindings BindingRepository
	gate     *application.Gate
	avatars  *AvatarService
	logger   *slog.Logger
}

// NewService wires the user admin service. The avatar service may be nil,
// which disables signed avatar URLs in responses.
func NewService(users UserRepository, bindings BindingRepository, gate *application.Gate, avatars *AvatarService, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		bindings: bindings,
		gate:     gate,
		avatars:  avatars,
		logger:   logger,
	}
}

// # Response Views

// ListItem is the flat per-row projection of the user listing.
type ListItem struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     *string      `json:"email,omitempty"`
	Phone     *string      `json:"phone,omitempty"`
	AvatarURL string       `json:"avatar_url,omitempty"`
	Status    string       `json:"status"`
	Role      sec.UserRole `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
}

// Detail is the full user view with joined data.
type Detail struct {
	ListItem

	UpdatedAt   time.Time                `json:"updated_at"`
	AllowedApps []application.AllowedApp `json:"allowed_apps"`
	Providers   []*Binding               `json:"providers,omitempty"`
}

// # Operations

// List returns one page of users plus pagination metadata.
func (service *Service) List(context context.Context, filter Filter, params pagination.Params) ([]ListItem, pagination.Meta, error) {
	users, total, err := service.users.List(context, filter, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	items := slice.Map(users, func(user *User) ListItem {
		return service.listItem(context, user)
	})

	return items, pagination.NewMeta(params.Page, params.Limit, total), nil
}

/*
Get returns the detailed view of one user.

Description: Joins the active allowed applications and the provider bindings
onto the base row. The avatar is exposed as a time-limited signed URL, never
as a raw object key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Detail: Full user view
  - error: apperr.NotFound or storage errors
*/
func (service *Service) Get(context context.Context, id string) (*Detail, error) {
	user, err := service.users.FindByID(context, id)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, err
	}

	allowedApps, _, err := service.gate.AllowedApps(context, user.ID)
	if err != nil {
		return nil, err
	}

	providers, err := service.bindings.FindByUserID(context, user.ID)
	if err != nil {
		return nil, err
	}

	return &Detail{
		ListItem:    service.listItem(context, user),
		UpdatedAt:   user.UpdatedAt,
		AllowedApps: allowedApps,
		Providers:   providers,
	}, nil
}

/*
UpdateStatus transitions a user's lifecycle status.

Description: The only mutation this surface offers. Setting "deleted" is the
soft delete: the row is stamped and disappears from all lookups, and the
user's credentials stop resolving at the next login attempt. Live sessions
are untouched and expire on their own schedule.

Parameters:
  - context: context.Context
  - id: string
  - status: string (one of the Status* constants)

Returns:
  - *Detail: State after the transition (nil when status was "deleted")
  - error: apperr.NotFound or storage errors
*/
func (service *Service) UpdateStatus(context context.Context, id, status string) (*Detail, error) {
	if err := service.users.UpdateStatus(context, id, status); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, err
	}

	service.logger.Info("user_status_updated",
		slog.String("user_id", id),
		slog.String("status", status),
	)

	if status == StatusDeleted {
		return nil, nil
	}

	return service.Get(context, id)
}

// listItem builds the flat projection, resolving the avatar key to a signed
// URL when an avatar service is wired.
func (service *Service) listItem(context context.Context, user *User) ListItem {
	item := ListItem{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Status:    user.Status,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
	if service.avatars != nil && user.AvatarPath != nil {
		item.AvatarURL = service.avatars.SignedURL(context, *user.AvatarPath)
	}
	return item
}
