// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package application manages the registry of downstream applications and the
access gate that decides which users may log in to which of them.

# Architecture

Applications are the "clients" of the SSO authority. Each carries a unique
machine-readable code (the client_id presented at login), a single_session
flag constraining concurrent devices, and an is_active switch that removes it
from every authentication path without deleting it.

The access gate is consulted on every app-scoped login; the admin surface
mutates the registry and the per-user grant table.
*/
package application

import (
	"time"
)

// # Domain Entities

// Application is one registered downstream client of the authority.
type Application struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description,omitempty"`
	BaseURL     string  `json:"base_url"`
	ImgPath     *string `json:"img_path,omitempty"`
	IconPath    *string `json:"icon_path,omitempty"`

	// IsActive gates authentication: an inactive application is reported as
	// not found to login attempts but stays visible on the admin surface.
	IsActive bool `json:"is_active"`

	// SingleSession restricts the application to one device per user.
	SingleSession bool `json:"single_session"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// AllowedApp is the minimal projection of an application embedded in login
// responses and user detail views.
type AllowedApp struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	BaseURL string `json:"base_url,omitempty"`
}

// # Mutation Inputs

// CreateParams carries the fields of a new registration.
type CreateParams struct {
	Name          string
	Code          string
	Description   *string
	BaseURL       string
	IsActive      bool
	SingleSession bool
}

// UpdateParams is a partial update; nil fields keep their current value.
type UpdateParams struct {
	Name          *string
	Description   *string
	BaseURL       *string
	ImgPath       *string
	IconPath      *string
	IsActive      *bool
	SingleSession *bool
}

// # List Filtering

// Filter narrows the admin application listing.
type Filter struct {
	// IsActive filters on the active flag when non-nil.
	IsActive *bool
}
