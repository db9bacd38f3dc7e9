// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"context"
	"errors"

	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/dberr"
)

// # Access Gate

// Gate decides whether a resolved user may enter a requested application.
// Every app-scoped login passes through it exactly once, between identity
// resolution and token issuance.
type Gate struct {
	repository Repository
}

// NewGate wires a Gate over the application repository.
func NewGate(repository Repository) *Gate {
	return &Gate{repository: repository}
}

/*
Authorize validates a user's access to a client application.

Description: A missing client code means an SSO-only login; the gate approves
it without touching storage and returns nil. Otherwise the code must resolve
to an active application granted to the user. Inactive and unknown codes are
deliberately indistinguishable.

Parameters:
  - context: context.Context
  - userID: string
  - clientID: string (application code; empty for SSO-only)

Returns:
  - *Application: The validated application, or nil for SSO-only
  - error: apperr.AppNotFound, apperr.AppNotPermitted, or storage errors
*/
func (gate *Gate) Authorize(context context.Context, userID, clientID string) (*Application, error) {
	if clientID == "" {
		return nil, nil
	}

	app, err := gate.repository.FindByCode(context, clientID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.AppNotFound(clientID)
		}
		return nil, err
	}
	if !app.IsActive {
		return nil, apperr.AppNotFound(clientID)
	}

	granted, err := gate.repository.ListForUser(context, userID)
	if err != nil {
		return nil, err
	}
	for _, candidate := range granted {
		if candidate.ID == app.ID {
			return app, nil
		}
	}

	return nil, apperr.AppNotPermitted(clientID)
}

/*
AllowedApps projects a user's active applications for responses and token
claims.

Description: Inactive applications are filtered out here, so a deactivated
app disappears from allowed_apps on the next token issuance without any
grant-table change.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []AllowedApp: Response projection (id, code, name, base_url)
  - []string: Just the codes, in the same order, for JWT claims
  - error: Storage errors
*/
func (gate *Gate) AllowedApps(context context.Context, userID string) ([]AllowedApp, []string, error) {
	granted, err := gate.repository.ListForUser(context, userID)
	if err != nil {
		return nil, nil, err
	}

	apps := make([]AllowedApp, 0, len(granted))
	codes := make([]string, 0, len(granted))
	for _, app := range granted {
		if !app.IsActive {
			continue
		}
		apps = append(apps, AllowedApp{
			ID:      app.ID,
			Code:    app.Code,
			Name:    app.Name,
			BaseURL: app.BaseURL,
		})
		codes = append(codes, app.Code)
	}

	return apps, codes, nil
}
