// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tessera/internal/application"
	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/dberr"
)

// stubRepository serves a fixed registry from memory. Only the read paths the
// gate exercises are implemented.
type stubRepository struct {
	byCode map[string]*application.Application
	grants map[string][]string // userID -> granted application ids
}

func (s *stubRepository) FindByCode(_ context.Context, code string) (*application.Application, error) {
	app, ok := s.byCode[code]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return app, nil
}

func (s *stubRepository) ListForUser(_ context.Context, userID string) ([]*application.Application, error) {
	var apps []*application.Application
	for _, id := range s.grants[userID] {
		for _, app := range s.byCode {
			if app.ID == id {
				apps = append(apps, app)
			}
		}
	}
	return apps, nil
}

func (s *stubRepository) FindByID(context.Context, string) (*application.Application, error) {
	return nil, dberr.ErrNotFound
}

func (s *stubRepository) List(context.Context, application.Filter, int, int) ([]*application.Application, int, error) {
	return nil, 0, nil
}

func (s *stubRepository) Create(context.Context, *application.Application) error { return nil }

func (s *stubRepository) Update(context.Context, string, application.UpdateParams) (*application.Application, error) {
	return nil, dberr.ErrNotFound
}

func (s *stubRepository) SoftDelete(context.Context, string) error  { return nil }
func (s *stubRepository) Grant(context.Context, string, string) error  { return nil }
func (s *stubRepository) Revoke(context.Context, string, string) error { return nil }

func newTestGate() *application.Gate {
	repository := &stubRepository{
		byCode: map[string]*application.Application{
			"field-ops": {ID: "app-1", Code: "field-ops", Name: "Field Ops", BaseURL: "https://field.example.com", IsActive: true, SingleSession: true},
			"back-office": {ID: "app-2", Code: "back-office", Name: "Back Office", BaseURL: "https://office.example.com", IsActive: true},
			"legacy-portal": {ID: "app-3", Code: "legacy-portal", Name: "Legacy Portal", IsActive: false},
		},
		grants: map[string][]string{
			"user-1": {"app-1", "app-3"},
			"user-2": {"app-2"},
		},
	}
	return application.NewGate(repository)
}

/*
TestGate_Authorize verifies the access decision for each class of client id:
absent, unknown, inactive, ungranted, and granted.
*/
func TestGate_Authorize(t *testing.T) {
	gate := newTestGate()
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   string
		clientID string
		wantCode string // expected error code, "" for success
		wantApp  string // expected application id on success
	}{
		{
			name:     "absent client id means SSO-only",
			userID:   "user-1",
			clientID: "",
		},
		{
			name:     "unknown code",
			userID:   "user-1",
			clientID: "no-such-app",
			wantCode: "APP_NOT_FOUND",
		},
		{
			name:     "inactive application looks missing even when granted",
			userID:   "user-1",
			clientID: "legacy-portal",
			wantCode: "APP_NOT_FOUND",
		},
		{
			name:     "active but not granted",
			userID:   "user-1",
			clientID: "back-office",
			wantCode: "APP_NOT_PERMITTED",
		},
		{
			name:     "granted and active",
			userID:   "user-1",
			clientID: "field-ops",
			wantApp:  "app-1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, err := gate.Authorize(ctx, tc.userID, tc.clientID)

			if tc.wantCode != "" {
				require.Error(t, err)
				appErr := apperr.As(err)
				require.NotNil(t, appErr)
				assert.Equal(t, tc.wantCode, appErr.Code)
				assert.Nil(t, app)
				return
			}

			require.NoError(t, err)
			if tc.wantApp == "" {
				assert.Nil(t, app, "SSO-only must return no application")
				return
			}
			require.NotNil(t, app)
			assert.Equal(t, tc.wantApp, app.ID)
			assert.True(t, app.SingleSession)
		})
	}
}

/*
TestGate_AllowedApps verifies the projection drops inactive applications and
keeps codes aligned with the detailed entries.
*/
func TestGate_AllowedApps(t *testing.T) {
	gate := newTestGate()

	apps, codes, err := gate.AllowedApps(context.Background(), "user-1")
	require.NoError(t, err)

	// app-3 is granted but inactive.
	require.Len(t, apps, 1)
	assert.Equal(t, "field-ops", apps[0].Code)
	assert.Equal(t, "Field Ops", apps[0].Name)
	assert.Equal(t, "https://field.example.com", apps[0].BaseURL)
	assert.Equal(t, []string{"field-ops"}, codes)

	apps, codes, err = gate.AllowedApps(context.Background(), "user-without-grants")
	require.NoError(t, err)
	assert.Empty(t, apps)
	assert.Empty(t, codes)
}
