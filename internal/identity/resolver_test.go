// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tessera/internal/identity"
	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/dberr"
	"github.com/taibuivan/tessera/internal/platform/sec"
	"github.com/taibuivan/tessera/pkg/pointer"
)

// stubUserRepository serves users by id and email from memory.
type stubUserRepository struct {
	users       map[string]*identity.User // by id
	avatarPaths map[string]string         // records UpdateAvatarPath calls
}

func (s *stubUserRepository) FindByID(_ context.Context, id string) (*identity.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, dberr.ErrNotFound
}

func (s *stubUserRepository) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, user := range s.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (s *stubUserRepository) List(context.Context, identity.Filter, int, int) ([]*identity.User, int, error) {
	return nil, 0, nil
}

func (s *stubUserRepository) UpdateStatus(context.Context, string, string) error { return nil }

func (s *stubUserRepository) UpdateAvatarPath(_ context.Context, id, path string) error {
	if s.avatarPaths == nil {
		s.avatarPaths = map[string]string{}
	}
	s.avatarPaths[id] = path
	return nil
}

// stubBindingRepository serves bindings keyed by provider:subject.
type stubBindingRepository struct {
	users    *stubUserRepository
	bindings map[string]*identity.Binding // "provider:subject"
	touched  []int64
	created  []*identity.Binding
}

func bindingKey(provider, subject string) string { return provider + ":" + subject }

func (s *stubBindingRepository) FindByProviderSubject(_ context.Context, provider, subject string) (*identity.Binding, error) {
	if binding, ok := s.bindings[bindingKey(provider, subject)]; ok {
		return binding, nil
	}
	return nil, dberr.ErrNotFound
}

func (s *stubBindingRepository) FindWithUser(ctx context.Context, provider, subject string) (*identity.Binding, *identity.User, error) {
	binding, err := s.FindByProviderSubject(ctx, provider, subject)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.FindByID(ctx, binding.UserID)
	if err != nil {
		return nil, nil, err
	}
	return binding, user, nil
}

func (s *stubBindingRepository) FindByUserID(context.Context, string) ([]*identity.Binding, error) {
	return nil, nil
}

func (s *stubBindingRepository) Create(_ context.Context, binding *identity.Binding) error {
	binding.ID = int64(len(s.bindings) + 1)
	s.bindings[bindingKey(binding.Provider, binding.ProviderUserID)] = binding
	s.created = append(s.created, binding)
	return nil
}

func (s *stubBindingRepository) TouchLastUsed(_ context.Context, id int64) error {
	s.touched = append(s.touched, id)
	return nil
}

func newTestResolver(t *testing.T) (*identity.Resolver, *stubUserRepository, *stubBindingRepository) {
	t.Helper()

	passwordHash, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	users := &stubUserRepository{
		users: map[string]*identity.User{
			"user-1": {
				ID:     "user-1",
				Name:   "Ayu Lestari",
				Email:  pointer.To("ayu@example.com"),
				Status: identity.StatusActive,
				Role:   sec.RoleUser,
			},
			"user-2": {
				ID:     "user-2",
				Name:   "Budi Santoso",
				Email:  pointer.To("budi@example.com"),
				Status: identity.StatusActive,
				Role:   sec.RoleAdmin,
			},
		},
	}
	bindings := &stubBindingRepository{
		users: users,
		bindings: map[string]*identity.Binding{
			bindingKey(identity.ProviderEmail, "ayu@example.com"): {
				ID:             1,
				UserID:         "user-1",
				Provider:       identity.ProviderEmail,
				ProviderUserID: "ayu@example.com",
				PasswordHash:   &passwordHash,
			},
			bindingKey(identity.ProviderGoogle, "google-sub-1"): {
				ID:             2,
				UserID:         "user-1",
				Provider:       identity.ProviderGoogle,
				ProviderUserID: "google-sub-1",
			},
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return identity.NewResolver(users, bindings, nil, logger), users, bindings
}

/*
TestResolver_Password verifies the password branch returns the user on a
correct pair and collapses every failure mode into the same error code.
*/
func TestResolver_Password(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		resolver, _, bindings := newTestResolver(t)

		user, err := resolver.ResolvePassword(ctx, identity.PasswordCredential{
			Email:    "ayu@example.com",
			Password: "correct horse battery staple",
		})
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, []int64{1}, bindings.touched, "successful login must stamp the binding")
	})

	failures := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "whatever"},
		{"wrong password", "ayu@example.com", "not the password"},
		{"user without email binding", "budi@example.com", "whatever"},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			resolver, _, bindings := newTestResolver(t)

			user, err := resolver.ResolvePassword(ctx, identity.PasswordCredential{
				Email:    tc.email,
				Password: tc.password,
			})
			require.Error(t, err)
			assert.Nil(t, user)

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
			assert.Empty(t, bindings.touched)
		})
	}

	t.Run("binding without stored hash", func(t *testing.T) {
		resolver, _, bindings := newTestResolver(t)
		bindings.bindings[bindingKey(identity.ProviderEmail, "ayu@example.com")].PasswordHash = nil

		_, err := resolver.ResolvePassword(ctx, identity.PasswordCredential{
			Email:    "ayu@example.com",
			Password: "correct horse battery staple",
		})
		require.Error(t, err)
		assert.Equal(t, "INVALID_CREDENTIALS", apperr.As(err).Code)
	})

	t.Run("soft deleted user", func(t *testing.T) {
		resolver, users, _ := newTestResolver(t)
		users.users["user-1"].Status = identity.StatusDeleted

		_, err := resolver.ResolvePassword(ctx, identity.PasswordCredential{
			Email:    "ayu@example.com",
			Password: "correct horse battery staple",
		})
		require.Error(t, err)
		assert.Equal(t, "INVALID_CREDENTIALS", apperr.As(err).Code)
	})
}

/*
TestResolver_External verifies the three-step external resolution order:
existing binding, email auto-link, then rejection.
*/
func TestResolver_External(t *testing.T) {
	ctx := context.Background()

	t.Run("existing binding wins", func(t *testing.T) {
		resolver, _, bindings := newTestResolver(t)

		user, err := resolver.ResolveExternal(ctx, identity.ExternalIdentity{
			Provider:  identity.ProviderGoogle,
			SubjectID: "google-sub-1",
			// A different email on purpose: the binding takes precedence.
			Email: "someone-else@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, []int64{2}, bindings.touched)
		assert.Empty(t, bindings.created)
	})

	t.Run("auto-link by email", func(t *testing.T) {
		resolver, _, bindings := newTestResolver(t)

		user, err := resolver.ResolveExternal(ctx, identity.ExternalIdentity{
			Provider:  identity.ProviderFirebase,
			SubjectID: "firebase-uid-9",
			Email:     "budi@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "user-2", user.ID)

		require.Len(t, bindings.created, 1)
		assert.Equal(t, identity.ProviderFirebase, bindings.created[0].Provider)
		assert.Equal(t, "firebase-uid-9", bindings.created[0].ProviderUserID)
		assert.Equal(t, "user-2", bindings.created[0].UserID)

		// The linked binding now resolves directly.
		again, err := resolver.ResolveExternal(ctx, identity.ExternalIdentity{
			Provider:  identity.ProviderFirebase,
			SubjectID: "firebase-uid-9",
		})
		require.NoError(t, err)
		assert.Equal(t, "user-2", again.ID)
	})

	t.Run("no email and no binding", func(t *testing.T) {
		resolver, _, _ := newTestResolver(t)

		_, err := resolver.ResolveExternal(ctx, identity.ExternalIdentity{
			Provider:  identity.ProviderFirebase,
			SubjectID: "firebase-uid-unknown",
		})
		require.Error(t, err)
		assert.Equal(t, "USER_NOT_REGISTERED", apperr.As(err).Code)
	})

	t.Run("email not registered", func(t *testing.T) {
		resolver, _, bindings := newTestResolver(t)

		_, err := resolver.ResolveExternal(ctx, identity.ExternalIdentity{
			Provider:  identity.ProviderGoogle,
			SubjectID: "google-sub-new",
			Email:     "stranger@example.com",
		})
		require.Error(t, err)
		assert.Equal(t, "USER_NOT_REGISTERED", apperr.As(err).Code)
		assert.Empty(t, bindings.created, "no binding may be linked for unknown users")
	})

	t.Run("soft deleted user behind binding", func(t *testing.T) {
		resolver, users, _ := newTestResolver(t)
		now := users.users["user-1"].CreatedAt
		users.users["user-1"].DeletedAt = &now

		_, err := resolver.ResolveExternal(ctx, identity.ExternalIdentity{
			Provider:  identity.ProviderGoogle,
			SubjectID: "google-sub-1",
		})
		require.Error(t, err)
		assert.Equal(t, "USER_NOT_REGISTERED", apperr.As(err).Code)
	})
}
