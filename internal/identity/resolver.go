// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/dberr"
	"github.com/taibuivan/tessera/internal/platform/sec"
)

// # Identity Resolution

// Resolver turns an incoming credential into a verified local user.
//
// It is the single choke point between "the provider says this is person X"
// and "our user row for X". The login flows upstream never touch the user
// tables directly.
type Resolver struct {
	users    UserRepository
	bindings BindingRepository
	avatars  *AvatarService
	logger   *slog.Logger
}

// NewResolver wires a Resolver. The avatar service is optional; a nil value
// disables avatar mirroring without affecting resolution.
func NewResolver(users UserRepository, bindings BindingRepository, avatars *AvatarService, logger *slog.Logger) *Resolver {
	return &Resolver{
		users:    users,
		bindings: bindings,
		avatars:  avatars,
		logger:   logger,
	}
}

/*
ResolvePassword authenticates an email/password pair.

Description: Looks up the user by email, then the email binding keyed by the
address itself, then compares the bcrypt hash. Every failure mode returns the
same InvalidCredentials error so the endpoint cannot be used to probe which
emails are registered.

Parameters:
  - context: context.Context
  - credential: PasswordCredential

Returns:
  - *User: The authenticated account
  - error: apperr.InvalidCredentials on any mismatch, or storage errors
*/
func (resolver *Resolver) ResolvePassword(context context.Context, credential PasswordCredential) (*User, error) {

	// ── 1. User row by email ──
	user, err := resolver.users.FindByEmail(context, credential.Email)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}
	if user.Deleted() {
		return nil, apperr.InvalidCredentials()
	}

	// ── 2. Email binding; the subject id for the email provider is the address ──
	binding, err := resolver.bindings.FindByProviderSubject(context, ProviderEmail, credential.Email)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}
	if binding.PasswordHash == nil {
		return nil, apperr.InvalidCredentials()
	}

	// ── 3. Constant-cost bcrypt comparison ──
	if !sec.CheckPasswordHash(credential.Password, *binding.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	// ── 4. Stamp binding usage ──
	if err := resolver.bindings.TouchLastUsed(context, binding.ID); err != nil {
		resolver.logger.Warn("binding_touch_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

/*
ResolveExternal maps a provider-verified identity onto a local user.

Description: The fast path finds an existing binding for (provider, subject).
When none exists the identity's email is used to locate an already-registered
user and a new binding is linked in place; accounts are never created here.
On first contact with a provider picture the avatar is mirrored into object
storage, best-effort.

Parameters:
  - context: context.Context
  - external: ExternalIdentity (already verified with the provider)

Returns:
  - *User: The resolved account
  - error: apperr.UserNotRegistered when no local account matches, or
    storage errors
*/
func (resolver *Resolver) ResolveExternal(context context.Context, external ExternalIdentity) (*User, error) {
	user, err := resolver.resolveBinding(context, external)
	if err != nil {
		return nil, err
	}

	resolver.mirrorAvatar(context, user, external.Picture)

	return user, nil
}

func (resolver *Resolver) resolveBinding(context context.Context, external ExternalIdentity) (*User, error) {

	// ── 1. Existing binding wins ──
	binding, user, err := resolver.bindings.FindWithUser(context, external.Provider, external.SubjectID)
	if err == nil {
		if user.Deleted() {
			return nil, apperr.UserNotRegistered("User is not registered")
		}
		if touchErr := resolver.bindings.TouchLastUsed(context, binding.ID); touchErr != nil {
			resolver.logger.Warn("binding_touch_failed",
				slog.String("user_id", user.ID),
				slog.String("error", touchErr.Error()),
			)
		}
		return user, nil
	}
	if !errors.Is(err, dberr.ErrNotFound) {
		return nil, err
	}

	// ── 2. No binding: match a registered user by the provider email ──
	if external.Email == "" {
		return nil, apperr.UserNotRegistered("User is not registered")
	}

	user, err = resolver.users.FindByEmail(context, external.Email)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.UserNotRegistered("User is not registered")
		}
		return nil, err
	}
	if user.Deleted() {
		return nil, apperr.UserNotRegistered("User is not registered")
	}

	// ── 3. Auto-link the provider to the existing account ──
	newBinding := &Binding{
		UserID:         user.ID,
		Provider:       external.Provider,
		ProviderUserID: external.SubjectID,
	}
	if err := resolver.bindings.Create(context, newBinding); err != nil {
		return nil, err
	}

	resolver.logger.Info("provider_auto_linked",
		slog.String("user_id", user.ID),
		slog.String("provider", external.Provider),
	)

	return user, nil
}

// mirrorAvatar copies the provider's profile picture into object storage the
// first time an account without an avatar logs in through that provider.
// Any failure is logged and swallowed; login never depends on it. The fetch
// is detached from the request's cancellation and bounded by the avatar
// client's own timeout, so the freshly mirrored path still lands in the
// login response.
func (resolver *Resolver) mirrorAvatar(requestContext context.Context, user *User, picture string) {
	if resolver.avatars == nil || picture == "" {
		return
	}
	if user.AvatarPath != nil && *user.AvatarPath != "" {
		return
	}

	detached := context.WithoutCancel(requestContext)

	path, err := resolver.avatars.SaveFromURL(detached, user.ID, picture)
	if err != nil {
		resolver.logger.Warn("avatar_mirror_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := resolver.users.UpdateAvatarPath(detached, user.ID, path); err != nil {
		resolver.logger.Warn("avatar_path_update_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	user.AvatarPath = &path
}
