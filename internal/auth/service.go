// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taibuivan/tessera/internal/application"
	"github.com/taibuivan/tessera/internal/identity"
	"github.com/taibuivan/tessera/internal/platform/apperr"
	"github.com/taibuivan/tessera/internal/platform/constants"
	"github.com/taibuivan/tessera/internal/platform/dberr"
	"github.com/taibuivan/tessera/internal/platform/event"
	"github.com/taibuivan/tessera/internal/platform/metrics"
	"github.com/taibuivan/tessera/internal/platform/sec"
	"github.com/taibuivan/tessera/internal/session"
	"github.com/taibuivan/tessera/pkg/pointer"
	"github.com/taibuivan/tessera/pkg/slice"
)

// Metric operation labels; one per exported flow.
const (
	operationLogin    = "login"
	operationExchange = "exchange"
	operationRefresh  = "refresh"
	operationLogout   = "logout"
	operationValidate = "validate"
)

// Deps bundles the collaborators of the flow orchestrator. Google, Firebase,
// Avatars, Events, and Metrics are optional; a nil value disables the
// corresponding capability without affecting the rest.
type Deps struct {
	Resolver    *identity.Resolver
	Users       identity.UserRepository
	Gate        *application.Gate
	Tokens      *sec.TokenService
	Sessions    session.AppSessionRepository
	SSOSessions session.SSOSessionRepository
	Google      *identity.GoogleProvider
	Firebase    *identity.FirebaseVerifier
	Avatars     *identity.AvatarService
	Events      *event.Publisher
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Service is the login / exchange / refresh / logout state machine.
//
// # Review Process
//
// This service is critical for security. Any changes to the issuing
// sequence, refresh routing, or logout scoping must be reviewed by the
// security team.
type Service struct {
	resolver    *identity.Resolver
	users       identity.UserRepository
	gate        *application.Gate
	tokens      *sec.TokenService
	sessions    session.AppSessionRepository
	ssoSessions session.SSOSessionRepository
	google      *identity.GoogleProvider
	firebase    *identity.FirebaseVerifier
	avatars     *identity.AvatarService
	events      *event.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewService constructs a new [Service] from its dependency bundle.
func NewService(deps Deps) *Service {
	return &Service{
		resolver:    deps.Resolver,
		users:       deps.Users,
		gate:        deps.Gate,
		tokens:      deps.Tokens,
		sessions:    deps.Sessions,
		ssoSessions: deps.SSOSessions,
		google:      deps.Google,
		firebase:    deps.Firebase,
		avatars:     deps.Avatars,
		events:      deps.Events,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// # Login Flows

/*
LoginWithPassword authenticates an email/password pair and opens sessions.

Description: Resolves the credential through the identity resolver, then
runs the shared issuing sequence: client gate, SSO session rotation, token
signing, and app session creation when a client was targeted.

Parameters:
  - context: context.Context
  - credential: identity.PasswordCredential
  - params: LoginParams

Returns:
  - *LoginOutcome: Tokens plus the user snapshot
  - error: apperr.InvalidCredentials, gate errors, or storage failures
*/
func (service *Service) LoginWithPassword(context context.Context, credential identity.PasswordCredential, params LoginParams) (*LoginOutcome, error) {
	outcome, err := service.loginPassword(context, credential, params)
	service.record(operationLogin, err)
	return outcome, err
}

func (service *Service) loginPassword(context context.Context, credential identity.PasswordCredential, params LoginParams) (*LoginOutcome, error) {
	user, err := service.resolver.ResolvePassword(context, credential)
	if err != nil {
		return nil, err
	}
	return service.completeLogin(context, user, identity.ProviderEmail, params)
}

/*
LoginWithFirebase authenticates a Firebase ID token and opens sessions.

Description: Verifies the token against the Firebase project's published
keys, resolves the subject to a local user (auto-linking the provider when
the email is already registered), then runs the shared issuing sequence.

Parameters:
  - context: context.Context
  - idToken: string (raw Firebase ID token)
  - params: LoginParams

Returns:
  - *LoginOutcome: Tokens plus the user snapshot
  - error: apperr.InvalidToken, apperr.UserNotRegistered, gate errors, or
    storage failures
*/
func (service *Service) LoginWithFirebase(context context.Context, idToken string, params LoginParams) (*LoginOutcome, error) {
	outcome, err := service.loginFirebase(context, idToken, params)
	service.record(operationLogin, err)
	return outcome, err
}

func (service *Service) loginFirebase(context context.Context, idToken string, params LoginParams) (*LoginOutcome, error) {
	if service.firebase == nil {
		return nil, apperr.ServiceUnavailable("Firebase sign-in is not configured")
	}

	external, err := service.firebase.Verify(context, idToken)
	if err != nil {
		return nil, err
	}

	user, err := service.resolver.ResolveExternal(context, external)
	if err != nil {
		return nil, err
	}
	return service.completeLogin(context, user, identity.ProviderFirebase, params)
}

/*
GoogleAuthURL builds the Google consent-screen URL for the given redirect.

Parameters:
  - redirectURI: string (must match one registered with Google)
  - state: string (opaque CSRF value, echoed back on the callback)

Returns:
  - string: The authorization URL
  - error: apperr.ServiceUnavailable when Google sign-in is not configured
*/
func (service *Service) GoogleAuthURL(redirectURI, state string) (string, error) {
	if service.google == nil {
		return "", apperr.ServiceUnavailable("Google sign-in is not configured")
	}
	return service.google.AuthCodeURL(redirectURI, state), nil
}

/*
LoginWithGoogle authenticates a Google OAuth2 authorization code.

Description: Exchanges the code for a Google access token, fetches the
profile, resolves it to a local user, then runs the shared issuing sequence.

Parameters:
  - context: context.Context
  - code: string (authorization code from the callback)
  - redirectURI: string (the redirect used on the consent request)
  - params: LoginParams

Returns:
  - *LoginOutcome: Tokens plus the user snapshot
  - error: apperr.ValidationError on code exchange failure,
    apperr.UserNotRegistered, gate errors, or storage failures
*/
func (service *Service) LoginWithGoogle(context context.Context, code, redirectURI string, params LoginParams) (*LoginOutcome, error) {
	outcome, err := service.loginGoogle(context, code, redirectURI, params)
	service.record(operationLogin, err)
	return outcome, err
}

func (service *Service) loginGoogle(context context.Context, code, redirectURI string, params LoginParams) (*LoginOutcome, error) {
	if service.google == nil {
		return nil, apperr.ServiceUnavailable("Google sign-in is not configured")
	}

	external, err := service.google.Authenticate(context, code, redirectURI)
	if err != nil {
		return nil, err
	}

	user, err := service.resolver.ResolveExternal(context, external)
	if err != nil {
		return nil, err
	}
	return service.completeLogin(context, user, identity.ProviderGoogle, params)
}

// completeLogin runs the issuing sequence shared by every credential path.
func (service *Service) completeLogin(context context.Context, user *identity.User, provider string, params LoginParams) (*LoginOutcome, error) {

	// ── 1. Gate the target client ──
	app, err := service.gate.Authorize(context, user.ID, params.ClientID)
	if err != nil {
		return nil, err
	}

	// ── 2. Rotate the SSO session; prior SSO tokens stop validating here ──
	ssoToken, err := service.ssoSessions.Create(context, user.ID, params.IPAddress)
	if err != nil {
		return nil, err
	}

	// ── 3. Sign tokens and open the app session ──
	outcome, err := service.issueOutcome(context, user, app, params, ssoToken)
	if err != nil {
		return nil, err
	}

	target := params.ClientID
	if target == "" {
		target = "sso"
	}

	service.publish(context, event.TypeUserLoggedIn, user.ID, map[string]any{
		"provider":  provider,
		"client_id": params.ClientID,
		"device_id": outcome.DeviceID,
	})
	service.logger.InfoContext(context, "user_logged_in",
		slog.String("user_id", user.ID),
		slog.String("provider", provider),
		slog.String("client_id", target),
	)

	return outcome, nil
}

// # SSO Exchange

/*
Exchange trades a valid SSO token for tokens bound to a specific client.

Description: Validates the SSO token (without rotating it), reloads the
user, gates the client, then runs the app tail of the issuing sequence. The
presented SSO token remains valid and is echoed in the outcome.

Parameters:
  - context: context.Context
  - ssoToken: string
  - params: LoginParams (ClientID required)

Returns:
  - *LoginOutcome: App tokens plus the user snapshot
  - error: apperr.InvalidToken on an unknown or expired SSO token,
    apperr.NotFound, gate errors, or storage failures
*/
func (service *Service) Exchange(context context.Context, ssoToken string, params LoginParams) (*LoginOutcome, error) {
	outcome, err := service.exchange(context, ssoToken, params)
	service.record(operationExchange, err)
	return outcome, err
}

func (service *Service) exchange(context context.Context, ssoToken string, params LoginParams) (*LoginOutcome, error) {

	// ── 1. Resolve the SSO session ──
	ssoSession, err := service.ssoSessions.Validate(context, ssoToken)
	if err != nil {
		return nil, err
	}
	if ssoSession == nil {
		return nil, apperr.InvalidToken("SSO session is invalid or has expired")
	}

	// ── 2. Reload the user behind it ──
	user, err := service.loadUser(context, ssoSession.UserID)
	if err != nil {
		return nil, err
	}

	// ── 3. Gate the requested client ──
	app, err := service.gate.Authorize(context, user.ID, params.ClientID)
	if err != nil {
		return nil, err
	}

	// ── 4. Issue app tokens; the SSO session is NOT rotated on exchange ──
	outcome, err := service.issueOutcome(context, user, app, params, ssoToken)
	if err != nil {
		return nil, err
	}

	service.publish(context, event.TypeSessionCreated, user.ID, map[string]any{
		"client_id": params.ClientID,
		"device_id": outcome.DeviceID,
	})
	service.logger.InfoContext(context, "sso_token_exchanged",
		slog.String("user_id", user.ID),
		slog.String("client_id", params.ClientID),
	)

	return outcome, nil
}

// # Refresh

/*
Refresh rotates an access/refresh token pair.

Description: Verifies the refresh token, routes it to its session via the
client and device claims (SSO-portal tokens carry no client claim and route
to the reserved portal code), checks the stored hash, reloads the user, and
signs a fresh pair carrying the user's current allowed apps. The stored
hash is rotated, so the presented token stops being accepted.

Parameters:
  - context: context.Context
  - refreshToken: string
  - deviceID: string (caller-supplied; must match the token's device claim)

Returns:
  - *RefreshOutcome: The new pair; never an SSO token
  - error: apperr.InvalidToken on any verification or session mismatch,
    apperr.NotFound when the user is gone, or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken, deviceID string) (*RefreshOutcome, error) {
	outcome, err := service.refresh(context, refreshToken, deviceID)
	service.record(operationRefresh, err)
	return outcome, err
}

func (service *Service) refresh(context context.Context, refreshToken, deviceID string) (*RefreshOutcome, error) {

	// ── 1. Verify signature, type, expiry ──
	claims, err := service.tokens.VerifyToken(refreshToken, sec.TokenTypeRefresh)
	if err != nil {
		return nil, invalidTokenError(err)
	}

	// ── 2. Route to the owning session ──
	clientID := claims.ClientID
	if clientID == "" {
		clientID = constants.PortalClientCode
	}
	if claims.DeviceID != "" && claims.DeviceID != deviceID {
		return nil, apperr.InvalidToken("Refresh token does not belong to this device")
	}

	// ── 3. The stored hash must match the presented token ──
	valid, err := service.sessions.ValidateRefresh(context, claims.Subject, clientID, deviceID, refreshToken)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, apperr.InvalidToken("Invalid refresh token or session expired")
	}

	// ── 4. Reload the user; allowed apps may have changed since issue ──
	user, err := service.loadUser(context, claims.Subject)
	if err != nil {
		return nil, err
	}

	_, codes, err := service.gate.AllowedApps(context, user.ID)
	if err != nil {
		return nil, err
	}

	// ── 5. Sign the new pair ──
	accessToken, err := service.tokens.GenerateAccessToken(sec.AccessTokenParams{
		UserID:      user.ID,
		Role:        string(user.Role),
		Name:        user.Name,
		Email:       pointer.Val(user.Email),
		AvatarURL:   service.avatarURL(context, user),
		ClientID:    clientID,
		AllowedApps: codes,
	})
	if err != nil {
		return nil, err
	}

	newRefreshToken, err := service.tokens.GenerateRefreshToken(sec.RefreshTokenParams{
		UserID:   user.ID,
		Role:     string(user.Role),
		Name:     user.Name,
		ClientID: clientID,
		DeviceID: deviceID,
	})
	if err != nil {
		return nil, err
	}

	// ── 6. Rotate the stored hash; the old token dies here ──
	if _, err := service.sessions.Update(context, session.UpdateParams{
		UserID:       user.ID,
		ClientID:     clientID,
		DeviceID:     deviceID,
		RefreshToken: newRefreshToken,
	}); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "token_refreshed",
		slog.String("user_id", user.ID),
		slog.String("client_id", clientID),
		slog.String("device_id", deviceID),
	)

	return &RefreshOutcome{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(service.tokens.AccessTTL().Seconds()),
	}, nil
}

// # Validation

/*
ValidateAccessToken verifies an access token and rebuilds the user snapshot
from its claims alone.

Description: No session store lookup happens here; downstream services get
the same answer they would compute themselves from the JWKS. Revocation
becomes effective at the next refresh, not at validation.

Parameters:
  - accessToken: string

Returns:
  - UserData: Snapshot reconstructed from claims
  - error: apperr.InvalidToken on any verification failure
*/
func (service *Service) ValidateAccessToken(accessToken string) (UserData, error) {
	claims, err := service.tokens.VerifyToken(accessToken, sec.TokenTypeAccess)
	if err != nil {
		service.record(operationValidate, err)
		return UserData{}, invalidTokenError(err)
	}

	service.record(operationValidate, nil)
	return UserDataFromClaims(claims), nil
}

// UserDataFromClaims projects verified access-token claims onto the
// response snapshot. Allowed apps are reconstructed from codes only; ids
// and names are not carried in the token.
func UserDataFromClaims(claims *sec.TokenClaims) UserData {
	return UserData{
		ID:        claims.Subject,
		Role:      claims.Role,
		Name:      claims.Name,
		Email:     claims.Email,
		AvatarURL: claims.AvatarURL,
		AllowedApps: slice.Map(claims.AllowedApps, func(code string) application.AllowedApp {
			return application.AllowedApp{Code: code}
		}),
	}
}

/*
IntrospectToken verifies an access token and reloads the live user snapshot.

Description: The stateful sibling of [Service.ValidateAccessToken], used by
the internal RPC surface. The claims pin the identity; role, profile, allowed
apps and the avatar URL are reloaded so backend services observe account and
grant changes without waiting for the token to expire.

Parameters:
  - context: context.Context
  - accessToken: string

Returns:
  - UserData: Live snapshot with full allowed-app projections
  - error: apperr.InvalidToken, or apperr.NotFound for deleted accounts
*/
func (service *Service) IntrospectToken(context context.Context, accessToken string) (UserData, error) {
	claims, err := service.tokens.VerifyToken(accessToken, sec.TokenTypeAccess)
	if err != nil {
		service.record(operationValidate, err)
		return UserData{}, invalidTokenError(err)
	}

	user, err := service.loadUser(context, claims.Subject)
	if err != nil {
		service.record(operationValidate, err)
		return UserData{}, err
	}

	allowedApps, _, err := service.gate.AllowedApps(context, user.ID)
	if err != nil {
		service.record(operationValidate, err)
		return UserData{}, err
	}

	service.record(operationValidate, nil)
	return UserData{
		ID:          user.ID,
		Role:        string(user.Role),
		Name:        user.Name,
		Email:       pointer.Val(user.Email),
		AvatarURL:   service.avatarURL(context, user),
		AllowedApps: allowedApps,
	}, nil
}

// # Session Listing

/*
Sessions enumerates the user's live device sessions grouped by client code.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *SessionListing: Sessions grouped by client, with totals
  - error: Storage failures only
*/
func (service *Service) Sessions(context context.Context, userID string) (*SessionListing, error) {
	all, err := service.sessions.ListAll(context, userID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]SessionEntry)
	for _, record := range all {
		grouped[record.ClientID] = append(grouped[record.ClientID], SessionEntry{
			DeviceID:     record.DeviceID,
			DeviceInfo:   record.DeviceInfo,
			IPAddress:    record.IPAddress,
			CreatedAt:    record.CreatedAt,
			LastActivity: record.LastActivity,
		})
	}

	return &SessionListing{
		Sessions:      grouped,
		TotalClients:  len(grouped),
		TotalSessions: len(all),
	}, nil
}

// # Logout Variants

// LogoutAll removes every app session and the SSO session. Idempotent.
func (service *Service) LogoutAll(context context.Context, userID string) error {
	removed, err := service.sessions.DeleteAll(context, userID)
	if err != nil {
		service.record(operationLogout, err)
		return err
	}
	if _, err := service.ssoSessions.Delete(context, userID); err != nil {
		service.record(operationLogout, err)
		return err
	}

	service.record(operationLogout, nil)
	service.publish(context, event.TypeUserLoggedOut, userID, map[string]any{
		"scope":            "all",
		"sessions_removed": removed,
	})
	service.logger.InfoContext(context, "user_logged_out_all",
		slog.String("user_id", userID),
		slog.Int("sessions_removed", removed),
	)
	return nil
}

// LogoutSSO removes the SSO session and the portal's own device sessions,
// leaving application sessions untouched. Idempotent.
func (service *Service) LogoutSSO(context context.Context, userID string) error {
	if _, err := service.ssoSessions.Delete(context, userID); err != nil {
		service.record(operationLogout, err)
		return err
	}
	if _, err := service.sessions.DeleteClient(context, userID, constants.PortalClientCode); err != nil {
		service.record(operationLogout, err)
		return err
	}

	service.record(operationLogout, nil)
	service.publish(context, event.TypeUserLoggedOut, userID, map[string]any{
		"scope": "sso",
	})
	service.logger.InfoContext(context, "user_logged_out_sso",
		slog.String("user_id", userID),
	)
	return nil
}

// LogoutClient removes every device session for one client. Idempotent.
func (service *Service) LogoutClient(context context.Context, userID, clientID string) error {
	removed, err := service.sessions.DeleteClient(context, userID, clientID)
	if err != nil {
		service.record(operationLogout, err)
		return err
	}

	service.record(operationLogout, nil)
	service.publish(context, event.TypeSessionRevoked, userID, map[string]any{
		"client_id":        clientID,
		"sessions_removed": removed,
	})
	service.logger.InfoContext(context, "user_logged_out_client",
		slog.String("user_id", userID),
		slog.String("client_id", clientID),
		slog.Int("sessions_removed", removed),
	)
	return nil
}

// LogoutClientDevice removes one device session. Idempotent.
func (service *Service) LogoutClientDevice(context context.Context, userID, clientID, deviceID string) error {
	if err := service.sessions.DeleteDevice(context, userID, clientID, deviceID); err != nil {
		service.record(operationLogout, err)
		return err
	}

	service.record(operationLogout, nil)
	service.publish(context, event.TypeSessionRevoked, userID, map[string]any{
		"client_id": clientID,
		"device_id": deviceID,
	})
	service.logger.InfoContext(context, "user_logged_out_device",
		slog.String("user_id", userID),
		slog.String("client_id", clientID),
		slog.String("device_id", deviceID),
	)
	return nil
}

// # Issuing Sequence

// issueOutcome signs tokens and opens session state for a resolved user. A
// nil app means the login targets the SSO portal itself: tokens carry no
// client binding and no app session is opened. With an app, the refresh
// token is signed twice because the store assigns the device id inside
// Create and the final token must embed it.
func (service *Service) issueOutcome(context context.Context, user *identity.User, app *application.Application, params LoginParams, ssoToken string) (*LoginOutcome, error) {
	allowedApps, codes, err := service.gate.AllowedApps(context, user.ID)
	if err != nil {
		return nil, err
	}

	userData := UserData{
		ID:          user.ID,
		Role:        string(user.Role),
		Name:        user.Name,
		Email:       pointer.Val(user.Email),
		AvatarURL:   service.avatarURL(context, user),
		AllowedApps: allowedApps,
	}

	// ── SSO-only: tokens for the portal frontend, no app session ──
	if app == nil {
		accessToken, err := service.tokens.GenerateAccessToken(sec.AccessTokenParams{
			UserID:      user.ID,
			Role:        string(user.Role),
			Name:        user.Name,
			Email:       userData.Email,
			AvatarURL:   userData.AvatarURL,
			AllowedApps: codes,
		})
		if err != nil {
			return nil, err
		}

		refreshToken, err := service.tokens.GenerateRefreshToken(sec.RefreshTokenParams{
			UserID: user.ID,
			Role:   string(user.Role),
			Name:   user.Name,
		})
		if err != nil {
			return nil, err
		}

		return &LoginOutcome{
			SSOToken:     ssoToken,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    tokenTypeBearer,
			ExpiresIn:    int64(service.tokens.AccessTTL().Seconds()),
			User:         userData,
		}, nil
	}

	// ── 1. Provisional refresh token; no device id yet ──
	provisionalToken, err := service.tokens.GenerateRefreshToken(sec.RefreshTokenParams{
		UserID:   user.ID,
		Role:     string(user.Role),
		Name:     user.Name,
		ClientID: app.Code,
	})
	if err != nil {
		return nil, err
	}

	// ── 2. Open the session; policy applied, effective device id assigned ──
	deviceID, err := service.sessions.Create(context, session.CreateParams{
		UserID:        user.ID,
		ClientID:      app.Code,
		RefreshToken:  provisionalToken,
		SingleSession: app.SingleSession,
		DeviceID:      params.DeviceID,
		DeviceInfo:    params.DeviceInfo,
		IPAddress:     params.IPAddress,
		PushToken:     params.PushToken,
	})
	if err != nil {
		return nil, err
	}

	// ── 3. Final refresh token embedding the device id ──
	refreshToken, err := service.tokens.GenerateRefreshToken(sec.RefreshTokenParams{
		UserID:   user.ID,
		Role:     string(user.Role),
		Name:     user.Name,
		ClientID: app.Code,
		DeviceID: deviceID,
	})
	if err != nil {
		return nil, err
	}

	// ── 4. Supersede the provisional hash ──
	if _, err := service.sessions.Update(context, session.UpdateParams{
		UserID:       user.ID,
		ClientID:     app.Code,
		DeviceID:     deviceID,
		RefreshToken: refreshToken,
	}); err != nil {
		return nil, err
	}

	// ── 5. Access token with the client binding ──
	accessToken, err := service.tokens.GenerateAccessToken(sec.AccessTokenParams{
		UserID:      user.ID,
		Role:        string(user.Role),
		Name:        user.Name,
		Email:       userData.Email,
		AvatarURL:   userData.AvatarURL,
		ClientID:    app.Code,
		AllowedApps: codes,
	})
	if err != nil {
		return nil, err
	}

	service.observeSessionCount(context, user.ID)

	return &LoginOutcome{
		SSOToken:     ssoToken,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		DeviceID:     deviceID,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(service.tokens.AccessTTL().Seconds()),
		User:         userData,
	}, nil
}

// # Helpers

// loadUser reloads a user mid-flow. Accounts soft-deleted since their
// tokens were issued are reported as missing.
func (service *Service) loadUser(context context.Context, userID string) (*identity.User, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, err
	}
	if user.Deleted() {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

// avatarURL resolves the user's avatar to a signed URL, empty when the
// user has no avatar or object storage is not wired.
func (service *Service) avatarURL(context context.Context, user *identity.User) string {
	if service.avatars == nil || user.AvatarPath == nil {
		return ""
	}
	return service.avatars.SignedURL(context, *user.AvatarPath)
}

// record counts one flow outcome when metrics are wired.
func (service *Service) record(operation string, err error) {
	if service.metrics == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
		if appError := apperr.As(err); appError != nil {
			outcome = appError.Code
		}
	}
	service.metrics.RecordAuthOutcome(operation, outcome)
}

// observeSessionCount reports the user's live session count, best-effort.
func (service *Service) observeSessionCount(context context.Context, userID string) {
	if service.metrics == nil {
		return
	}
	all, err := service.sessions.ListAll(context, userID)
	if err != nil {
		return
	}
	service.metrics.SetActiveSessions(len(all))
}

// publish enqueues a domain event detached from the request's cancellation,
// when the publisher is wired. Failures never surface to the flow.
func (service *Service) publish(requestContext context.Context, eventType, entityID string, data map[string]any) {
	if service.events == nil {
		return
	}
	service.events.Publish(context.WithoutCancel(requestContext), eventType, entityID, data)
}

// invalidTokenError maps codec verification failures onto the API taxonomy.
func invalidTokenError(err error) error {
	switch {
	case errors.Is(err, sec.ErrExpiredToken):
		return apperr.InvalidToken("Token has expired")
	case errors.Is(err, sec.ErrWrongTokenType):
		return apperr.InvalidToken("Unexpected token type")
	default:
		return apperr.InvalidToken("Could not validate credentials")
	}
}
