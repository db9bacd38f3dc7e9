// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tessera/internal/identity"
	"github.com/taibuivan/tessera/internal/platform/constants"
	"github.com/taibuivan/tessera/internal/platform/middleware"
	requestutil "github.com/taibuivan/tessera/internal/platform/request"
	"github.com/taibuivan/tessera/internal/platform/respond"
	"github.com/taibuivan/tessera/internal/platform/validate"
	"github.com/taibuivan/tessera/internal/session"
)

// Handler implements the HTTP layer of the authentication surface.
//
// # Scope
//
// Login by every credential path, SSO exchange, refresh, the logout
// topology, token validation for backend services, and session listing.
// Handlers parse and validate; every decision lives in the service.
type Handler struct {
	service *Service
}

// NewHandler constructs a new auth [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the full auth surface. Login-type
// endpoints are public; everything after a session exists requires a valid
// access token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login/email", handler.loginEmail)
	router.Post("/login/firebase", handler.loginFirebase)
	router.Get("/login/google", handler.googleAuthURL)
	router.Get("/login/google/callback", handler.googleCallback)
	router.Post("/exchange", handler.exchange)
	router.Post("/refresh", handler.refresh)

	router.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth())

		authed.Post("/logout", handler.logoutAll)
		authed.Post("/logout/sso", handler.logoutSSO)
		authed.Post("/logout/client", handler.logoutClient)
		authed.Post("/validate", handler.validateToken)
		authed.Get("/sessions", handler.sessions)
	})

	return router
}

// deviceContext carries the client/device fields shared by the login-type
// request bodies.
type deviceContext struct {
	ClientID   string             `json:"client_id"`
	DeviceID   string             `json:"device_id"`
	DeviceInfo session.DeviceInfo `json:"device_info"`
	FCMToken   string             `json:"fcm_token"`
}

// loginParams folds the body fields and the caller's IP into flow inputs.
func (input deviceContext) loginParams(request *http.Request) LoginParams {
	return LoginParams{
		ClientID:   input.ClientID,
		DeviceID:   input.DeviceID,
		DeviceInfo: input.DeviceInfo,
		IPAddress:  requestutil.ClientIP(request),
		PushToken:  input.FCMToken,
	}
}

type emailLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	deviceContext
}

/*
POST /api/v1/auth/login/email.

Description: Password login. With a client_id the outcome carries tokens
bound to that application and a device id; without one the tokens target
the SSO portal itself.

Response:
  - 200: LoginOutcome
  - 400: AlreadyLoggedInElsewhere: Single-session app, other device active
  - 401: InvalidCredentials
  - 403: AppNotPermitted
  - 404: AppNotFound
*/
func (handler *Handler) loginEmail(writer http.ResponseWriter, request *http.Request) {
	var input emailLoginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).Email("email", input.Email)
	validator.Required("password", input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	credential := identity.PasswordCredential{Email: input.Email, Password: input.Password}
	outcome, err := handler.service.LoginWithPassword(request.Context(), credential, input.loginParams(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, outcome)
}

type firebaseLoginRequest struct {
	FirebaseToken string `json:"firebase_token"`
	deviceContext
}

/*
POST /api/v1/auth/login/firebase.

Description: Login with a Firebase ID token. The account must already exist
locally; unknown subjects with a registered email are auto-linked.

Response:
  - 200: LoginOutcome
  - 401: InvalidToken or UserNotRegistered
  - 503: ServiceUnavailable: Firebase sign-in not configured
*/
func (handler *Handler) loginFirebase(writer http.ResponseWriter, request *http.Request) {
	var input firebaseLoginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.FirebaseToken == "" {
		respond.Error(writer, request, validate.RequiredError("firebase_token", "is required"))
		return
	}

	outcome, err := handler.service.LoginWithFirebase(request.Context(),
		input.FirebaseToken, input.loginParams(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, outcome)
}

/*
GET /api/v1/auth/login/google.

Description: Starts the OAuth2 flow by returning the Google consent URL for
the given redirect_uri. The optional state value is echoed back on the
callback for CSRF protection.

Response:
  - 200: {"auth_url": string}
  - 422: ValidationError: redirect_uri missing
  - 503: ServiceUnavailable: Google sign-in not configured
*/
func (handler *Handler) googleAuthURL(writer http.ResponseWriter, request *http.Request) {
	redirectURI := request.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		respond.Error(writer, request, validate.RequiredError("redirect_uri", "is required"))
		return
	}

	authURL, err := handler.service.GoogleAuthURL(redirectURI, request.URL.Query().Get("state"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"auth_url": authURL})
}

/*
GET /api/v1/auth/login/google/callback.

Description: Completes the OAuth2 flow. Query parameters mirror the body of
the other login endpoints; device_info arrives as a JSON string and is
parsed best-effort (a malformed value logs in as an empty descriptor rather
than failing the login).

Response:
  - 200: LoginOutcome
  - 401: UserNotRegistered
  - 422: ValidationError: code missing or rejected by Google
*/
func (handler *Handler) googleCallback(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	code := query.Get("code")
	if code == "" {
		respond.Error(writer, request, validate.RequiredError("code", "is required"))
		return
	}

	var deviceInfo session.DeviceInfo
	if raw := query.Get("device_info"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &deviceInfo)
	}

	params := LoginParams{
		ClientID:   query.Get("client_id"),
		DeviceID:   query.Get("device_id"),
		DeviceInfo: deviceInfo,
		IPAddress:  requestutil.ClientIP(request),
		PushToken:  query.Get("fcm_token"),
	}

	outcome, err := handler.service.LoginWithGoogle(request.Context(), code, query.Get("redirect_uri"), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, outcome)
}

type exchangeRequest struct {
	SSOToken string `json:"sso_token"`
	deviceContext
}

/*
POST /api/v1/auth/exchange.

Description: Trades a valid SSO token for tokens bound to client_id. The
SSO token itself is not rotated and remains valid for further exchanges.

Response:
  - 200: LoginOutcome (sso_token echoes the presented token)
  - 401: InvalidToken: Unknown or expired SSO token
  - 403: AppNotPermitted
  - 404: AppNotFound
*/
func (handler *Handler) exchange(writer http.ResponseWriter, request *http.Request) {
	var input exchangeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("sso_token", input.SSOToken)
	validator.Required("client_id", input.ClientID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.Exchange(request.Context(), input.SSOToken, input.loginParams(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, outcome)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceID     string `json:"device_id"`
}

/*
POST /api/v1/auth/refresh.

Description: Rotates a token pair. The device_id must match the refresh
token's device claim when the token carries one.

Response:
  - 200: RefreshOutcome
  - 401: InvalidToken: Bad token, device mismatch, or session expired
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError("refresh_token", "is required"))
		return
	}

	outcome, err := handler.service.Refresh(request.Context(), input.RefreshToken, input.DeviceID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, outcome)
}

/*
POST /api/v1/auth/logout.

Description: Global logout: every app session on every device plus the SSO
session.

Response:
  - 200: Message
  - 401: Unauthorized
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.LogoutAll(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Logged out from all clients and devices")
}

/*
POST /api/v1/auth/logout/sso.

Description: Ends the SSO session only; app sessions stay alive. For the
portal frontend, which is not a registered client.

Response:
  - 200: Message
  - 401: Unauthorized
*/
func (handler *Handler) logoutSSO(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.LogoutSSO(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Logged out from SSO")
}

/*
POST /api/v1/auth/logout/client.

Description: Scoped logout driven by headers: X-Client-ID picks the
application; with X-Device-ID only that device's session ends, without it
every device for the client ends.

Response:
  - 200: Message
  - 401: Unauthorized
  - 422: ValidationError: X-Client-ID missing
*/
func (handler *Handler) logoutClient(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	clientID := request.Header.Get(constants.HeaderClientID)
	if clientID == "" {
		respond.Error(writer, request, validate.RequiredError("X-Client-ID", "header is required"))
		return
	}

	deviceID := request.Header.Get(constants.HeaderDeviceID)
	if deviceID != "" {
		if err := handler.service.LogoutClientDevice(request.Context(), userID, clientID, deviceID); err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.Message(writer, fmt.Sprintf("Logged out from %s device %s", clientID, deviceID))
		return
	}

	if err := handler.service.LogoutClient(request.Context(), userID, clientID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, fmt.Sprintf("Logged out from %s", clientID))
}

/*
POST /api/v1/auth/validate.

Description: Returns the user snapshot reconstructed from the presented
access token. For backend services; no session state is consulted, so a
revoked-but-unexpired token still validates until its exp.

Response:
  - 200: UserData
  - 401: Unauthorized
*/
func (handler *Handler) validateToken(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, UserDataFromClaims(claims))
}

/*
GET /api/v1/auth/sessions.

Description: Lists the caller's live sessions grouped by client code.

Response:
  - 200: SessionListing
  - 401: Unauthorized
*/
func (handler *Handler) sessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	listing, err := handler.service.Sessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, listing)
}
