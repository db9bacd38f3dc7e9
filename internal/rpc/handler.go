// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rpc

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tessera/internal/auth"
	"github.com/taibuivan/tessera/internal/identity"
	"github.com/taibuivan/tessera/internal/platform/apperr"
	requestutil "github.com/taibuivan/tessera/internal/platform/request"
	"github.com/taibuivan/tessera/internal/platform/respond"
	"github.com/taibuivan/tessera/internal/session"
)

const tokenTypeBearer = "bearer"

// AuthHandler adapts the auth service onto the internal RPC method set.
type AuthHandler struct {
	service *auth.Service
	log     *slog.Logger
}

// NewAuthHandler constructs a new [AuthHandler].
func NewAuthHandler(service *auth.Service, log *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, log: log}
}

// Routes returns one POST route per RPC method.
func (handler *AuthHandler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/ValidateToken", handler.validateToken)
	router.Post("/LoginWithEmail", handler.loginWithEmail)
	router.Post("/LoginWithFirebase", handler.loginWithFirebase)
	router.Post("/RefreshToken", handler.refreshToken)
	router.Post("/ExchangeSSOToken", handler.exchangeSSOToken)
	router.Post("/Logout", handler.logout)
	router.Post("/GetSessions", handler.getSessions)

	return router
}

// # Wire Types

// deviceFields carries the client/device block shared by the login-type
// requests. Unlike the public surface, ip_address arrives as a field: the
// caller is another service forwarding its end user's address.
type deviceFields struct {
	ClientID   string             `json:"client_id"`
	DeviceID   string             `json:"device_id"`
	DeviceInfo session.DeviceInfo `json:"device_info"`
	IPAddress  string             `json:"ip_address"`
	FCMToken   string             `json:"fcm_token"`
}

func (fields deviceFields) loginParams() auth.LoginParams {
	return auth.LoginParams{
		ClientID:   fields.ClientID,
		DeviceID:   fields.DeviceID,
		DeviceInfo: fields.DeviceInfo,
		IPAddress:  fields.IPAddress,
		PushToken:  fields.FCMToken,
	}
}

type validateTokenRequest struct {
	AccessToken string `json:"access_token"`
}

type validateTokenResponse struct {
	IsValid bool           `json:"is_valid"`
	User    *auth.UserData `json:"user,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type emailLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	deviceFields
}

type firebaseLoginRequest struct {
	FirebaseToken string `json:"firebase_token"`
	deviceFields
}

type exchangeRequest struct {
	SSOToken string `json:"sso_token"`
	deviceFields
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceID     string `json:"device_id"`
}

type logoutRequest struct {
	UserID   string `json:"user_id"`
	Global   bool   `json:"global"`
	ClientID string `json:"client_id"`
	DeviceID string `json:"device_id"`
}

type sessionsRequest struct {
	UserID string `json:"user_id"`
}

// loginResponse mirrors the public LoginOutcome plus the in-band
// success/error pair. token_type is set even on failures so clients that
// unconditionally read it never see an empty field.
type loginResponse struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	SSOToken     string         `json:"sso_token,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	DeviceID     string         `json:"device_id,omitempty"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in,omitempty"`
	User         *auth.UserData `json:"user,omitempty"`
}

type refreshTokenResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// sessionInfo is the flat per-session projection. The public surface groups
// by client; this plane returns a list with client_id on each entry.
type sessionInfo struct {
	DeviceID     string             `json:"device_id"`
	DeviceInfo   session.DeviceInfo `json:"device_info"`
	IPAddress    string             `json:"ip_address,omitempty"`
	ClientID     string             `json:"client_id"`
	CreatedAt    time.Time          `json:"created_at"`
	LastActivity time.Time          `json:"last_activity"`
}

type sessionsResponse struct {
	Sessions      []sessionInfo `json:"sessions"`
	TotalClients  int           `json:"total_clients"`
	TotalSessions int           `json:"total_sessions"`
	Error         string        `json:"error,omitempty"`
}

// # Method Handlers

/*
POST /rpc/AuthService/ValidateToken.

Description: Stateful token introspection. Unlike the public /validate
endpoint this reloads the user, so revoked accounts and changed grants are
visible immediately. Bad tokens answer {is_valid:false} with HTTP 200.
*/
func (handler *AuthHandler) validateToken(writer http.ResponseWriter, request *http.Request) {
	var input validateTokenRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	userData, err := handler.service.IntrospectToken(request.Context(), input.AccessToken)
	if err != nil {
		respond.OK(writer, validateTokenResponse{
			IsValid: false,
			Error:   handler.domainMessage(request, err, "Token validation failed"),
		})
		return
	}

	respond.OK(writer, validateTokenResponse{IsValid: true, User: &userData})
}

// POST /rpc/AuthService/LoginWithEmail.
func (handler *AuthHandler) loginWithEmail(writer http.ResponseWriter, request *http.Request) {
	var input emailLoginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	credential := identity.PasswordCredential{Email: input.Email, Password: input.Password}
	outcome, err := handler.service.LoginWithPassword(request.Context(), credential, input.loginParams())
	if err != nil {
		respond.OK(writer, handler.loginFailure(request, err, "Login failed"))
		return
	}

	respond.OK(writer, loginSuccess(outcome))
}

// POST /rpc/AuthService/LoginWithFirebase.
func (handler *AuthHandler) loginWithFirebase(writer http.ResponseWriter, request *http.Request) {
	var input firebaseLoginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.LoginWithFirebase(request.Context(), input.FirebaseToken, input.loginParams())
	if err != nil {
		respond.OK(writer, handler.loginFailure(request, err, "Login failed"))
		return
	}

	respond.OK(writer, loginSuccess(outcome))
}

// POST /rpc/AuthService/RefreshToken.
func (handler *AuthHandler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	var input refreshTokenRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.Refresh(request.Context(), input.RefreshToken, input.DeviceID)
	if err != nil {
		respond.OK(writer, refreshTokenResponse{
			Success:   false,
			Error:     handler.domainMessage(request, err, "Token refresh failed"),
			TokenType: tokenTypeBearer,
		})
		return
	}

	respond.OK(writer, refreshTokenResponse{
		Success:      true,
		AccessToken:  outcome.AccessToken,
		RefreshToken: outcome.RefreshToken,
		TokenType:    outcome.TokenType,
		ExpiresIn:    outcome.ExpiresIn,
	})
}

// POST /rpc/AuthService/ExchangeSSOToken.
func (handler *AuthHandler) exchangeSSOToken(writer http.ResponseWriter, request *http.Request) {
	var input exchangeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.Exchange(request.Context(), input.SSOToken, input.loginParams())
	if err != nil {
		respond.OK(writer, handler.loginFailure(request, err, "SSO exchange failed"))
		return
	}

	respond.OK(writer, loginSuccess(outcome))
}

/*
POST /rpc/AuthService/Logout.

Description: One method covers the logout topology. global (or neither
selector) removes everything; client_id+device_id one device; client_id
alone every device of that client.
*/
func (handler *AuthHandler) logout(writer http.ResponseWriter, request *http.Request) {
	var input logoutRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var (
		err     error
		message string
	)
	switch {
	case input.Global || input.ClientID == "":
		err = handler.service.LogoutAll(request.Context(), input.UserID)
		message = "Logged out from all clients and devices"
	case input.DeviceID != "":
		err = handler.service.LogoutClientDevice(request.Context(), input.UserID, input.ClientID, input.DeviceID)
		message = fmt.Sprintf("Logged out from %s device %s", input.ClientID, input.DeviceID)
	default:
		err = handler.service.LogoutClient(request.Context(), input.UserID, input.ClientID)
		message = fmt.Sprintf("Logged out from %s", input.ClientID)
	}

	if err != nil {
		respond.OK(writer, logoutResponse{
			Success: false,
			Message: "Logout failed",
			Error:   handler.domainMessage(request, err, "Logout failed"),
		})
		return
	}

	respond.OK(writer, logoutResponse{Success: true, Message: message})
}

// POST /rpc/AuthService/GetSessions.
func (handler *AuthHandler) getSessions(writer http.ResponseWriter, request *http.Request) {
	var input sessionsRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	listing, err := handler.service.Sessions(request.Context(), input.UserID)
	if err != nil {
		respond.OK(writer, sessionsResponse{
			Sessions: []sessionInfo{},
			Error:    handler.domainMessage(request, err, "Could not list sessions"),
		})
		return
	}

	sessions := make([]sessionInfo, 0, listing.TotalSessions)
	for clientID, entries := range listing.Sessions {
		for _, entry := range entries {
			sessions = append(sessions, sessionInfo{
				DeviceID:     entry.DeviceID,
				DeviceInfo:   entry.DeviceInfo,
				IPAddress:    entry.IPAddress,
				ClientID:     clientID,
				CreatedAt:    entry.CreatedAt,
				LastActivity: entry.LastActivity,
			})
		}
	}

	respond.OK(writer, sessionsResponse{
		Sessions:      sessions,
		TotalClients:  listing.TotalClients,
		TotalSessions: listing.TotalSessions,
	})
}

// # Helpers

func loginSuccess(outcome *auth.LoginOutcome) loginResponse {
	return loginResponse{
		Success:      true,
		SSOToken:     outcome.SSOToken,
		AccessToken:  outcome.AccessToken,
		RefreshToken: outcome.RefreshToken,
		DeviceID:     outcome.DeviceID,
		TokenType:    outcome.TokenType,
		ExpiresIn:    outcome.ExpiresIn,
		User:         &outcome.User,
	}
}

func (handler *AuthHandler) loginFailure(request *http.Request, err error, fallback string) loginResponse {
	return loginResponse{
		Success:   false,
		Error:     handler.domainMessage(request, err, fallback),
		TokenType: tokenTypeBearer,
	}
}

// domainMessage converts an error into the in-band error string. Expected
// domain errors surface their message; anything else is logged and replaced
// with the method's generic fallback so internals never leak across the
// wire.
func (handler *AuthHandler) domainMessage(request *http.Request, err error, fallback string) string {
	if appError := apperr.As(err); appError != nil {
		return appError.Message
	}

	handler.log.ErrorContext(request.Context(), "rpc_unexpected_error",
		slog.String("error", err.Error()),
	)
	return fallback
}
