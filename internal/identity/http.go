// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/tessera/internal/platform/request"
	"github.com/taibuivan/tessera/internal/platform/respond"
	"github.com/taibuivan/tessera/internal/platform/sec"
	"github.com/taibuivan/tessera/internal/platform/validate"
	"github.com/taibuivan/tessera/pkg/pagination"
)

// Handler implements the HTTP layer of the user surface.
//
// /me is available to any authenticated user; the rest of the surface is
// mounted behind admin-role middleware by the server.
type Handler struct {
	service *Service
}

// NewHandler constructs a new user [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the admin-scoped user endpoints.
// The /me endpoint is registered separately via [Handler.Me] so the server
// can mount it outside the admin gate.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/{id}", handler.get)
	router.Patch("/{id}/status", handler.updateStatus)

	return router
}

/*
GET /api/v1/users.

Description: Pages through accounts with optional status, role, and search
filters. Search matches name or email as a case-insensitive substring.

Response:
  - 200: []ListItem with pagination metadata
  - 422: ValidationError: Unknown status or role filter
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	filter := Filter{
		Status: query.Get("status"),
		Role:   query.Get("role"),
		Search: query.Get("search"),
	}

	validator := &validate.Validator{}
	if filter.Status != "" {
		validator.OneOf("status", filter.Status, StatusActive, StatusInactive, StatusSuspended, StatusDeleted)
	}
	if filter.Role != "" {
		validator.OneOf("role", filter.Role,
			string(sec.RoleSuperadmin), string(sec.RoleAdmin), string(sec.RoleUser), string(sec.RoleGuest))
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	items, meta, err := handler.service.List(request.Context(), filter, pagination.FromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, items, meta)
}

/*
GET /api/v1/users/me.

Description: Returns the authenticated caller's own detail view. Registered
outside the admin gate.

Response:
  - 200: Detail
  - 401: Unauthorized
  - 404: NotFound: Token subject no longer exists
*/
func (handler *Handler) Me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	detail, err := handler.service.Get(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, detail)
}

/*
GET /api/v1/users/{id}.

Response:
  - 200: Detail
  - 404: NotFound
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	detail, err := handler.service.Get(request.Context(), chi.URLParam(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, detail)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

/*
PATCH /api/v1/users/{id}/status.

Description: Transitions the account's lifecycle status. "deleted" is the
soft delete and yields a bare confirmation instead of the (now invisible)
user.

Response:
  - 200: Detail, or message after deletion
  - 404: NotFound
  - 422: ValidationError: Unknown status
*/
func (handler *Handler) updateStatus(writer http.ResponseWriter, request *http.Request) {
	var input updateStatusRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("status", input.Status).
		OneOf("status", input.Status, StatusActive, StatusInactive, StatusSuspended, StatusDeleted)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	detail, err := handler.service.UpdateStatus(request.Context(), chi.URLParam(request, "id"), input.Status)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if detail == nil {
		respond.Message(writer, "User deleted")
		return
	}

	respond.OK(writer, detail)
}
