// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/tessera/internal/platform/request"
	"github.com/taibuivan/tessera/internal/platform/respond"
	"github.com/taibuivan/tessera/internal/platform/validate"
	"github.com/taibuivan/tessera/pkg/pagination"
	"github.com/taibuivan/tessera/pkg/pointer"
)

// Handler implements the admin HTTP layer for the application registry.
//
// The whole surface is mounted behind admin-role middleware; handlers assume
// an authenticated admin caller.
type Handler struct {
	service *Service
}

// NewHandler constructs a new registry [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the registry admin endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Post("/", handler.create)
	router.Get("/{id}", handler.get)
	router.Patch("/{id}", handler.update)
	router.Delete("/{id}", handler.remove)

	// Grant management
	router.Post("/{id}/users/{userID}", handler.grant)
	router.Delete("/{id}/users/{userID}", handler.revoke)

	return router
}

/*
GET /api/v1/applications.

Description: Pages through registrations, optionally filtered by is_active.

Response:
  - 200: []Application with pagination metadata
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	filter := Filter{}
	if raw := request.URL.Query().Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respond.Error(writer, request, validate.RequiredError("is_active", "Must be true or false"))
			return
		}
		filter.IsActive = pointer.To(active)
	}

	apps, meta, err := handler.service.List(request.Context(), filter, pagination.FromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, apps, meta)
}

type createApplicationRequest struct {
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	Description   *string `json:"description"`
	BaseURL       string  `json:"base_url"`
	IsActive      *bool   `json:"is_active"`
	SingleSession bool    `json:"single_session"`
}

/*
POST /api/v1/applications.

Description: Registers a new application. The code is optional and derived
from the name when omitted; when present it must already be in client-code
form.

Response:
  - 201: Application
  - 409: Conflict: Duplicate code
  - 422: ValidationError
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input createApplicationRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("name", input.Name).
		MinLen("name", input.Name, 2).
		MaxLen("name", input.Name, 255).
		Required("base_url", input.BaseURL).
		URL("base_url", input.BaseURL).
		MaxLen("base_url", input.BaseURL, 500)
	if input.Code != "" {
		validator.ClientCode("code", input.Code).MaxLen("code", input.Code, 100)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := CreateParams{
		Name:          input.Name,
		Code:          input.Code,
		Description:   input.Description,
		BaseURL:       input.BaseURL,
		IsActive:      true,
		SingleSession: input.SingleSession,
	}
	if input.IsActive != nil {
		params.IsActive = *input.IsActive
	}

	app, err := handler.service.Create(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, app)
}

/*
GET /api/v1/applications/{id}.

Response:
  - 200: Application
  - 404: NotFound
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	app, err := handler.service.Get(request.Context(), chi.URLParam(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, app)
}

type updateApplicationRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	BaseURL       *string `json:"base_url"`
	ImgPath       *string `json:"img_path"`
	IconPath      *string `json:"icon_path"`
	IsActive      *bool   `json:"is_active"`
	SingleSession *bool   `json:"single_session"`
}

/*
PATCH /api/v1/applications/{id}.

Description: Partial update; absent fields keep their value. The client code
itself is immutable because downstream configs and live refresh tokens embed
it.

Response:
  - 200: Application: Updated state
  - 404: NotFound
  - 422: ValidationError
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	var input updateApplicationRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if input.Name != nil {
		validator.MinLen("name", *input.Name, 2).MaxLen("name", *input.Name, 255)
	}
	if input.BaseURL != nil {
		validator.Required("base_url", *input.BaseURL).URL("base_url", *input.BaseURL)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	app, err := handler.service.Update(request.Context(), chi.URLParam(request, "id"), UpdateParams{
		Name:          input.Name,
		Description:   input.Description,
		BaseURL:       input.BaseURL,
		ImgPath:       input.ImgPath,
		IconPath:      input.IconPath,
		IsActive:      input.IsActive,
		SingleSession: input.SingleSession,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, app)
}

/*
DELETE /api/v1/applications/{id}.

Description: Soft delete. Sessions already issued for the application run
until expiry; new logins fail with AppNotFound.

Response:
  - 204: Deleted
  - 404: NotFound
*/
func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.Delete(request.Context(), chi.URLParam(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/applications/{id}/users/{userID}.

Description: Grants the user access to the application. Idempotent.

Response:
  - 200: message
  - 404: NotFound: Unknown application
*/
func (handler *Handler) grant(writer http.ResponseWriter, request *http.Request) {
	applicationID := chi.URLParam(request, "id")
	userID := chi.URLParam(request, "userID")

	if err := handler.service.GrantUser(request.Context(), applicationID, userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Application access granted")
}

/*
DELETE /api/v1/applications/{id}/users/{userID}.

Description: Revokes the user's access. Idempotent; live sessions survive
until their next refresh re-reads allowed_apps.

Response:
  - 200: message
  - 404: NotFound: Unknown application
*/
func (handler *Handler) revoke(writer http.ResponseWriter, request *http.Request) {
	applicationID := chi.URLParam(request, "id")
	userID := chi.URLParam(request, "userID")

	if err := handler.service.RevokeUser(request.Context(), applicationID, userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Application access revoked")
}
