// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into the public-facing [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary for the
    browser- and client-facing surface; the service-to-service plane
    lives in internal/rpc on its own listener.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package, internal/rpc, and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/tessera/internal/application"
	"github.com/taibuivan/tessera/internal/auth"
	"github.com/taibuivan/tessera/internal/identity"
	"github.com/taibuivan/tessera/internal/platform/config"
	"github.com/taibuivan/tessera/internal/platform/constants"
	"github.com/taibuivan/tessera/internal/platform/metrics"
	"github.com/taibuivan/tessera/internal/platform/middleware"
	"github.com/taibuivan/tessera/internal/platform/respond"
	"github.com/taibuivan/tessera/internal/platform/sec"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// JWKS serves the signing public keys for downstream token verification.
	JWKS http.HandlerFunc

	// Auth handles the SSO flows (logins, exchange, refresh, logout, sessions).
	Auth *auth.Handler

	// Users manages accounts: /users/me for any authenticated caller,
	// the rest of the surface behind the admin gate.
	Users *identity.Handler

	// Applications manages registered client applications and access grants.
	Applications *application.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// The collector may be nil, in which case no per-request metrics are
// recorded; every other dependency is required.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, collector *metrics.Metrics, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	if collector != nil {
		r.Use(collector.Middleware())
	}
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated probes and key discovery for container orchestration
	// and downstream verifiers.
	r.Get("/", serviceInfo)
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Get("/.well-known/jwks.json", h.JWKS)

	// # Application API
	// Domain-specific route groups mounted under the versioned prefix.
	r.Route(cfg.APIPrefix, func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())

		api.Group(func(authenticated chi.Router) {
			authenticated.Use(middleware.RequireAuth())
			authenticated.Get("/users/me", h.Users.Me)

			authenticated.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(sec.RoleAdmin))
				admin.Mount("/users", h.Users.Routes())
				admin.Mount("/applications", h.Applications.Routes())
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// serviceInfo handles GET / with the service identity banner.
func serviceInfo(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{
		"service": constants.AppName,
		"version": constants.AppVersion,
	})
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
