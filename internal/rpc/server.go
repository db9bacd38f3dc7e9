// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rpc exposes the internal service-to-service surface.

Architecture:

  - JSON-over-HTTP on a dedicated internal listener, one POST route per
    method under /rpc/AuthService/. The port must never be reachable from
    outside the cluster; there is no authentication on this plane.
  - Domain failures are in-band ({success:false, error} or
    {is_valid:false, error}) with HTTP 200, so callers branch on one field
    instead of mixing transport and domain error handling. Only malformed
    requests produce non-200 responses.
*/
package rpc

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/tessera/internal/platform/config"
	"github.com/taibuivan/tessera/internal/platform/constants"
	"github.com/taibuivan/tessera/internal/platform/middleware"
)

// Server wraps the internal listener. Constructed once in main.go next to
// the public API server; both share one process and one dependency graph.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer builds the internal router. The middleware chain is the public
// chain minus CORS, rate limiting, and token authentication; callers are
// trusted services inside the network boundary. The Prometheus scrape
// endpoint lives here so it is never exposed on the public port.
func NewServer(cfg *config.Config, log *slog.Logger, handler *AuthHandler, metricsHandler http.Handler) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(log))
	router.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	router.Use(middleware.PanicRecovery(log))
	router.Use(chimw.CleanPath)

	router.Mount("/rpc/AuthService", handler.Routes())

	if metricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	return &Server{
		log: log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.RPCPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// ListenAndServe starts the internal server. It blocks until the server is
// closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("rpc server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
