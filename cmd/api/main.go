// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Tessera SSO authority.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Load the RS256 key pair and build the token service.
//  7. Wire optional capabilities (metrics, events, avatars, providers).
//  8. Wire repositories, services, and handlers.
//  9. Start the public HTTP server and the internal RPC server.
// 10. Block for a signal, then drain both listeners.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/tessera/internal/api"
	"github.com/taibuivan/tessera/internal/application"
	"github.com/taibuivan/tessera/internal/auth"
	"github.com/taibuivan/tessera/internal/identity"
	"github.com/taibuivan/tessera/internal/platform/config"
	"github.com/taibuivan/tessera/internal/platform/constants"
	"github.com/taibuivan/tessera/internal/platform/event"
	"github.com/taibuivan/tessera/internal/platform/metrics"
	"github.com/taibuivan/tessera/internal/platform/migration"
	"github.com/taibuivan/tessera/internal/platform/objstore"
	pgstore "github.com/taibuivan/tessera/internal/platform/postgres"
	redisstore "github.com/taibuivan/tessera/internal/platform/redis"
	"github.com/taibuivan/tessera/internal/platform/sec"
	"github.com/taibuivan/tessera/internal/rpc"
	"github.com/taibuivan/tessera/internal/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Tessera] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("rpc_port", cfg.RPCPort),
	)

	// Process-lifetime context; cancellation stops the background janitors
	// (rate limiter cleanup) during shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup context with a 30s deadline so misconfiguration is caught
	// quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, cfg.RedisPoolSize, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(
		cfg.JWTPrivKeyPath,
		cfg.JWTPubKeyPath,
		constants.AuthIssuer,
		cfg.AccessTokenTTL(),
		cfg.RefreshTokenTTL(),
	)
	must(log, err, "initialize jwt service")

	// ── 7. Optional Capabilities ──────────────────────────────────────────
	// Each of these can be absent; the auth service degrades gracefully.
	collector := metrics.New()

	publisher, err := event.NewPublisher(cfg.RedisURL, log)
	must(log, err, "initialize event publisher")
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			log.Error("event publisher close error", slog.Any("error", cerr))
		}
	}()

	var avatars *identity.AvatarService
	if cfg.S3Bucket != "" {
		store, serr := objstore.New(startupCtx, objstore.Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
		must(log, serr, "initialize avatar object store")
		avatars = identity.NewAvatarService(store, log)
	} else {
		log.Info("avatar_store_disabled", slog.String("reason", "S3_BUCKET not set"))
	}

	var google *identity.GoogleProvider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		google = identity.NewGoogleProvider(identity.GoogleConfig{
			ClientID:           cfg.GoogleClientID,
			ClientSecret:       cfg.GoogleClientSecret,
			DefaultRedirectURI: cfg.GoogleRedirectURI,
		}, log)
	} else {
		log.Info("google_login_disabled", slog.String("reason", "GOOGLE_CLIENT_ID not set"))
	}

	var firebase *identity.FirebaseVerifier
	if cfg.FirebaseProjectID != "" {
		firebase = identity.NewFirebaseVerifier(identity.FirebaseConfig{
			ProjectID: cfg.FirebaseProjectID,
		}, log)
	} else {
		log.Info("firebase_login_disabled", slog.String("reason", "FIREBASE_PROJECT_ID not set"))
	}

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := identity.NewUserRepository(pool)
	bindingRepository := identity.NewBindingRepository(pool)
	applicationRepository := application.NewPostgresRepository(pool)

	gate := application.NewGate(applicationRepository)
	resolver := identity.NewResolver(userRepository, bindingRepository, avatars, log)

	appSessions := session.NewAppSessionRepository(rdb, cfg.RefreshTokenTTL(), cfg.MaxActiveSessions)
	ssoSessions := session.NewSSOSessionRepository(rdb, cfg.SSOSessionTTL())

	authService := auth.NewService(auth.Deps{
		Resolver:    resolver,
		Users:       userRepository,
		Gate:        gate,
		Tokens:      jwtSvc,
		Sessions:    appSessions,
		SSOSessions: ssoSessions,
		Google:      google,
		Firebase:    firebase,
		Avatars:     avatars,
		Events:      publisher,
		Metrics:     collector,
		Logger:      log,
	})
	authHandler := auth.NewHandler(authService)

	userService := identity.NewService(userRepository, bindingRepository, gate, avatars, log)
	userHandler := identity.NewHandler(userService)

	applicationService := application.NewService(applicationRepository, log)
	applicationHandler := application.NewHandler(applicationService)

	// ── 9. Health Handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers([]api.DependencyCheck{
		{Name: "postgres", Check: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }},
		{Name: "redis", Check: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
	}, log)

	// ── 10. HTTP + RPC Servers ────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		JWKS:         api.NewJWKSHandler(jwtSvc.JWKSDocument()),
		Auth:         authHandler,
		Users:        userHandler,
		Applications: applicationHandler,
	}

	server := api.NewServer(rootCtx, cfg, log, jwtSvc, collector, handlers)
	rpcServer := rpc.NewServer(cfg, log, rpc.NewAuthHandler(authService, log), collector.Handler())

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 2)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	go func() {
		if err := rpcServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down servers", slog.Duration("timeout", shutdownTimeout))

	exitCode := 0
	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("http shutdown error", slog.Any("error", err))
		exitCode = 1
	}
	if err := rpcServer.Shutdown(shutdownTimeout); err != nil {
		log.Error("rpc shutdown error", slog.Any("error", err))
		exitCode = 1
	}
	rootCancel()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
