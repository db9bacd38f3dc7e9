// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. In development a
local .env file is loaded first (real environment variables always win).

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/taibuivan/tessera/pkg/query"
)

// # Configuration Schema

// Config holds all runtime configuration for the Tessera SSO authority.
type Config struct {

	// Server settings
	ServerPort  string `env:"PORT"        envDefault:"8000"`
	RPCPort     string `env:"RPC_PORT"    envDefault:"50051"`
	APIPrefix   string `env:"API_PREFIX"  envDefault:"/api/v1"`
	Environment string `env:"APP_ENV"     envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`

	// Key-Value Cache (Redis); sessions and the event queue share the instance.
	RedisURL      string `env:"REDIS_URL,required"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"50"`

	// Token signing (RS256 key pair on disk)
	JWTPrivKeyPath      string `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./keys/private.pem"`
	JWTPubKeyPath       string `env:"JWT_PUBLIC_KEY_PATH"  envDefault:"./keys/public.pem"`
	AccessTokenMinutes  int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	RefreshTokenDays    int    `env:"REFRESH_TOKEN_EXPIRE_DAYS"   envDefault:"60"`
	SSOSessionDays      int    `env:"SSO_SESSION_EXPIRE_DAYS"     envDefault:"30"`
	MaxActiveSessions   int    `env:"MAX_ACTIVE_SESSIONS"         envDefault:"5"`

	// External identity providers
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI" envDefault:"http://localhost:8000/api/v1/auth/login/google/callback"`
	FirebaseProjectID  string `env:"FIREBASE_PROJECT_ID"`

	// Object Storage (S3-compatible) for avatar uploads
	S3Bucket         string `env:"S3_BUCKET"`
	S3Region         string `env:"S3_REGION"   envDefault:"auto"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"true"`

	// Cross-Origin Resource Sharing; comma-separated list of allowed origins.
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Best-effort .env for local development; absence is not an error and
	// godotenv never overrides variables already present in the environment.
	_ = godotenv.Load()

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// # Derived Settings

// AccessTokenTTL returns the access-token lifetime as a duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh-token (and app-session) lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

// SSOSessionTTL returns the global SSO session lifetime.
func (c *Config) SSOSessionTTL() time.Duration {
	return time.Duration(c.SSOSessionDays) * 24 * time.Hour
}

// AllowedOrigins splits CORS_ORIGINS into a trimmed slice.
func (c *Config) AllowedOrigins() []string {
	return query.StringSlice(c.CORSOrigins)
}
