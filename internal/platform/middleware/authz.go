// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/tessera/internal/platform/ctxutil"
	"github.com/taibuivan/tessera/internal/platform/sec"
)

// # Authentication & Authorization

// TokenVerifier defines the behavior needed to validate access tokens.
type TokenVerifier interface {
	VerifyToken(tokenString string, expected sec.TokenType) (*sec.TokenClaims, error)
}

// Authenticate parses the Authorization header and injects claims into context.
// It does NOT reject anonymous requests; that is RequireAuth's job. This split
// lets public and protected routes share one chain.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Extract the token from the header ──
			authHeader := request.Header.Get("Authorization")
			if authHeader == "" {
				// Anonymous request: proceed without claims
				next.ServeHTTP(writer, request)
				return
			}

			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenString == "" {
				writeError(writer, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid authorization header format")
				return
			}

			// ── 2. Verify the signature and claims ──
			claims, err := verifier.VerifyToken(tokenString, sec.TokenTypeAccess)
			if err != nil {
				writeError(writer, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
				return
			}

			// ── 3. Inject identity into the request context ──
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that do not carry a valid authenticated user.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			if claims := ctxutil.GetAuthUser(request.Context()); claims == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole rejects authenticated users below the given role level.
func RequireRole(minimum sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. The user must be authenticated first ──
			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			// ── 2. Compare privilege levels ──
			if !sec.UserRole(claims.Role).AtLeast(minimum) {
				writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser returns the authenticated claims from the request, or nil.
func GetUser(request *http.Request) *sec.TokenClaims {
	return ctxutil.GetAuthUser(request.Context())
}
