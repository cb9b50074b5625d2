// Package http provides the HTTP transport adapter (C10) for the gateway:
// the /mcp JSON-RPC entrypoint, OAuth introspection/revocation, health, and
// resource-server metadata.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/boomi-gateway/datahub-gateway/internal/ctxkey"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/ratelimit"
)

// requestIDContextKey is the type for the request ID context key.
type requestIDContextKey struct{}

// RequestIDKey is the context key for the request ID.
var RequestIDKey = requestIDContextKey{}

// LoggerKey is the context key for the enriched logger.
var LoggerKey = ctxkey.LoggerKey{}

// bearerTokenContextKey is the context key for the raw bearer token.
type bearerTokenContextKey struct{}

// BearerTokenKey is the context key under which BearerTokenMiddleware stores
// the raw, unvalidated bearer token. ValidateBearer performs the actual
// verification; this middleware only extracts it from the wire.
var BearerTokenKey = bearerTokenContextKey{}

// clientIDContextKey is the context key for the rate-limiter's derived
// client identifier.
type clientIDContextKey struct{}

// ClientIDKey is the context key under which RealIPMiddleware stores the
// client identifier derived by ratelimit.DeriveClientID.
var ClientIDKey = clientIDContextKey{}

// RequestIDMiddleware extracts or generates a request ID and enriches the
// logger. The request ID is stored in context using RequestIDKey; an
// enriched logger with a request_id field is stored using LoggerKey.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			enrichedLogger := logger.With("request_id", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = context.WithValue(ctx, LoggerKey, enrichedLogger)

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext retrieves the enriched logger from context, falling
// back to slog.Default() if none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// DNSRebindingProtection validates the Origin header against an allowlist,
// preventing DNS rebinding attacks. If allowedOrigins is empty, any request
// carrying an Origin header is rejected (local-only mode). Requests without
// an Origin header are allowed (same-origin or non-browser clients).
func DNSRebindingProtection(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := allowed[origin]; !ok {
				http.Error(w, "Forbidden: origin not allowed", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BearerTokenMiddleware extracts the raw bearer token from the Authorization
// header and stores it under BearerTokenKey for downstream handlers. It
// never rejects the request itself -- the ValidateBearer is the single
// place that decides whether a missing or invalid token is fatal, so a
// missing header here simply means the context carries no token.
func BearerTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			token := strings.TrimPrefix(auth, "Bearer ")
			ctx := context.WithValue(r.Context(), BearerTokenKey, token)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// BearerTokenFromContext retrieves the raw bearer token stashed by
// BearerTokenMiddleware, or "" if none was presented.
func BearerTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(BearerTokenKey).(string)
	return token
}

// RealIPMiddleware derives the client identifier used for rate limiting
// (X-Forwarded-For, then X-Real-IP, then socket address, then a hash of
// the user-agent) and stores it under ClientIDKey.
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := ratelimit.DeriveClientID(r)
		ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIDFromContext retrieves the client identifier stashed by
// RealIPMiddleware.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ClientIDKey).(string)
	return id
}
