package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/meeting-coordinator/internal/application"
	"github.com/example/meeting-coordinator/internal/logging"
)

// Identity headers set by the fronting auth layer. Requests reaching this
// service are expected to have been authenticated upstream.
const (
	identityUserIDHeader = "X-User-Id"
	identityEmailHeader  = "X-User-Email"
)

// RequireIdentity extracts the authenticated identity from the trusted
// headers and attaches it to the request context as the principal. Requests
// without an identity are rejected.
func RequireIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(identityUserIDHeader))
			email := strings.TrimSpace(r.Header.Get(identityEmailHeader))
			if userID == "" || email == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
				return
			}

			principal := application.Principal{UserID: userID, Email: email}
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a per-request logger to the context and records the
// request lifecycle.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
