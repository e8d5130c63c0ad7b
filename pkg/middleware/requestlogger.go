package middleware

import (
	"log/slog"
	"net/http"

	"github.com/crispydelights/storefront/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// session_id, trace_id and span_id and stores it in the context, where
// handlers pick it up with logger.FromContext.
//
// Mount it after RequestLogging and Tracing so their context values exist.
// Routes mounted behind Session get the session ID from context; elsewhere
// the raw header is used when present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if logger.SessionIDFromContext(ctx) == "" {
				if sid := r.Header.Get(SessionHeader); sid != "" {
					ctx = logger.WithSessionID(ctx, sid)
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
