package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/crispydelights/storefront/pkg/logger"
)

// SessionHeader carries the storefront session identifier in both directions.
const SessionHeader = "X-Session-ID"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

type sessionGeneratedKey struct{}

// Session resolves the browser session from the X-Session-ID header. A
// missing or malformed header gets a fresh UUID, which is echoed back so the
// client can keep using it. The ID is stored in the request context for the
// handlers and for logging.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sid := r.Header.Get(SessionHeader)
		if !sessionIDPattern.MatchString(sid) {
			sid = uuid.New().String()
			ctx = context.WithValue(ctx, sessionGeneratedKey{}, true)
		}

		w.Header().Set(SessionHeader, sid)

		next.ServeHTTP(w, r.WithContext(logger.WithSessionID(ctx, sid)))
	})
}

// SessionIDFromContext returns the session ID stored by Session.
func SessionIDFromContext(ctx context.Context) string {
	return logger.SessionIDFromContext(ctx)
}

// SessionGenerated reports whether Session minted the ID for this request
// because the client sent none or an invalid one.
func SessionGenerated(ctx context.Context) bool {
	v, _ := ctx.Value(sessionGeneratedKey{}).(bool)
	return v
}
