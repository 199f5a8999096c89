// Package middleware provides HTTP middlewares for session gating and logging.
package middleware

import (
	"context"

	"github.com/atinyakov/FitKeeper/internal/gate"
)

type ctxKey string

const sessionKey ctxKey = "session"

// WithSession stores the resolved session in ctx.
func WithSession(ctx context.Context, s gate.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session stored by the gate middleware.
func SessionFromContext(ctx context.Context) (gate.Session, bool) {
	s, ok := ctx.Value(sessionKey).(gate.Session)
	return s, ok
}

// GetUserIDFromContext returns the identity handle of an authenticated
// session, or an empty string for guests and anonymous requests.
func GetUserIDFromContext(ctx context.Context) string {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return ""
	}
	if a, ok := s.Classification.(gate.Authenticated); ok {
		return a.Handle
	}
	return ""
}
