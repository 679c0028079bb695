// Package actorctx carries the caller's session through a request context.
package actorctx

import (
	"context"

	"github.com/geocoder89/usergate/internal/auth"
)

type ctxKey struct{}

func WithSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// SessionFrom returns nil when the request is unauthenticated.
func SessionFrom(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(ctxKey{}).(*auth.Session)
	return s
}

func UserIDFrom(ctx context.Context) (string, bool) {
	s := SessionFrom(ctx)
	if s == nil || s.ID == "" {
		return "", false
	}
	return s.ID, true
}
