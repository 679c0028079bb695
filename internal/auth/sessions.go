package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SessionCookieName is the HttpOnly cookie carrying the session token.
const SessionCookieName = "session_token"

type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Sessions decodes tokens into sessions and honours logouts.
type Sessions struct {
	tokens  *Manager
	revoked RevocationStore
	log     *slog.Logger
}

func NewSessions(tokens *Manager, revoked RevocationStore, log *slog.Logger) *Sessions {
	if log == nil {
		log = slog.Default()
	}

	return &Sessions{tokens: tokens, revoked: revoked, log: log}
}

func (s *Sessions) Issue(id Identity) (string, time.Time, error) {
	return s.tokens.Issue(id)
}

// Read returns the session for token, or false. Revocation lookups that fail are
// treated as "no session".
func (s *Sessions) Read(ctx context.Context, token string) (*Session, bool) {
	sess, ok := s.tokens.Parse(token)

	if !ok {
		return nil, false
	}

	if s.revoked == nil || sess.TokenID == "" {
		return sess, true
	}

	revoked, err := s.revoked.IsRevoked(ctx, sess.TokenID)

	if err != nil {
		s.log.WarnContext(ctx, "revocation lookup failed", "err", err)
		return nil, false
	}

	if revoked {
		return nil, false
	}

	return sess, true
}

// End revokes the token behind sess until it would have expired anyway.
func (s *Sessions) End(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("no session")
	}

	if s.revoked == nil || sess.TokenID == "" {
		return nil
	}

	until := time.Unix(sess.ExpiresAt, 0)

	if sess.ExpiresAt == 0 {
		until = time.Now().Add(s.tokens.sessionTTL)
	}

	return s.revoked.Revoke(ctx, sess.TokenID, until)
}
