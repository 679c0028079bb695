package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/geocoder89/usergate/internal/actorctx"
	"github.com/geocoder89/usergate/internal/auth"
	"github.com/geocoder89/usergate/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type SessionReader interface {
	Read(ctx context.Context, token string) (*auth.Session, bool)
}

type SessionMiddleware struct {
	sessions SessionReader
}

func NewSessionMiddleware(sessions SessionReader) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// TokenFromRequest prefers the session cookie and falls back to a bearer header.
func TokenFromRequest(c *gin.Context) string {
	if raw, err := c.Cookie(auth.SessionCookieName); err == nil && raw != "" {
		return raw
	}

	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}

	return ""
}

// LoadSession attaches the caller's session when there is a valid one. It never rejects;
// deciding what an anonymous caller may do is left to handlers and services.
func (m *SessionMiddleware) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := TokenFromRequest(c)

		if raw != "" {
			if s, ok := m.sessions.Read(c.Request.Context(), raw); ok {
				c.Set(CtxSession, s)
				c.Request = c.Request.WithContext(actorctx.WithSession(c.Request.Context(), s))
			}
		}

		c.Next()
	}
}

// RequireSession rejects anonymous callers: pages are redirected to /login, API calls get 401.
func (m *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFromContext(c) != nil {
			c.Next()
			return
		}

		if wantsHTML(c) {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		handlers.RespondUnAuthorized(c, "unauthorized", "Missing or invalid session")
		c.Abort()
	}
}

func SessionFromContext(c *gin.Context) *auth.Session {
	v, ok := c.Get(CtxSession)
	if !ok {
		return nil
	}
	s, _ := v.(*auth.Session)
	return s
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html")
}
