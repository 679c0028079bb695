package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/usergate/internal/actorctx"
	"github.com/geocoder89/usergate/internal/auth"
	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/notifications"
	"github.com/gin-gonic/gin"
)

type CredentialChecker interface {
	Authenticate(ctx context.Context, email, password string) (auth.Identity, error)
}

type SessionStore interface {
	Issue(id auth.Identity) (string, time.Time, error)
	End(ctx context.Context, sess *auth.Session) error
}

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// LoginObserver is implemented by observability.Prom.
type LoginObserver interface {
	ObserveLogin(result string)
}

type AuthHandler struct {
	creds    CredentialChecker
	sessions SessionStore
	users    UserReader
	notifier notifications.Notifier
	metrics  LoginObserver
	secure   bool
	log      *slog.Logger
}

type AuthHandlerConfig struct {
	Credentials CredentialChecker
	Sessions    SessionStore
	Users       UserReader
	Notifier    notifications.Notifier
	Metrics     LoginObserver
	// SecureCookies marks the session cookie Secure (prod).
	SecureCookies bool
	Log           *slog.Logger
}

func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		creds:    cfg.Credentials,
		sessions: cfg.Sessions,
		users:    cfg.Users,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		secure:   cfg.SecureCookies,
		log:      log,
	}
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

const forgotPasswordMessage = "If an account exists for this email, a reset link has been sent."

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !Bind(ctx, &req) {
		return
	}

	// short timeout for the store lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	id, err := h.creds.Authenticate(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.observe("invalid")
			h.log.WarnContext(ctx.Request.Context(), "login rejected", "request_id", requestIDFrom(ctx))
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		h.observe("error")
		h.log.ErrorContext(ctx.Request.Context(), "login failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Could not sign in")
		return
	}

	token, expiresAt, err := h.sessions.Issue(id)

	if err != nil {
		h.observe("error")
		h.log.ErrorContext(ctx.Request.Context(), "issue session", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.observe("ok")
	h.setSessionCookie(ctx, token, expiresAt)

	// the token only travels in the HttpOnly cookie
	ctx.JSON(http.StatusOK, gin.H{
		"user":      id,
		"expiresAt": expiresAt,
	})
}

// Session echoes the caller's session, like a client-side session fetch.
func (h *AuthHandler) Session(ctx *gin.Context) {
	s := actorctx.SessionFrom(ctx.Request.Context())

	if s == nil {
		RespondUnAuthorized(ctx, "unauthorized", "Missing or invalid session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":      s.Identity,
		"expiresAt": time.Unix(s.ExpiresAt, 0).UTC(),
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	s := actorctx.SessionFrom(ctx.Request.Context())

	if s != nil {
		if err := h.sessions.End(ctx.Request.Context(), s); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "end session", "err", err, "user_id", s.ID)
			RespondInternal(ctx, "Could not sign out")
			return
		}
	}

	h.clearSessionCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// ForgotPassword answers the same way whether or not the email is known.
func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !Bind(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	switch {
	case err == nil:
		in := notifications.PasswordResetInput{
			UserID:    u.ID,
			Email:     u.Email,
			Name:      u.Name,
			RequestID: requestIDFrom(ctx),
		}
		if err := h.notifier.SendPasswordReset(cctx, in); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "send password reset", "err", err, "request_id", in.RequestID)
		}
	case errors.Is(err, user.ErrNotFound):
	default:
		h.log.ErrorContext(ctx.Request.Context(), "forgot password lookup", "err", err, "request_id", requestIDFrom(ctx))
	}

	ctx.JSON(http.StatusAccepted, gin.H{"message": forgotPasswordMessage})
}

func (h *AuthHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(result)
	}
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		auth.SessionCookieName,
		token,
		maxAge,
		"/",
		"",
		h.secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		auth.SessionCookieName,
		"",
		-1,
		"/",
		"",
		h.secure,
		true,
	)
}
