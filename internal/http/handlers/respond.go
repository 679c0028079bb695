package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/users"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// respondServiceError maps users/store errors onto the error envelope. Unknown errors
// are logged and answered with a generic 500.
func respondServiceError(ctx *gin.Context, log *slog.Logger, err error, fallback string) {
	var verr *users.ValidationError

	switch {
	case errors.As(err, &verr):
		RespondBadRequest(ctx, "Invalid request body", validationDetails(verr))
	case errors.Is(err, user.ErrEmailTaken):
		RespondError(ctx, http.StatusBadRequest, "email_taken", "User already exists", nil)
	case errors.Is(err, users.ErrUnauthenticated):
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
	case errors.Is(err, users.ErrForbidden):
		log.WarnContext(ctx.Request.Context(), "access denied",
			"route", ctx.FullPath(),
			"method", ctx.Request.Method,
			"request_id", requestIDFrom(ctx),
		)
		RespondForbidden(ctx, "Admin role required")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	default:
		log.ErrorContext(ctx.Request.Context(), fallback,
			"err", err,
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
		)
		RespondInternal(ctx, fallback)
	}
}
