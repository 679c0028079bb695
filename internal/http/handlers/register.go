package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type Registrar interface {
	Register(ctx context.Context, req user.RegisterRequest) (user.User, error)
}

type RegisterHandler struct {
	reg Registrar
	log *slog.Logger
}

func NewRegisterHandler(reg Registrar, log *slog.Logger) *RegisterHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RegisterHandler{reg: reg, log: log}
}

// Register accepts a form post or JSON. It does not sign the new user in.
func (h *RegisterHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !Bind(ctx, &req) {
		return
	}

	if _, err := h.reg.Register(ctx.Request.Context(), req); err != nil {
		respondServiceError(ctx, h.log, err, "Could not register user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
