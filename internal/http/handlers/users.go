package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/usergate/internal/actorctx"
	"github.com/geocoder89/usergate/internal/auth"
	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/users"
	"github.com/gin-gonic/gin"
)

// UsersService is implemented by users.Service; every call is authorized there.
type UsersService interface {
	List(ctx context.Context, s *auth.Session) ([]user.User, error)
	Get(ctx context.Context, s *auth.Session, id string) (user.User, error)
	Create(ctx context.Context, s *auth.Session, req user.CreateRequest) (user.User, error)
	Update(ctx context.Context, s *auth.Session, id string, req user.UpdateRequest) (user.User, error)
	Delete(ctx context.Context, s *auth.Session, id string) error
}

type UsersHandler struct {
	svc UsersService
	log *slog.Logger
}

func NewUsersHandler(svc UsersService, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{svc: svc, log: log}
}

// RequireAdmin applies the users service guard before anything reads the request,
// so callers without the admin role get the same 403 whatever they send.
func (h *UsersHandler) RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := users.Guard(actorctx.SessionFrom(ctx.Request.Context())); err != nil {
			respondServiceError(ctx, h.log, err, "Could not authorize request")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	list, err := h.svc.List(ctx.Request.Context(), actorctx.SessionFrom(ctx.Request.Context()))

	if err != nil {
		respondServiceError(ctx, h.log, err, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, list)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	u, err := h.svc.Get(ctx.Request.Context(), actorctx.SessionFrom(ctx.Request.Context()), ctx.Param("id"))

	if err != nil {
		respondServiceError(ctx, h.log, err, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateRequest

	if !DecodeJSON(ctx, &req) {
		return
	}

	u, err := h.svc.Create(ctx.Request.Context(), actorctx.SessionFrom(ctx.Request.Context()), req)

	if err != nil {
		respondServiceError(ctx, h.log, err, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	var req user.UpdateRequest

	if !DecodeJSON(ctx, &req) {
		return
	}

	u, err := h.svc.Update(ctx.Request.Context(), actorctx.SessionFrom(ctx.Request.Context()), ctx.Param("id"), req)

	if err != nil {
		respondServiceError(ctx, h.log, err, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	err := h.svc.Delete(ctx.Request.Context(), actorctx.SessionFrom(ctx.Request.Context()), ctx.Param("id"))

	if err != nil {
		respondServiceError(ctx, h.log, err, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
