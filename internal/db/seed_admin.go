package db

import (
	"context"
	"errors"

	"github.com/geocoder89/usergate/internal/config"
	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/security"
)

type AdminSeedStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once. Existing accounts are left untouched.
func EnsureAdminUser(ctx context.Context, store AdminSeedStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	_, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = store.Create(ctx, user.NewFromCreateRequest(user.CreateRequest{
		Name:  cfg.AdminName,
		Email: cfg.AdminEmail,
		Role:  string(user.RoleAdmin),
	}, hash))

	// a concurrent instance may have seeded it first
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}

	return err
}
