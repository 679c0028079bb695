// Package users holds the admin user CRUD operations and public registration.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/usergate/internal/auth"
	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/security"
)

type Store interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Guard is the admin check. It runs first in every operation below, and the HTTP layer
// calls it before reading a request body.
func Guard(s *auth.Session) error {
	if s == nil {
		return ErrUnauthenticated
	}

	if !auth.Authorize(s, user.RoleAdmin) {
		return ErrForbidden
	}

	return nil
}

func (svc *Service) List(ctx context.Context, s *auth.Session) ([]user.User, error) {
	if err := Guard(s); err != nil {
		return nil, err
	}

	users, err := svc.store.List(ctx)

	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (svc *Service) Get(ctx context.Context, s *auth.Session, id string) (user.User, error) {
	if err := Guard(s); err != nil {
		return user.User{}, err
	}

	u, err := svc.store.GetByID(ctx, id)

	if err != nil {
		return user.User{}, storeErr("get user", err)
	}

	return u, nil
}

func (svc *Service) Create(ctx context.Context, s *auth.Session, req user.CreateRequest) (user.User, error) {
	if err := Guard(s); err != nil {
		return user.User{}, err
	}

	req = req.Normalize()

	if err := validateRequest(req); err != nil {
		return user.User{}, err
	}

	return createUser(ctx, svc.store, req)
}

func (svc *Service) Update(ctx context.Context, s *auth.Session, id string, req user.UpdateRequest) (user.User, error) {
	if err := Guard(s); err != nil {
		return user.User{}, err
	}

	req = req.Normalize()

	if err := validateRequest(req); err != nil {
		return user.User{}, err
	}

	current, err := svc.store.GetByID(ctx, id)

	if err != nil {
		return user.User{}, storeErr("get user", err)
	}

	next := current.Apply(req)

	if next.Email != current.Email {
		if err := ensureEmailFree(ctx, svc.store, next.Email, current.ID); err != nil {
			return user.User{}, err
		}
	}

	// an empty password means "keep the current one"
	if req.Password != nil && *req.Password != "" {
		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			return user.User{}, fmt.Errorf("hash password: %w", err)
		}

		next.PasswordHash = hash
	}

	// creation time is fixed at insert
	next.CreatedAt = current.CreatedAt

	updated, err := svc.store.Update(ctx, next)

	if err != nil {
		return user.User{}, storeErr("update user", err)
	}

	return updated, nil
}

func (svc *Service) Delete(ctx context.Context, s *auth.Session, id string) error {
	if err := Guard(s); err != nil {
		return err
	}

	if err := svc.store.Delete(ctx, id); err != nil {
		return storeErr("delete user", err)
	}

	return nil
}

func createUser(ctx context.Context, store Store, req user.CreateRequest) (user.User, error) {
	if err := ensureEmailFree(ctx, store, req.Email, ""); err != nil {
		return user.User{}, err
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := store.Create(ctx, user.NewFromCreateRequest(req, hash))

	if err != nil {
		return user.User{}, storeErr("create user", err)
	}

	return created, nil
}

// ensureEmailFree fails with ErrEmailTaken when email belongs to a user other than exceptID.
// The store's unique constraint backs this up for concurrent writers.
func ensureEmailFree(ctx context.Context, store Store, email, exceptID string) error {
	existing, err := store.GetByEmail(ctx, email)

	switch {
	case err == nil:
		if existing.ID != exceptID {
			return user.ErrEmailTaken
		}
		return nil
	case errors.Is(err, user.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check email: %w", err)
	}
}

// storeErr keeps domain sentinels matchable and wraps everything else.
func storeErr(op string, err error) error {
	if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrEmailTaken) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
