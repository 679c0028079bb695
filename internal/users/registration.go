package users

import (
	"context"

	"github.com/geocoder89/usergate/internal/domain/user"
)

// Registration is the public sign-up path. It never assigns anything but the user role
// and never starts a session.
type Registration struct {
	store Store
}

func NewRegistration(store Store) *Registration {
	return &Registration{store: store}
}

func (r *Registration) Register(ctx context.Context, req user.RegisterRequest) (user.User, error) {
	req = req.Normalize()

	if err := validateRequest(req); err != nil {
		return user.User{}, err
	}

	return createUser(ctx, r.store, user.CreateRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     string(user.RoleUser),
	})
}
