package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownEmail       = fmt.Errorf("%w: no user with this email", ErrInvalidCredentials)
	ErrInvalidPassword    = fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
)

// Keep this small interface so tests can fake it easily.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type Authenticator struct {
	users UserLookup
}

func NewAuthenticator(users UserLookup) *Authenticator {
	return &Authenticator{users: users}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// unknown emails are still compared against a real hash so both failures cost the same
func timingHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = security.HashPassword("usergate-timing-equalizer")
	})
	return dummyHash
}

func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	u, err := a.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			_ = security.CheckPassword(timingHash(), password)
			return Identity{}, ErrUnknownEmail
		}

		return Identity{}, fmt.Errorf("lookup user by email: %w", err)
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return Identity{}, ErrInvalidPassword
	}

	return IdentityFromUser(u), nil
}
