package users

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/repo/memory"
	"github.com/geocoder89/usergate/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistration_Register(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUsersRepo()
	reg := NewRegistration(store)

	u, err := reg.Register(ctx, user.RegisterRequest{Name: "Sam", Email: "sam@x.com", Password: "hunter22"})
	require.NoError(t, err)

	assert.Equal(t, user.RoleUser, u.Role)
	assert.NotEqual(t, "hunter22", u.PasswordHash)
	assert.NoError(t, security.CheckPassword(u.PasswordHash, "hunter22"))

	_, err = reg.Register(ctx, user.RegisterRequest{Name: "Sam 2", Email: "sam@x.com", Password: "other"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "a rejected registration must not create a record")
}

func TestRegistration_Validation(t *testing.T) {
	reg := NewRegistration(memory.NewUsersRepo())

	_, err := reg.Register(context.Background(), user.RegisterRequest{Email: "x"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.GreaterOrEqual(t, len(verr.Fields), 3)
}
