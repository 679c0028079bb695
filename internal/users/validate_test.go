package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/repo/memory"
	"github.com/geocoder89/usergate/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 72 runes, 144 bytes
var longMultibytePassword = strings.Repeat("é", 72)

func requireFieldRule(t *testing.T, err error, field, rule string) {
	t.Helper()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)

	for _, f := range verr.Fields {
		if f.Field == field {
			assert.Equal(t, rule, f.Rule)
			return
		}
	}
	t.Fatalf("no error for field %q in %+v", field, verr.Fields)
}

func TestPasswordByteLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUsersRepo()
	svc := NewService(store)
	reg := NewRegistration(store)

	_, err := reg.Register(ctx, user.RegisterRequest{Name: "Sam", Email: "sam@x.com", Password: longMultibytePassword})
	requireFieldRule(t, err, "password", "max_bytes")

	_, err = svc.Create(ctx, adminSession(), user.CreateRequest{Name: "A", Email: "a@x.com", Password: longMultibytePassword})
	requireFieldRule(t, err, "password", "max_bytes")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "rejected passwords must not create records")

	u, err := svc.Create(ctx, adminSession(), user.CreateRequest{Name: "B", Email: "b@x.com", Password: "p1"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, adminSession(), u.ID, user.UpdateRequest{Password: strPtr(longMultibytePassword)})
	requireFieldRule(t, err, "password", "max_bytes")

	stored, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NoError(t, security.CheckPassword(stored.PasswordHash, "p1"), "hash must be unchanged")

	// exactly at the limit is fine
	atLimit := strings.Repeat("é", security.MaxPasswordBytes/2)
	_, err = reg.Register(ctx, user.RegisterRequest{Name: "Sam", Email: "sam@x.com", Password: atLimit})
	assert.NoError(t, err)
}

func TestBlankNamesAreRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUsersRepo()
	svc := NewService(store)
	reg := NewRegistration(store)

	_, err := reg.Register(ctx, user.RegisterRequest{Name: "   ", Email: "sam@x.com", Password: "p1"})
	requireFieldRule(t, err, "name", "required")

	_, err = svc.Create(ctx, adminSession(), user.CreateRequest{Name: "\t ", Email: "a@x.com", Password: "p1"})
	requireFieldRule(t, err, "name", "required")

	u, err := svc.Create(ctx, adminSession(), user.CreateRequest{Name: "  B  ", Email: " b@x.com ", Password: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "B", u.Name)
	assert.Equal(t, "b@x.com", u.Email)

	_, err = svc.Update(ctx, adminSession(), u.ID, user.UpdateRequest{Name: strPtr("   ")})
	requireFieldRule(t, err, "name", "min")

	stored, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", stored.Name)
}
