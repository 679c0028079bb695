package db

import (
	"context"
	"testing"

	"github.com/geocoder89/usergate/internal/config"
	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/repo/memory"
	"github.com/geocoder89/usergate/internal/security"
)

func TestEnsureAdminUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUsersRepo()

	cfg := config.Config{AdminEmail: "admin@example.com", AdminPassword: "changeme", AdminName: "Admin"}

	if err := EnsureAdminUser(ctx, store, cfg); err != nil {
		t.Fatalf("EnsureAdminUser error: %v", err)
	}
	// second run is a no-op
	if err := EnsureAdminUser(ctx, store, cfg); err != nil {
		t.Fatalf("EnsureAdminUser (second) error: %v", err)
	}

	list, _ := store.List(ctx)
	if len(list) != 1 {
		t.Fatalf("got %d users, want 1", len(list))
	}

	u := list[0]
	if u.Role != user.RoleAdmin {
		t.Fatalf("got role %q, want admin", u.Role)
	}
	if err := security.CheckPassword(u.PasswordHash, "changeme"); err != nil {
		t.Fatalf("seeded password does not verify: %v", err)
	}
}

func TestEnsureAdminUser_DisabledWithoutCredentials(t *testing.T) {
	store := memory.NewUsersRepo()

	if err := EnsureAdminUser(context.Background(), store, config.Config{}); err != nil {
		t.Fatalf("EnsureAdminUser error: %v", err)
	}

	list, _ := store.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("expected no users, got %d", len(list))
	}
}
