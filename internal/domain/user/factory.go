package user

import (
	"strings"
	"time"
)

// NewFromCreateRequest builds a record ready for the store. ID is left to the store.
func NewFromCreateRequest(req CreateRequest, passwordHash string) User {
	now := time.Now().UTC()

	createdAt := now
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
		createdAt = req.CreatedAt.UTC()
	}

	return User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: passwordHash,
		Role:         NormalizeRole(req.Role),
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
}

// Apply copies the supplied fields onto u. The password is handled by the caller
// because it has to be hashed first.
func (u User) Apply(req UpdateRequest) User {
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
	}
	if req.Role != nil {
		u.Role = NormalizeRole(*req.Role)
	}
	u.UpdatedAt = time.Now().UTC()

	return u
}
