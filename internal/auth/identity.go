package auth

import "github.com/geocoder89/usergate/internal/domain/user"

// Identity is what a successful login proves about the caller.
type Identity struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  user.Role `json:"role"`
}

// Session is the per-request view of a previously issued token.
type Session struct {
	Identity
	TokenID   string `json:"-"`
	ExpiresAt int64  `json:"expiresAt"`
}

// NewIdentity is the only constructor for identities; role defaulting happens here.
func NewIdentity(id, email, name, role string) Identity {
	return Identity{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  user.NormalizeRole(role),
	}
}

func IdentityFromUser(u user.User) Identity {
	return NewIdentity(u.ID, u.Email, u.Name, string(u.Role))
}
