package auth

import "github.com/geocoder89/usergate/internal/domain/user"

// Authorize reports whether s may call an operation that needs the required role.
func Authorize(s *Session, required user.Role) bool {
	return s != nil && s.Role == required
}
