package user

import (
	"strings"
	"time"
)

// Tags use the gin "binding" key; the users service validates with the same tags.

type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required,max=120"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,max=72"`
}

type CreateRequest struct {
	Name      string     `json:"name" binding:"required,max=120"`
	Email     string     `json:"email" binding:"required,email"`
	Password  string     `json:"password" binding:"required,max=72"`
	Role      string     `json:"role" binding:"omitempty,oneof=user admin"`
	CreatedAt *time.Time `json:"createdAt"`
}

// UpdateRequest is a partial update; nil fields are left alone.
// createdAt is accepted from clients but never applied.
type UpdateRequest struct {
	Name      *string    `json:"name" binding:"omitnil,min=1,max=120"`
	Email     *string    `json:"email" binding:"omitnil,email"`
	Password  *string    `json:"password" binding:"omitnil,max=72"`
	Role      *string    `json:"role" binding:"omitnil,oneof=user admin"`
	CreatedAt *time.Time `json:"createdAt"`
}

// Normalize trims the fields whose surrounding whitespace carries no meaning. Passwords
// are left exactly as typed.
func (r RegisterRequest) Normalize() RegisterRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

func (r CreateRequest) Normalize() CreateRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
	return r
}

func (r UpdateRequest) Normalize() UpdateRequest {
	r.Name = trimmedPtr(r.Name)
	r.Email = trimmedPtr(r.Email)
	r.Role = trimmedPtr(r.Role)
	return r
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
