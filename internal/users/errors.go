package users

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthenticated is returned when a protected operation is called without a session.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when the session's role does not grant the operation.
	ErrForbidden = errors.New("insufficient role")
)

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError lists every rejected field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field+":"+f.Rule)
	}
	return "validation failed: " + strings.Join(names, ", ")
}
