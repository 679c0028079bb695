package notifications

import "context"

// PasswordResetInput carries what a real sender needs. Loggers should stick to
// UserID and RequestID.
type PasswordResetInput struct {
	UserID    string
	Email     string
	Name      string
	RequestID string
}

// Notifier delivers account messages. Only a logging implementation exists; real
// delivery is not part of this service.
type Notifier interface {
	SendPasswordReset(ctx context.Context, input PasswordResetInput) error
}
