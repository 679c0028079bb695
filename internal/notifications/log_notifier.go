package notifications

import (
	"context"
	"log/slog"
)

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.password_reset",
		"user_id", in.UserID,
		"request_id", in.RequestID,
		"delivered", false,
	)
	return nil
}
