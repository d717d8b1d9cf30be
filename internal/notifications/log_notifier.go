package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier stands in for a mail provider: it logs the message it would send.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendWelcome(ctx context.Context, in WelcomeInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.welcome",
		"user_id", in.UserID,
		"username", in.Username,
		"email", in.Email,
	)
	return nil
}
