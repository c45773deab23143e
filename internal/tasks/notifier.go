package tasks

import (
	"context"
	"log/slog"
)

// Notifier is the delivery channel for notification messages. The actual
// transport (email, push, chat) lives outside this service.
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
}

// LogNotifier writes deliveries to the log. Used as the default channel and
// in development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, message string) error {
	n.logger.InfoContext(ctx, "Notification",
		"recipient", recipient,
		"message", message)
	return nil
}
