// Package notify provides reminder Sender implementations.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, userID uuid.UUID, channel, subject, body string) error {
	s.logger.InfoContext(ctx, "notification",
		"user_id", userID,
		"channel", channel,
		"subject", subject,
		"body", body,
	)
	return nil
}
