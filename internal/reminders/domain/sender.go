package domain

import (
	"context"

	"github.com/google/uuid"
)

// Sender delivers a notification to a user over a channel.
type Sender interface {
	Send(ctx context.Context, userID uuid.UUID, channel, subject, body string) error
}
