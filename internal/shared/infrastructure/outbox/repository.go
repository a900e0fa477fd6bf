package outbox

import (
	"context"
	"time"

	"github.com/jurzon/backy/internal/shared/domain"
)

// Repository persists outbox messages. Save and SaveBatch join the
// transaction in ctx so events commit with the aggregate that raised them.
type Repository interface {
	Save(ctx context.Context, msg *Message) error
	SaveBatch(ctx context.Context, msgs []*Message) error

	// Pending returns unpublished, live messages whose retry time has come,
	// oldest first.
	Pending(ctx context.Context, now time.Time, limit int) ([]*Message, error)

	MarkPublished(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error
	MarkDead(ctx context.Context, id int64, reason string, at time.Time) error

	// DeleteOld purges messages published before the cutoff.
	DeleteOld(ctx context.Context, before time.Time) (int64, error)
}

// Stage writes the events of a command to the outbox.
func Stage(ctx context.Context, repo Repository, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := NewMessages(events)
	if err != nil {
		return err
	}
	return repo.SaveBatch(ctx, msgs)
}
