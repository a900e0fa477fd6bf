package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReminderRepository persists reminder events.
type ReminderRepository interface {
	// Insert stores a new reminder. It reports false, without error, when a
	// reminder for the same commitment, type and occurrence already exists.
	Insert(ctx context.Context, r *ReminderEvent) (bool, error)

	ExistsAt(ctx context.Context, commitmentID uuid.UUID, t Type, occurrenceAt time.Time) (bool, error)

	// FindByID returns ErrReminderNotFound when no reminder matches.
	FindByID(ctx context.Context, id uuid.UUID) (*ReminderEvent, error)

	// FindByCommitment lists a commitment's reminders by occurrence.
	FindByCommitment(ctx context.Context, commitmentID uuid.UUID) ([]*ReminderEvent, error)

	// PendingDue lists pending reminders scheduled at or before now, oldest first.
	PendingDue(ctx context.Context, now time.Time, limit int) ([]*ReminderEvent, error)

	// SaveBatch writes the mutable state of existing reminders.
	SaveBatch(ctx context.Context, reminders []*ReminderEvent) error
}

// QuietHoursRepository persists per-user quiet hours.
type QuietHoursRepository interface {
	// FindByUser returns ErrQuietHoursNotFound when the user has no window.
	FindByUser(ctx context.Context, userID uuid.UUID) (*QuietHours, error)
	Save(ctx context.Context, q *QuietHours) error
	Delete(ctx context.Context, userID uuid.UUID) error
}
