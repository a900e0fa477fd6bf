package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for commitment persistence.
type Repository interface {
	// Save persists a commitment (create or update) together with its check-ins.
	Save(ctx context.Context, c *Commitment) error

	// FindByID returns ErrCommitmentNotFound when no commitment matches.
	FindByID(ctx context.Context, id uuid.UUID) (*Commitment, error)

	// FindByIDs loads several commitments at once. Unknown ids are ignored.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Commitment, error)

	// FindByUser lists a user's commitments, newest first.
	FindByUser(ctx context.Context, userID uuid.UUID, includeDeleted bool) ([]*Commitment, error)

	// FindActiveDueBy finds active commitments whose deadline is at or before cutoff.
	FindActiveDueBy(ctx context.Context, cutoff time.Time, limit int) ([]*Commitment, error)

	// FindGraceExpiredBy finds commitments awaiting a decision whose grace
	// window closed at or before cutoff.
	FindGraceExpiredBy(ctx context.Context, cutoff time.Time, limit int) ([]*Commitment, error)

	// FindActive lists active commitments ordered by (deadline, id),
	// starting strictly after the cursor. A nil cursor starts at the top.
	FindActive(ctx context.Context, after *ActiveCursor, limit int) ([]*Commitment, error)
}

// ActiveCursor marks a position in the (deadline, id) order of active
// commitments.
type ActiveCursor struct {
	Deadline time.Time
	ID       uuid.UUID
}

// CursorAt returns the cursor positioned on c.
func CursorAt(c *Commitment) *ActiveCursor {
	return &ActiveCursor{Deadline: c.Deadline(), ID: c.ID()}
}
