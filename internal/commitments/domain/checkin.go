package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn records that the user reported progress on a commitment.
type CheckIn struct {
	id           uuid.UUID
	commitmentID uuid.UUID
	occurredAt   time.Time
	note         string
	photoURL     string
	createdAt    time.Time
}

func newCheckIn(commitmentID uuid.UUID, note, photoURL string, now time.Time) *CheckIn {
	now = now.UTC()
	return &CheckIn{
		id:           uuid.New(),
		commitmentID: commitmentID,
		occurredAt:   now,
		note:         note,
		photoURL:     photoURL,
		createdAt:    now,
	}
}

// RehydrateCheckIn recreates a check-in from persisted state.
func RehydrateCheckIn(id, commitmentID uuid.UUID, occurredAt time.Time, note, photoURL string, createdAt time.Time) *CheckIn {
	return &CheckIn{
		id:           id,
		commitmentID: commitmentID,
		occurredAt:   occurredAt.UTC(),
		note:         note,
		photoURL:     photoURL,
		createdAt:    createdAt.UTC(),
	}
}

func (c *CheckIn) ID() uuid.UUID           { return c.id }
func (c *CheckIn) CommitmentID() uuid.UUID { return c.commitmentID }
func (c *CheckIn) OccurredAt() time.Time   { return c.occurredAt }
func (c *CheckIn) Note() string            { return c.note }
func (c *CheckIn) PhotoURL() string        { return c.photoURL }
func (c *CheckIn) CreatedAt() time.Time    { return c.createdAt }
