package domain

import (
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

// Type tags what a reminder is about.
type Type string

const (
	TypeCheckInDue        Type = "reminder.checkin_due"
	TypeGraceFinalWarning Type = "commitment.grace_final_warning"
)

func (t Type) IsValid() bool {
	return t == TypeCheckInDue || t == TypeGraceFinalWarning
}

// Status is the delivery state of a reminder.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
)

// ReminderEvent is a single notification owed to the owner of a
// commitment. OccurrenceAt is the instant it was materialized for and never
// changes; ScheduledFor moves forward each time the reminder is deferred.
type ReminderEvent struct {
	sharedDomain.BaseEntity
	commitmentID  uuid.UUID
	reminderType  Type
	occurrenceAt  time.Time
	scheduledFor  time.Time
	deferralCount int
	status        Status
	processedAt   *time.Time
	lastError     string
}

// NewReminderEvent creates a pending reminder due at occurrenceAt.
func NewReminderEvent(commitmentID uuid.UUID, t Type, occurrenceAt, now time.Time) (*ReminderEvent, error) {
	if commitmentID == uuid.Nil {
		return nil, ErrCommitmentRequired
	}
	if !t.IsValid() {
		return nil, ErrInvalidType
	}
	if occurrenceAt.IsZero() {
		return nil, ErrOccurrenceRequired
	}
	return &ReminderEvent{
		BaseEntity:   sharedDomain.NewBaseEntity(now),
		commitmentID: commitmentID,
		reminderType: t,
		occurrenceAt: occurrenceAt.UTC(),
		scheduledFor: occurrenceAt.UTC(),
		status:       StatusPending,
	}, nil
}

// ReminderSnapshot is the persisted state of a reminder.
type ReminderSnapshot struct {
	ID            uuid.UUID
	CommitmentID  uuid.UUID
	Type          Type
	OccurrenceAt  time.Time
	ScheduledFor  time.Time
	DeferralCount int
	Status        Status
	ProcessedAt   *time.Time
	LastError     string
	CreatedAt     time.Time
}

// RehydrateReminderEvent recreates a reminder from persisted state.
func RehydrateReminderEvent(s ReminderSnapshot) *ReminderEvent {
	updated := s.CreatedAt
	if s.ProcessedAt != nil {
		updated = *s.ProcessedAt
	}
	return &ReminderEvent{
		BaseEntity:    sharedDomain.RehydrateBaseEntity(s.ID, s.CreatedAt, updated),
		commitmentID:  s.CommitmentID,
		reminderType:  s.Type,
		occurrenceAt:  s.OccurrenceAt.UTC(),
		scheduledFor:  s.ScheduledFor.UTC(),
		deferralCount: s.DeferralCount,
		status:        s.Status,
		processedAt:   s.ProcessedAt,
		lastError:     s.LastError,
	}
}

func (r *ReminderEvent) CommitmentID() uuid.UUID { return r.commitmentID }
func (r *ReminderEvent) Type() Type              { return r.reminderType }
func (r *ReminderEvent) OccurrenceAt() time.Time { return r.occurrenceAt }
func (r *ReminderEvent) ScheduledFor() time.Time { return r.scheduledFor }
func (r *ReminderEvent) DeferralCount() int      { return r.deferralCount }
func (r *ReminderEvent) Status() Status          { return r.status }
func (r *ReminderEvent) ProcessedAt() *time.Time { return r.processedAt }
func (r *ReminderEvent) LastError() string       { return r.lastError }
func (r *ReminderEvent) IsPending() bool         { return r.status == StatusPending }

// IsDue reports whether a pending reminder should be handled at now.
func (r *ReminderEvent) IsDue(now time.Time) bool {
	return r.IsPending() && !r.scheduledFor.After(now)
}

// Defer moves a pending reminder to until and counts the deferral.
func (r *ReminderEvent) Defer(until, now time.Time) error {
	if !r.IsPending() {
		return ErrReminderNotPending
	}
	if !until.After(now) {
		return ErrDeferralNotInFuture
	}
	r.scheduledFor = until.UTC()
	r.deferralCount++
	r.TouchAt(now)
	return nil
}

// MarkSent records a successful delivery.
func (r *ReminderEvent) MarkSent(now time.Time) error {
	if !r.IsPending() {
		return ErrReminderNotPending
	}
	r.status = StatusSent
	r.processedAt = stamp(now)
	r.lastError = ""
	r.TouchAt(now)
	return nil
}

// MarkSkipped closes a reminder that will never be delivered.
func (r *ReminderEvent) MarkSkipped(reason string, now time.Time) error {
	if !r.IsPending() {
		return ErrReminderNotPending
	}
	r.status = StatusSkipped
	r.processedAt = stamp(now)
	r.lastError = reason
	r.TouchAt(now)
	return nil
}

// RecordFailure keeps the reminder pending and notes the delivery error.
func (r *ReminderEvent) RecordFailure(err error, now time.Time) {
	if err != nil {
		r.lastError = err.Error()
	}
	r.TouchAt(now)
}

func stamp(now time.Time) *time.Time {
	t := now.UTC()
	return &t
}
