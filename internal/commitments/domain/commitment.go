package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

const (
	// MaxGoalLength is the longest goal accepted, in characters.
	MaxGoalLength = 200

	minDeadlineLead = time.Hour
	editingLockLead = 24 * time.Hour
)

// Commitment is a goal backed by a stake, checked in on a recurring schedule
// until its deadline.
type Commitment struct {
	sharedDomain.BaseAggregateRoot
	userID           uuid.UUID
	goal             string
	stake            Money
	deadline         time.Time
	timezone         string
	schedule         recurrence.Pattern
	status           Status
	checkIns         []*CheckIn
	decisionNeededAt *time.Time
	graceExpiresAt   *time.Time
	completedAt      *time.Time
	failedAt         *time.Time
	cancelledAt      *time.Time
	deletedAt        *time.Time
}

// NewCommitmentParams holds the inputs for NewCommitment.
type NewCommitmentParams struct {
	UserID   uuid.UUID
	Goal     string
	Stake    Money
	Deadline time.Time
	// Timezone defaults to the schedule's zone when empty.
	Timezone string
	Schedule recurrence.Pattern
}

// NewCommitment validates the params and creates an active commitment.
func NewCommitment(p NewCommitmentParams, now time.Time) (*Commitment, error) {
	if p.UserID == uuid.Nil {
		return nil, ErrUserRequired
	}
	goal := strings.TrimSpace(p.Goal)
	if goal == "" {
		return nil, ErrGoalRequired
	}
	if utf8.RuneCountInString(goal) > MaxGoalLength {
		return nil, ErrGoalTooLong
	}
	stake, err := NewMoney(p.Stake.AmountMinor, p.Stake.Currency)
	if err != nil {
		return nil, err
	}
	deadline := p.Deadline.UTC()
	if deadline.Before(now.Add(minDeadlineLead)) {
		return nil, ErrDeadlineTooSoon
	}
	if !p.Schedule.Kind().IsValid() || !p.Schedule.FirstOccurrence().Before(deadline) {
		return nil, ErrScheduleOutsideDeadline
	}
	timezone := p.Timezone
	if timezone == "" {
		timezone = p.Schedule.Timezone()
	}

	c := &Commitment{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(sharedDomain.NewBaseEntity(now)),
		userID:            p.UserID,
		goal:              goal,
		stake:             stake,
		deadline:          deadline,
		timezone:          timezone,
		schedule:          p.Schedule,
		status:            StatusActive,
		checkIns:          make([]*CheckIn, 0),
	}
	c.AddDomainEvent(NewCommitmentCreated(c, now))
	return c, nil
}

// Snapshot is the persisted state of a commitment.
type Snapshot struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Goal             string
	Stake            Money
	Deadline         time.Time
	Timezone         string
	Schedule         recurrence.Pattern
	Status           Status
	CheckIns         []*CheckIn
	DecisionNeededAt *time.Time
	GraceExpiresAt   *time.Time
	CompletedAt      *time.Time
	FailedAt         *time.Time
	CancelledAt      *time.Time
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RehydrateCommitment recreates a commitment from persisted state.
func RehydrateCommitment(s Snapshot) *Commitment {
	checkIns := s.CheckIns
	if checkIns == nil {
		checkIns = make([]*CheckIn, 0)
	}
	return &Commitment{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(sharedDomain.RehydrateBaseEntity(s.ID, s.CreatedAt, s.UpdatedAt)),
		userID:            s.UserID,
		goal:              s.Goal,
		stake:             s.Stake,
		deadline:          s.Deadline.UTC(),
		timezone:          s.Timezone,
		schedule:          s.Schedule,
		status:            s.Status,
		checkIns:          checkIns,
		decisionNeededAt:  s.DecisionNeededAt,
		graceExpiresAt:    s.GraceExpiresAt,
		completedAt:       s.CompletedAt,
		failedAt:          s.FailedAt,
		cancelledAt:       s.CancelledAt,
		deletedAt:         s.DeletedAt,
	}
}

// Getters
func (c *Commitment) UserID() uuid.UUID            { return c.userID }
func (c *Commitment) Goal() string                 { return c.goal }
func (c *Commitment) Stake() Money                 { return c.stake }
func (c *Commitment) Deadline() time.Time          { return c.deadline }
func (c *Commitment) Timezone() string             { return c.timezone }
func (c *Commitment) Schedule() recurrence.Pattern { return c.schedule }
func (c *Commitment) Status() Status               { return c.status }
func (c *Commitment) CheckIns() []*CheckIn         { return c.checkIns }
func (c *Commitment) CheckInCount() int            { return len(c.checkIns) }
func (c *Commitment) DecisionNeededAt() *time.Time { return c.decisionNeededAt }
func (c *Commitment) GraceExpiresAt() *time.Time   { return c.graceExpiresAt }
func (c *Commitment) CompletedAt() *time.Time      { return c.completedAt }
func (c *Commitment) FailedAt() *time.Time         { return c.failedAt }
func (c *Commitment) CancelledAt() *time.Time      { return c.cancelledAt }
func (c *Commitment) DeletedAt() *time.Time        { return c.deletedAt }
func (c *Commitment) EditingLockedAt() time.Time   { return c.deadline.Add(-editingLockLead) }
func (c *Commitment) IsDeleted() bool              { return c.status == StatusDeleted }

// Snapshot returns the persistable state of the commitment.
func (c *Commitment) Snapshot() Snapshot {
	return Snapshot{
		ID:               c.ID(),
		UserID:           c.userID,
		Goal:             c.goal,
		Stake:            c.stake,
		Deadline:         c.deadline,
		Timezone:         c.timezone,
		Schedule:         c.schedule,
		Status:           c.status,
		CheckIns:         c.checkIns,
		DecisionNeededAt: c.decisionNeededAt,
		GraceExpiresAt:   c.graceExpiresAt,
		CompletedAt:      c.completedAt,
		FailedAt:         c.failedAt,
		CancelledAt:      c.cancelledAt,
		DeletedAt:        c.deletedAt,
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
	}
}

// IsInGrace reports whether the commitment awaits a decision and its grace
// window is still open at now.
func (c *Commitment) IsInGrace(now time.Time) bool {
	return c.status == StatusDecisionNeeded && c.graceExpiresAt != nil && !now.After(*c.graceExpiresAt)
}

// TransitionToDecisionNeeded opens the grace window after the deadline.
func (c *Commitment) TransitionToDecisionNeeded(grace time.Duration, now time.Time) error {
	if c.status != StatusActive {
		return invalidTransition(c.status, "request a decision for")
	}
	expires := c.deadline.Add(grace)
	c.status = StatusDecisionNeeded
	c.decisionNeededAt = stamp(now)
	c.graceExpiresAt = &expires
	c.TouchAt(now)
	c.AddDomainEvent(NewCommitmentDecisionNeeded(c, now))
	return nil
}

// Complete marks a commitment awaiting a decision as achieved.
func (c *Commitment) Complete(now time.Time) error {
	if c.status != StatusDecisionNeeded {
		return invalidTransition(c.status, "complete")
	}
	c.status = StatusCompleted
	c.completedAt = stamp(now)
	c.TouchAt(now)
	c.AddDomainEvent(NewCommitmentCompleted(c, now))
	return nil
}

// Fail marks the commitment as missed, forfeiting the stake.
func (c *Commitment) Fail(now time.Time) error {
	if !c.status.IsOpen() {
		return invalidTransition(c.status, "fail")
	}
	c.status = StatusFailed
	c.failedAt = stamp(now)
	c.TouchAt(now)
	c.AddDomainEvent(NewCommitmentFailed(c, now))
	return nil
}

// Cancel withdraws an active commitment. It is refused once the editing
// lock (deadline - 24h) has passed.
func (c *Commitment) Cancel(now time.Time) error {
	if c.status != StatusActive {
		return invalidTransition(c.status, "cancel")
	}
	if !now.Before(c.EditingLockedAt()) {
		return ErrLockedWindow
	}
	c.status = StatusCancelled
	c.cancelledAt = stamp(now)
	c.TouchAt(now)
	c.AddDomainEvent(NewCommitmentCancelled(c, now))
	return nil
}

// SoftDelete hides a finished commitment.
func (c *Commitment) SoftDelete(now time.Time) error {
	if !c.status.IsTerminal() {
		return invalidTransition(c.status, "delete")
	}
	c.status = StatusDeleted
	c.deletedAt = stamp(now)
	c.TouchAt(now)
	c.AddDomainEvent(NewCommitmentDeleted(c, now))
	return nil
}

// AddCheckIn appends a check-in while the commitment is active.
func (c *Commitment) AddCheckIn(note, photoURL string, now time.Time) (*CheckIn, error) {
	if c.status != StatusActive {
		return nil, invalidTransition(c.status, "check in to")
	}
	ci := newCheckIn(c.ID(), strings.TrimSpace(note), strings.TrimSpace(photoURL), now)
	c.checkIns = append(c.checkIns, ci)
	c.TouchAt(now)
	c.AddDomainEvent(NewCheckedIn(c, ci))
	return ci, nil
}

// NextOccurrence returns the next scheduled check-in after now.
func (c *Commitment) NextOccurrence(now time.Time) (time.Time, bool) {
	return c.schedule.NextOccurrence(now, c.deadline)
}

// ProgressPercent is the share of time elapsed between creation and the
// deadline, in 0..100 with two decimals.
func (c *Commitment) ProgressPercent(now time.Time) float64 {
	total := c.deadline.Sub(c.CreatedAt())
	if total <= 0 {
		return 100
	}
	elapsed := min(max(now.Sub(c.CreatedAt()), 0), total)
	pct := float64(elapsed) / float64(total) * 100
	return math.Round(pct*100) / 100
}

func stamp(now time.Time) *time.Time {
	t := now.UTC()
	return &t
}
