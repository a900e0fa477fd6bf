package domain

import (
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

const aggregateType = "Commitment"

// Routing keys for commitment events.
const (
	RoutingKeyCreated        = "commitments.commitment.created"
	RoutingKeyCheckedIn      = "commitments.commitment.checked_in"
	RoutingKeyDecisionNeeded = "commitments.commitment.decision_needed"
	RoutingKeyCompleted      = "commitments.commitment.completed"
	RoutingKeyFailed         = "commitments.commitment.failed"
	RoutingKeyCancelled      = "commitments.commitment.cancelled"
	RoutingKeyDeleted        = "commitments.commitment.deleted"
)

var (
	_ sharedDomain.DomainEvent = (*CommitmentCreated)(nil)
	_ sharedDomain.DomainEvent = (*CheckedIn)(nil)
	_ sharedDomain.DomainEvent = (*CommitmentDecisionNeeded)(nil)
	_ sharedDomain.DomainEvent = (*CommitmentCompleted)(nil)
	_ sharedDomain.DomainEvent = (*CommitmentFailed)(nil)
	_ sharedDomain.DomainEvent = (*CommitmentCancelled)(nil)
	_ sharedDomain.DomainEvent = (*CommitmentDeleted)(nil)
)

// CommitmentCreated is emitted when a commitment is created.
type CommitmentCreated struct {
	sharedDomain.BaseEvent
	CommitmentID uuid.UUID `json:"commitment_id"`
	UserID       uuid.UUID `json:"user_id"`
	Goal         string    `json:"goal"`
	AmountMinor  int64     `json:"amount_minor"`
	Currency     string    `json:"currency"`
	Deadline     time.Time `json:"deadline"`
	Schedule     string    `json:"schedule"`
}

// NewCommitmentCreated creates a CommitmentCreated event.
func NewCommitmentCreated(c *Commitment, now time.Time) *CommitmentCreated {
	return &CommitmentCreated{
		BaseEvent:    sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyCreated, now),
		CommitmentID: c.ID(),
		UserID:       c.UserID(),
		Goal:         c.Goal(),
		AmountMinor:  c.Stake().AmountMinor,
		Currency:     c.Stake().Currency,
		Deadline:     c.Deadline(),
		Schedule:     c.Schedule().Describe(),
	}
}

// CheckedIn is emitted when the user checks in.
type CheckedIn struct {
	sharedDomain.BaseEvent
	CommitmentID uuid.UUID `json:"commitment_id"`
	UserID       uuid.UUID `json:"user_id"`
	CheckInID    uuid.UUID `json:"check_in_id"`
	CheckedInAt  time.Time `json:"occurred_at"`
	CheckInCount int       `json:"check_in_count"`
}

// NewCheckedIn creates a CheckedIn event.
func NewCheckedIn(c *Commitment, ci *CheckIn) *CheckedIn {
	return &CheckedIn{
		BaseEvent:    sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyCheckedIn, ci.OccurredAt()),
		CommitmentID: c.ID(),
		UserID:       c.UserID(),
		CheckInID:    ci.ID(),
		CheckedInAt:  ci.OccurredAt(),
		CheckInCount: c.CheckInCount(),
	}
}

// CommitmentDecisionNeeded is emitted when the deadline passes and the
// grace window opens.
type CommitmentDecisionNeeded struct {
	sharedDomain.BaseEvent
	CommitmentID   uuid.UUID `json:"commitment_id"`
	UserID         uuid.UUID `json:"user_id"`
	GraceExpiresAt time.Time `json:"grace_expires_at"`
}

// NewCommitmentDecisionNeeded creates a CommitmentDecisionNeeded event.
func NewCommitmentDecisionNeeded(c *Commitment, now time.Time) *CommitmentDecisionNeeded {
	e := &CommitmentDecisionNeeded{
		BaseEvent:    sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyDecisionNeeded, now),
		CommitmentID: c.ID(),
		UserID:       c.UserID(),
	}
	if c.GraceExpiresAt() != nil {
		e.GraceExpiresAt = *c.GraceExpiresAt()
	}
	return e
}

// CommitmentCompleted is emitted when the user confirms success.
type CommitmentCompleted struct {
	sharedDomain.BaseEvent
	CommitmentID uuid.UUID `json:"commitment_id"`
	UserID       uuid.UUID `json:"user_id"`
	CheckInCount int       `json:"check_in_count"`
}

// NewCommitmentCompleted creates a CommitmentCompleted event.
func NewCommitmentCompleted(c *Commitment, now time.Time) *CommitmentCompleted {
	return &CommitmentCompleted{
		BaseEvent:    sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyCompleted, now),
		CommitmentID: c.ID(),
		UserID:       c.UserID(),
		CheckInCount: c.CheckInCount(),
	}
}

// CommitmentFailed is emitted when a commitment is failed. It carries the
// stake so payment handling can act on it alone.
type CommitmentFailed struct {
	sharedDomain.BaseEvent
	CommitmentID uuid.UUID `json:"commitment_id"`
	UserID       uuid.UUID `json:"user_id"`
	AmountMinor  int64     `json:"amount_minor"`
	Currency     string    `json:"currency"`
	PriorStatus  string    `json:"prior_status,omitempty"`
}

// NewCommitmentFailed creates a CommitmentFailed event.
func NewCommitmentFailed(c *Commitment, now time.Time) *CommitmentFailed {
	prior := ""
	if c.DecisionNeededAt() != nil {
		prior = string(StatusDecisionNeeded)
	}
	return &CommitmentFailed{
		BaseEvent:    sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyFailed, now),
		CommitmentID: c.ID(),
		UserID:       c.UserID(),
		AmountMinor:  c.Stake().AmountMinor,
		Currency:     c.Stake().Currency,
		PriorStatus:  prior,
	}
}

// CommitmentCancelled is emitted when an active commitment is withdrawn.
type CommitmentCancelled struct {
	sharedDomain.BaseEvent
	CommitmentID uuid.UUID `json:"commitment_id"`
	UserID       uuid.UUID `json:"user_id"`
}

// NewCommitmentCancelled creates a CommitmentCancelled event.
func NewCommitmentCancelled(c *Commitment, now time.Time) *CommitmentCancelled {
	return &CommitmentCancelled{
		BaseEvent:    sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyCancelled, now),
		CommitmentID: c.ID(),
		UserID:       c.UserID(),
	}
}

// CommitmentDeleted is emitted on soft delete.
type CommitmentDeleted struct {
	sharedDomain.BaseEvent
	CommitmentID uuid.UUID `json:"commitment_id"`
	UserID       uuid.UUID `json:"user_id"`
}

// NewCommitmentDeleted creates a CommitmentDeleted event.
func NewCommitmentDeleted(c *Commitment, now time.Time) *CommitmentDeleted {
	return &CommitmentDeleted{
		BaseEvent:    sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyDeleted, now),
		CommitmentID: c.ID(),
		UserID:       c.UserID(),
	}
}
