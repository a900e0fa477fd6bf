package domain

import (
	"errors"
	"fmt"
)

var (
	ErrGoalRequired            = errors.New("goal is required")
	ErrGoalTooLong             = errors.New("goal exceeds 200 characters")
	ErrStakeNotPositive        = errors.New("stake must be greater than zero")
	ErrInvalidCurrency         = errors.New("unsupported currency")
	ErrDeadlineTooSoon         = errors.New("deadline must be at least one hour ahead")
	ErrScheduleOutsideDeadline = errors.New("schedule must first occur before the deadline")
	ErrUserRequired            = errors.New("user id is required")
	ErrLockedWindow            = errors.New("commitment is locked within 24h of its deadline")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrCommitmentNotFound      = errors.New("commitment not found")
	ErrNotOwner                = errors.New("commitment belongs to another user")
)

// InvalidTransitionError reports an operation that is not allowed from
// the commitment's current status.
type InvalidTransitionError struct {
	From      Status
	Operation string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a commitment in status %s", e.Operation, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalidTransition(from Status, op string) error {
	return &InvalidTransitionError{From: from, Operation: op}
}
