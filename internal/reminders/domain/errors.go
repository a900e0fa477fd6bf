package domain

import "errors"

var (
	ErrReminderNotPending  = errors.New("reminder is not pending")
	ErrReminderNotFound    = errors.New("reminder not found")
	ErrInvalidType         = errors.New("unknown reminder type")
	ErrInvalidQuietHour    = errors.New("quiet hour must be between 0 and 23")
	ErrQuietHoursNotFound  = errors.New("quiet hours not set")
	ErrCommitmentRequired  = errors.New("commitment id is required")
	ErrOccurrenceRequired  = errors.New("occurrence time is required")
	ErrDeferralNotInFuture = errors.New("deferral must move the reminder later")
)
