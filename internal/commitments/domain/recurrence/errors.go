package recurrence

import "errors"

var (
	ErrUnknownKind      = errors.New("unknown recurrence kind")
	ErrInvalidInterval  = errors.New("interval must not be negative")
	ErrUnknownTimezone  = errors.New("unknown timezone")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrInvalidWeekday   = errors.New("invalid weekday")
	ErrInvalidMonthDay  = errors.New("day of month must be between 1 and 31")
	ErrInvalidNth       = errors.New("nth must be 1..5 or -1 for the last week")
	ErrAnchorRequired   = errors.New("anchor date is required")
)
