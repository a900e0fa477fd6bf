package domain

// Status is the lifecycle state of a commitment.
type Status string

const (
	StatusActive         Status = "active"
	StatusDecisionNeeded Status = "decision_needed"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
	StatusDeleted        Status = "deleted"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusDecisionNeeded, StatusCompleted, StatusFailed, StatusCancelled, StatusDeleted:
		return true
	default:
		return false
	}
}

// IsOpen reports whether the commitment still awaits an outcome.
func (s Status) IsOpen() bool {
	return s == StatusActive || s == StatusDecisionNeeded
}

// IsTerminal reports whether the status is a final outcome that may only
// move on to Deleted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}
