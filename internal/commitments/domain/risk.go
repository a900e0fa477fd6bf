package domain

import "time"

// RiskBadge summarizes how likely a commitment is to succeed.
type RiskBadge string

const (
	RiskOnTrack        RiskBadge = "OnTrack"
	RiskSlightlyBehind RiskBadge = "SlightlyBehind"
	RiskBehind         RiskBadge = "Behind"
	RiskAtRisk         RiskBadge = "AtRisk"
	RiskCritical       RiskBadge = "Critical"
	RiskDecisionNeeded RiskBadge = "DecisionNeeded"
)

const finalDayWindow = 24 * time.Hour

// ExpectedCheckIns is the number of scheduled occurrences from the first
// one up to now.
func (c *Commitment) ExpectedCheckIns(now time.Time) int {
	return c.schedule.CountOccurrencesUpTo(now, c.deadline, 0)
}

// Adherence is check-ins divided by expected check-ins at now. With nothing
// expected yet the commitment counts as fully on track.
func (c *Commitment) Adherence(now time.Time) float64 {
	expected := c.ExpectedCheckIns(now)
	if expected == 0 {
		return 1
	}
	return float64(len(c.checkIns)) / float64(expected)
}

// RiskBadge derives the badge at now. It is never persisted.
func (c *Commitment) RiskBadge(now time.Time) RiskBadge {
	if c.status == StatusDecisionNeeded {
		return RiskDecisionNeeded
	}
	adherence := c.Adherence(now)

	if c.deadline.Sub(now) < finalDayWindow {
		switch {
		case adherence < 0.5:
			return RiskCritical
		case adherence < 0.75:
			return RiskAtRisk
		default:
			return RiskOnTrack
		}
	}

	switch {
	case adherence >= 0.9:
		return RiskOnTrack
	case adherence >= 0.7:
		return RiskSlightlyBehind
	case adherence >= 0.5:
		return RiskBehind
	default:
		return RiskAtRisk
	}
}
