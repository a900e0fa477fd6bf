package services

import (
	"fmt"
	"time"

	commitmentDomain "github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/reminders/domain"
)

const messageTimeLayout = "Mon 2 Jan 15:04 MST"

func composeMessage(r *domain.ReminderEvent, c *commitmentDomain.Commitment) (subject, body string) {
	loc := c.Schedule().Location()
	switch r.Type() {
	case domain.TypeGraceFinalWarning:
		closes := r.OccurrenceAt()
		if g := c.GraceExpiresAt(); g != nil {
			closes = *g
		}
		subject = "Final warning: " + c.Goal()
		body = fmt.Sprintf("The grace window for %q closes %s. Mark it complete before then or %s is charged.",
			c.Goal(), localTime(closes, loc), c.Stake())
	default:
		subject = "Check-in due: " + c.Goal()
		body = fmt.Sprintf("Time to check in on %q (%d so far). Deadline %s, %s at stake.",
			c.Goal(), c.CheckInCount(), localTime(c.Deadline(), loc), c.Stake())
	}
	return subject, body
}

func localTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(messageTimeLayout)
}
