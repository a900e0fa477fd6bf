// Package ics writes commitment schedules as iCalendar (RFC 5545) data.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/jurzon/backy/internal/commitments/domain"
)

// ProductID identifies calendars produced by the exporter.
const ProductID = "-//backy//Commitments//EN"

// DefaultCheckInDuration is the length of each exported check-in slot.
const DefaultCheckInDuration = 15 * time.Minute

// Exporter renders a commitment as a VCALENDAR with a recurring check-in
// event bounded by the deadline and a separate deadline event.
type Exporter struct {
	checkInDuration time.Duration
}

// NewExporter creates an exporter. A non-positive duration uses
// DefaultCheckInDuration.
func NewExporter(checkInDuration time.Duration) *Exporter {
	if checkInDuration <= 0 {
		checkInDuration = DefaultCheckInDuration
	}
	return &Exporter{checkInDuration: checkInDuration}
}

// Calendar builds the calendar for c, stamped at now.
func (e *Exporter) Calendar(c *domain.Commitment, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")

	cal.Children = append(cal.Children, e.checkInEvent(c, now).Component, deadlineEvent(c, now).Component)
	return cal
}

// Export encodes the calendar for c to w.
func (e *Exporter) Export(w io.Writer, c *domain.Commitment, now time.Time) error {
	if err := ical.NewEncoder(w).Encode(e.Calendar(c, now)); err != nil {
		return fmt.Errorf("encode calendar for %s: %w", c.ID(), err)
	}
	return nil
}

func (e *Exporter) checkInEvent(c *domain.Commitment, now time.Time) *ical.Event {
	schedule := c.Schedule()
	start := schedule.FirstOccurrence().In(schedule.Location())

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, c.ID().String()+"@backy")
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(e.checkInDuration))
	event.Props.SetText(ical.PropSummary, "Check in: "+c.Goal())
	event.Props.SetText(ical.PropDescription, fmt.Sprintf("Stake %s, due %s. %s.",
		c.Stake(), c.Deadline().Format(time.RFC3339), schedule.Describe()))

	rule := ical.NewProp(ical.PropRecurrenceRule)
	rule.SetValueType(ical.ValueRecurrence)
	rule.Value = schedule.RRuleString(c.Deadline())
	event.Props.Set(rule)
	return event
}

func deadlineEvent(c *domain.Commitment, now time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, c.ID().String()+"-deadline@backy")
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, c.Deadline())
	event.Props.SetDateTime(ical.PropDateTimeEnd, c.Deadline())
	event.Props.SetText(ical.PropSummary, "Deadline: "+c.Goal())
	event.Props.SetText(ical.PropStatus, "CONFIRMED")
	return event
}
