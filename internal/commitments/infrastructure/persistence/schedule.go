package persistence

import (
	"time"

	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
)

const commitmentColumns = `
	id, user_id, goal, stake_amount_minor, currency, deadline, timezone, status,
	schedule_kind, schedule_interval, schedule_anchor, schedule_time, schedule_timezone,
	schedule_weekdays, schedule_day_of_month, schedule_nth, schedule_weekday,
	decision_needed_at, grace_expires_at, completed_at, failed_at, cancelled_at, deleted_at,
	created_at, updated_at`

const checkInColumns = `id, commitment_id, occurred_at, note, photo_url, created_at`

// scheduleRow is the flattened recurrence pattern as stored in the
// schedule_* columns.
type scheduleRow struct {
	Kind       string
	Interval   int
	Time       string
	Timezone   string
	Weekdays   int
	DayOfMonth int
	Nth        int
	Weekday    int
}

func newScheduleRow(p recurrence.Pattern) (scheduleRow, recurrence.Date) {
	s := p.Spec()
	return scheduleRow{
		Kind:       string(s.Kind),
		Interval:   s.Interval,
		Time:       s.TimeOfDay.String(),
		Timezone:   s.Timezone,
		Weekdays:   int(s.Weekdays),
		DayOfMonth: s.DayOfMonth,
		Nth:        s.Nth,
		Weekday:    int(s.Weekday),
	}, s.Anchor
}

func (r scheduleRow) pattern(anchor recurrence.Date) (recurrence.Pattern, error) {
	at, err := recurrence.ParseTimeOfDay(r.Time)
	if err != nil {
		return recurrence.Pattern{}, err
	}
	return recurrence.FromSpec(recurrence.Spec{
		Kind:       recurrence.Kind(r.Kind),
		Interval:   r.Interval,
		Anchor:     anchor,
		TimeOfDay:  at,
		Timezone:   r.Timezone,
		Weekdays:   recurrence.WeekdaySet(r.Weekdays),
		DayOfMonth: r.DayOfMonth,
		Nth:        r.Nth,
		Weekday:    time.Weekday(r.Weekday),
	})
}
