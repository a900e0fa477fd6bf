package commitment

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/application/commands"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	"gopkg.in/yaml.v3"
)

// Definition is the YAML form of a new commitment, as read by
// `backy commitment create --file`.
//
//	goal: Run three times a week
//	stake: {amount: "25.00", currency: EUR}
//	deadline: "2025-03-31 20:00"
//	timezone: Europe/Zurich
//	schedule:
//	  kind: weekly
//	  at: "07:30"
//	  weekdays: [mon, wed, fri]
type Definition struct {
	Goal     string             `yaml:"goal"`
	Stake    StakeDefinition    `yaml:"stake"`
	Deadline string             `yaml:"deadline"`
	Timezone string             `yaml:"timezone"`
	Schedule ScheduleDefinition `yaml:"schedule"`
}

// StakeDefinition accepts either a decimal amount or minor units.
type StakeDefinition struct {
	Amount      string `yaml:"amount"`
	AmountMinor int64  `yaml:"amount_minor"`
	Currency    string `yaml:"currency"`
}

// ScheduleDefinition describes the check-in recurrence.
type ScheduleDefinition struct {
	Kind       string   `yaml:"kind"`
	Interval   int      `yaml:"interval"`
	Anchor     string   `yaml:"anchor"`
	At         string   `yaml:"at"`
	Timezone   string   `yaml:"timezone"`
	Weekdays   []string `yaml:"weekdays"`
	DayOfMonth int      `yaml:"day_of_month"`
	Nth        int      `yaml:"nth"`
	Weekday    string   `yaml:"weekday"`
}

// LoadDefinition decodes a YAML definition, rejecting unknown fields.
func LoadDefinition(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty commitment definition")
		}
		return nil, fmt.Errorf("parse commitment definition: %w", err)
	}
	return &def, nil
}

// Command converts the definition into a create command. now supplies the
// schedule anchor when none is given.
func (d *Definition) Command(userID uuid.UUID, now time.Time) (commands.CreateCommitmentCommand, error) {
	timezone := d.Timezone
	if timezone == "" {
		timezone = d.Schedule.Timezone
	}
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := recurrence.LoadLocation(timezone)
	if err != nil {
		return commands.CreateCommitmentCommand{}, err
	}

	amount := d.Stake.AmountMinor
	if amount == 0 {
		if amount, err = ParseAmount(d.Stake.Amount); err != nil {
			return commands.CreateCommitmentCommand{}, err
		}
	}
	deadline, err := ParseDeadline(d.Deadline, loc)
	if err != nil {
		return commands.CreateCommitmentCommand{}, err
	}
	spec, err := d.Schedule.spec(timezone, loc, now)
	if err != nil {
		return commands.CreateCommitmentCommand{}, err
	}

	return commands.CreateCommitmentCommand{
		UserID:      userID,
		Goal:        d.Goal,
		AmountMinor: amount,
		Currency:    d.Stake.Currency,
		Deadline:    deadline,
		Timezone:    timezone,
		Schedule:    spec,
	}, nil
}

func (s ScheduleDefinition) spec(timezone string, loc *time.Location, now time.Time) (recurrence.Spec, error) {
	spec := recurrence.Spec{
		Kind:       parseKind(s.Kind),
		Interval:   s.Interval,
		Timezone:   timezone,
		DayOfMonth: s.DayOfMonth,
		Nth:        s.Nth,
	}
	if spec.Interval == 0 {
		spec.Interval = 1
	}
	if s.Timezone != "" {
		spec.Timezone = s.Timezone
	}

	if s.Anchor == "" {
		spec.Anchor = recurrence.DateOf(now.In(loc))
	} else {
		anchor, err := recurrence.ParseDate(s.Anchor)
		if err != nil {
			return spec, err
		}
		spec.Anchor = anchor
	}

	if s.At == "" {
		return spec, errors.New("schedule: at is required")
	}
	at, err := recurrence.ParseTimeOfDay(s.At)
	if err != nil {
		return spec, err
	}
	spec.TimeOfDay = at

	for _, name := range s.Weekdays {
		day, err := recurrence.ParseWeekday(name)
		if err != nil {
			return spec, err
		}
		spec.Weekdays = spec.Weekdays.With(day)
	}
	if s.Weekday != "" {
		day, err := recurrence.ParseWeekday(s.Weekday)
		if err != nil {
			return spec, err
		}
		spec.Weekday = day
	}
	return spec, nil
}

// parseKind accepts the stored kind names plus a few spellings that read
// better on the command line.
func parseKind(s string) recurrence.Kind {
	switch k := strings.ToLower(strings.TrimSpace(s)); k {
	case "monthly", "monthly-day", "monthly_by_day":
		return recurrence.KindMonthlyByDay
	case "monthly-nth", "monthly_by_nth_weekday":
		return recurrence.KindMonthlyByNthWeekday
	default:
		return recurrence.Kind(k)
	}
}

// ParseAmount converts a decimal amount such as "25", "25.5" or "25.05" to
// minor units.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("stake amount is required")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("invalid amount %q: use at most two decimals", s)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		if cents, err = strconv.ParseInt(frac, 10, 64); err != nil || cents < 0 {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	return units*100 + cents, nil
}

// deadlineLayouts are tried in order; all but RFC 3339 are read in the
// commitment's timezone.
var deadlineLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseDeadline accepts RFC 3339, or a local date and time in loc. A bare
// date means the end of that day.
func ParseDeadline(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("deadline is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range deadlineLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if layout == time.DateOnly {
			t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, loc)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q: use RFC 3339 or YYYY-MM-DD HH:MM", s)
}
