package recurrence

import (
	"fmt"
	"time"
)

// Kind identifies the family of a recurrence pattern.
type Kind string

const (
	KindDaily               Kind = "daily"
	KindWeekly              Kind = "weekly"
	KindMonthlyByDay        Kind = "monthly_day"
	KindMonthlyByNthWeekday Kind = "monthly_nth"
)

// LastWeek selects the last matching weekday of a month.
const LastWeek = -1

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindDaily, KindWeekly, KindMonthlyByDay, KindMonthlyByNthWeekday:
		return true
	}
	return false
}

// Pattern is an immutable recurrence rule anchored at a local date and
// wall-clock time in an IANA timezone. The zero value is not usable;
// build patterns with the New* constructors or FromSpec.
type Pattern struct {
	kind       Kind
	interval   int
	anchor     Date
	at         TimeOfDay
	location   *time.Location
	weekdays   WeekdaySet
	dayOfMonth int
	nth        int
	weekday    time.Weekday
}

// Spec is the flat, serializable form of a Pattern.
type Spec struct {
	Kind       Kind
	Interval   int
	Anchor     Date
	TimeOfDay  TimeOfDay
	Timezone   string
	Weekdays   WeekdaySet
	DayOfMonth int
	Nth        int
	Weekday    time.Weekday
}

// NewDaily repeats every interval days.
func NewDaily(anchor Date, at TimeOfDay, timezone string, interval int) (Pattern, error) {
	return FromSpec(Spec{Kind: KindDaily, Interval: interval, Anchor: anchor, TimeOfDay: at, Timezone: timezone})
}

// NewWeekly repeats on the given weekdays every interval weeks. An empty
// set means Monday.
func NewWeekly(anchor Date, at TimeOfDay, timezone string, interval int, weekdays WeekdaySet) (Pattern, error) {
	return FromSpec(Spec{Kind: KindWeekly, Interval: interval, Anchor: anchor, TimeOfDay: at, Timezone: timezone, Weekdays: weekdays})
}

// NewMonthlyByDay repeats on a fixed day of the month, clamped to the
// month's length.
func NewMonthlyByDay(anchor Date, at TimeOfDay, timezone string, interval, day int) (Pattern, error) {
	return FromSpec(Spec{Kind: KindMonthlyByDay, Interval: interval, Anchor: anchor, TimeOfDay: at, Timezone: timezone, DayOfMonth: day})
}

// NewMonthlyByNthWeekday repeats on the nth weekday of the month, or the
// last one when nth is LastWeek.
func NewMonthlyByNthWeekday(anchor Date, at TimeOfDay, timezone string, interval, nth int, weekday time.Weekday) (Pattern, error) {
	return FromSpec(Spec{Kind: KindMonthlyByNthWeekday, Interval: interval, Anchor: anchor, TimeOfDay: at, Timezone: timezone, Nth: nth, Weekday: weekday})
}

// FromSpec validates a Spec and builds the Pattern it describes.
func FromSpec(s Spec) (Pattern, error) {
	if !s.Kind.IsValid() {
		return Pattern{}, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	if s.Interval < 0 {
		return Pattern{}, fmt.Errorf("%w: %d", ErrInvalidInterval, s.Interval)
	}
	if s.Anchor.IsZero() {
		return Pattern{}, ErrAnchorRequired
	}
	if _, err := NewDate(s.Anchor.Year, s.Anchor.Month, s.Anchor.Day); err != nil {
		return Pattern{}, err
	}
	if _, err := NewTimeOfDay(s.TimeOfDay.Hour, s.TimeOfDay.Minute, s.TimeOfDay.Second); err != nil {
		return Pattern{}, err
	}
	loc, err := LoadLocation(s.Timezone)
	if err != nil {
		return Pattern{}, err
	}

	p := Pattern{
		kind:     s.Kind,
		interval: s.Interval,
		anchor:   s.Anchor,
		at:       s.TimeOfDay,
		location: loc,
	}
	if p.interval == 0 {
		p.interval = 1
	}

	switch s.Kind {
	case KindWeekly:
		p.weekdays = s.Weekdays & 0x7f
		if p.weekdays.IsEmpty() {
			p.weekdays = NewWeekdaySet(time.Monday)
		}
	case KindMonthlyByDay:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return Pattern{}, fmt.Errorf("%w: %d", ErrInvalidMonthDay, s.DayOfMonth)
		}
		p.dayOfMonth = s.DayOfMonth
	case KindMonthlyByNthWeekday:
		if s.Nth != LastWeek && (s.Nth < 1 || s.Nth > 5) {
			return Pattern{}, fmt.Errorf("%w: %d", ErrInvalidNth, s.Nth)
		}
		if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
			return Pattern{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, s.Weekday)
		}
		p.nth = s.Nth
		p.weekday = s.Weekday
	}
	return p, nil
}

// LoadLocation resolves an IANA zone name. An empty name means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, name)
	}
	return loc, nil
}

// Spec returns the serializable form of p.
func (p Pattern) Spec() Spec {
	return Spec{
		Kind:       p.kind,
		Interval:   p.interval,
		Anchor:     p.anchor,
		TimeOfDay:  p.at,
		Timezone:   p.Timezone(),
		Weekdays:   p.weekdays,
		DayOfMonth: p.dayOfMonth,
		Nth:        p.nth,
		Weekday:    p.weekday,
	}
}

func (p Pattern) Kind() Kind               { return p.kind }
func (p Pattern) Interval() int            { return p.interval }
func (p Pattern) Anchor() Date             { return p.anchor }
func (p Pattern) TimeOfDay() TimeOfDay     { return p.at }
func (p Pattern) Weekdays() WeekdaySet     { return p.weekdays }
func (p Pattern) DayOfMonth() int          { return p.dayOfMonth }
func (p Pattern) Nth() int                 { return p.nth }
func (p Pattern) Weekday() time.Weekday    { return p.weekday }
func (p Pattern) Location() *time.Location { return p.loc() }
func (p Pattern) Timezone() string         { return p.loc().String() }

func (p Pattern) loc() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

// Describe renders a short human readable summary.
func (p Pattern) Describe() string {
	every := func(unit string) string {
		if p.interval == 1 {
			return "every " + unit
		}
		return fmt.Sprintf("every %d %ss", p.interval, unit)
	}
	var head string
	switch p.kind {
	case KindDaily:
		head = every("day")
	case KindWeekly:
		head = every("week") + " on " + p.weekdays.String()
	case KindMonthlyByDay:
		head = fmt.Sprintf("%s on day %d", every("month"), p.dayOfMonth)
	case KindMonthlyByNthWeekday:
		ord := "last"
		if p.nth != LastWeek {
			ord = fmt.Sprintf("#%d", p.nth)
		}
		head = fmt.Sprintf("%s on the %s %s", every("month"), ord, p.weekday)
	default:
		return "invalid pattern"
	}
	return fmt.Sprintf("%s at %s %s from %s", head, p.at, p.Timezone(), p.anchor)
}
