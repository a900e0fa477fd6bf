package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"
)

// RRule expresses the pattern as an RFC 5545 rule starting at the first
// occurrence. Weeks start on the anchor's weekday, matching how the engine
// counts intervals. A non-zero until bounds the rule.
func (p Pattern) RRule(until time.Time) rrule.ROption {
	opt := rrule.ROption{
		Interval: p.interval,
		Dtstart:  p.FirstOccurrence().In(p.loc()),
		Wkst:     toRRuleWeekday(p.anchor.Weekday()),
	}
	if !until.IsZero() {
		opt.Until = until.UTC()
	}

	switch p.kind {
	case KindDaily:
		opt.Freq = rrule.DAILY
	case KindWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range p.weekdays.Days() {
			opt.Byweekday = append(opt.Byweekday, toRRuleWeekday(d))
		}
	case KindMonthlyByDay:
		opt.Freq = rrule.MONTHLY
		if p.dayOfMonth <= 28 {
			opt.Bymonthday = []int{p.dayOfMonth}
			break
		}
		// Days past the 28th fall back to the month's last day.
		for d := 28; d <= p.dayOfMonth; d++ {
			opt.Bymonthday = append(opt.Bymonthday, d)
		}
		opt.Bysetpos = []int{-1}
	case KindMonthlyByNthWeekday:
		opt.Freq = rrule.MONTHLY
		wd := toRRuleWeekday(p.weekday)
		opt.Byweekday = []rrule.Weekday{wd.Nth(p.nth)}
	}
	return opt
}

// RRuleString renders the RRULE value without DTSTART.
func (p Pattern) RRuleString(until time.Time) string {
	opt := p.RRule(until)
	return opt.RRuleString()
}

func toRRuleWeekday(d time.Weekday) rrule.Weekday {
	switch d {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}
