package recurrence

import "time"

const (
	// DefaultCountLimit caps CountOccurrencesUpTo when no limit is given.
	DefaultCountLimit = 1000

	maxWeeksScanned  = 260
	maxMonthsScanned = 120
)

// FirstOccurrence is the anchor date at the pattern's time of day. The
// anchor always counts as an occurrence, even when it does not match the
// weekday or day-of-month selection.
func (p Pattern) FirstOccurrence() time.Time {
	return ResolveLocal(p.anchor, p.at, p.loc())
}

// NextOccurrence returns the earliest occurrence strictly after after and
// strictly before deadline.
func (p Pattern) NextOccurrence(after, deadline time.Time) (time.Time, bool) {
	var (
		next time.Time
		ok   bool
	)
	if first := p.FirstOccurrence(); after.Before(first) {
		next, ok = first, true
	} else {
		switch p.kind {
		case KindDaily:
			next, ok = p.nextDaily(after)
		case KindWeekly:
			next, ok = p.nextWeekly(after)
		case KindMonthlyByDay, KindMonthlyByNthWeekday:
			next, ok = p.nextMonthly(after)
		}
	}
	if !ok || !next.Before(deadline) {
		return time.Time{}, false
	}
	return next, true
}

// PreviewOccurrences lists up to count occurrences after after and before
// deadline, in ascending order.
func (p Pattern) PreviewOccurrences(after, deadline time.Time, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	out := make([]time.Time, 0, count)
	cursor := after
	for len(out) < count {
		next, ok := p.NextOccurrence(cursor, deadline)
		if !ok {
			break
		}
		out = append(out, next)
		cursor = next
	}
	return out
}

// CountOccurrencesUpTo counts occurrences in [first, min(until, deadline)),
// stopping at limit. A non-positive limit means DefaultCountLimit.
func (p Pattern) CountOccurrencesUpTo(until, deadline time.Time, limit int) int {
	if limit <= 0 {
		limit = DefaultCountLimit
	}
	end := until
	if deadline.Before(end) {
		end = deadline
	}
	cursor := p.FirstOccurrence()
	if !cursor.Before(end) {
		return 0
	}
	count := 1
	for count < limit {
		next, ok := p.NextOccurrence(cursor, end)
		if !ok {
			break
		}
		count++
		cursor = next
	}
	return count
}

func (p Pattern) localDaysFromAnchor(t time.Time) int {
	days := DateOf(t.In(p.loc())).DaysSince(p.anchor)
	if days < 0 {
		return 0
	}
	return days
}

func (p Pattern) nextDaily(after time.Time) (time.Time, bool) {
	offset := p.localDaysFromAnchor(after)
	index := (offset + p.interval - 1) / p.interval * p.interval
	for range 3 {
		candidate := ResolveLocal(p.anchor.AddDays(index), p.at, p.loc())
		if candidate.After(after) {
			return candidate, true
		}
		index += p.interval
	}
	return time.Time{}, false
}

func (p Pattern) nextWeekly(after time.Time) (time.Time, bool) {
	startWeek := p.localDaysFromAnchor(after) / 7
	for week := startWeek; week < startWeek+maxWeeksScanned; week++ {
		if week%p.interval != 0 {
			continue
		}
		weekStart := p.anchor.AddDays(week * 7)
		for i := range 7 {
			day := weekStart.AddDays(i)
			if !p.weekdays.Has(day.Weekday()) {
				continue
			}
			if candidate := ResolveLocal(day, p.at, p.loc()); candidate.After(after) {
				return candidate, true
			}
		}
	}
	return time.Time{}, false
}

func (p Pattern) nextMonthly(after time.Time) (time.Time, bool) {
	local := DateOf(after.In(p.loc()))
	for i := range maxMonthsScanned {
		year, month := addMonths(local.Year, local.Month, i)
		offset := monthsBetween(p.anchor.Year, p.anchor.Month, year, month)
		if offset < 0 || offset%p.interval != 0 {
			continue
		}
		day, ok := p.dayInMonth(year, month)
		if !ok {
			continue
		}
		candidate := ResolveLocal(Date{Year: year, Month: month, Day: day}, p.at, p.loc())
		if candidate.After(after) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// dayInMonth returns the selected day for the month, or false when the
// month has no such day (a fifth weekday that does not exist).
func (p Pattern) dayInMonth(year int, month time.Month) (int, bool) {
	last := daysIn(year, month)
	if p.kind == KindMonthlyByDay {
		return min(p.dayOfMonth, last), true
	}
	if p.nth == LastWeek {
		lastWeekday := Date{Year: year, Month: month, Day: last}.Weekday()
		return last - (int(lastWeekday)-int(p.weekday)+7)%7, true
	}
	firstWeekday := Date{Year: year, Month: month, Day: 1}.Weekday()
	day := 1 + (int(p.weekday)-int(firstWeekday)+7)%7 + (p.nth-1)*7
	if day > last {
		return 0, false
	}
	return day, true
}

func addMonths(year int, month time.Month, n int) (int, time.Month) {
	total := year*12 + int(month) - 1 + n
	return total / 12, time.Month(total%12 + 1)
}

func monthsBetween(fromYear int, fromMonth time.Month, toYear int, toMonth time.Month) int {
	return (toYear-fromYear)*12 + int(toMonth) - int(fromMonth)
}
