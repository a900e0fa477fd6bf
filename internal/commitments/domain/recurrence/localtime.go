package recurrence

import "time"

// maxGapShiftMinutes bounds how far a wall-clock time that falls into a
// DST gap is pushed forward.
const maxGapShiftMinutes = 120

var offsetProbes = []time.Duration{-36 * time.Hour, -12 * time.Hour, 0, 12 * time.Hour, 36 * time.Hour}

// ResolveLocal converts a local date and wall-clock time in loc to an
// instant. Ambiguous times (DST fold) resolve to the earliest instant.
// Nonexistent times (DST gap) move forward minute by minute until a real
// local time is found.
func ResolveLocal(d Date, at TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	wall := time.Date(d.Year, d.Month, d.Day, at.Hour, at.Minute, at.Second, 0, time.UTC)
	for i := 0; i <= maxGapShiftMinutes; i++ {
		if t, ok := exactLocal(wall, loc); ok {
			return t
		}
		wall = wall.Add(time.Minute)
	}
	return time.Date(d.Year, d.Month, d.Day, at.Hour, at.Minute, at.Second, 0, loc).UTC()
}

// exactLocal finds the earliest instant whose wall clock in loc reads
// wall. wall carries the local fields in a UTC time value.
func exactLocal(wall time.Time, loc *time.Location) (time.Time, bool) {
	var (
		best  time.Time
		found bool
		seen  = make(map[int]bool, len(offsetProbes))
	)
	for _, probe := range offsetProbes {
		_, offset := wall.Add(probe).In(loc).Zone()
		if seen[offset] {
			continue
		}
		seen[offset] = true

		candidate := wall.Add(-time.Duration(offset) * time.Second)
		if !sameWallClock(candidate.In(loc), wall) {
			continue
		}
		if !found || candidate.Before(best) {
			best, found = candidate, true
		}
	}
	return best.UTC(), found
}

func sameWallClock(local, wall time.Time) bool {
	y, m, d := local.Date()
	return y == wall.Year() && m == wall.Month() && d == wall.Day() &&
		local.Hour() == wall.Hour() && local.Minute() == wall.Minute() && local.Second() == wall.Second()
}
