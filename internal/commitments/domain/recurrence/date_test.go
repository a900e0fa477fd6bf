package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDate(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		d, err := NewDate(2024, time.February, 29)
		require.NoError(t, err)
		assert.Equal(t, "2024-02-29", d.String())
	})

	t.Run("rejects overflowing day", func(t *testing.T) {
		_, err := NewDate(2023, time.February, 29)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-01-31 ")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2025, Month: time.January, Day: 31}, d)

	_, err = ParseDate("31/01/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateArithmetic(t *testing.T) {
	d := Date{Year: 2024, Month: time.December, Day: 30}

	assert.Equal(t, Date{Year: 2025, Month: time.January, Day: 2}, d.AddDays(3))
	assert.Equal(t, Date{Year: 2024, Month: time.November, Day: 30}, d.AddDays(-30))
	assert.Equal(t, 3, d.AddDays(3).DaysSince(d))
	assert.Equal(t, -3, d.DaysSince(d.AddDays(3)))
	assert.Equal(t, time.Monday, d.Weekday())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, daysIn(2024, time.February))
	assert.Equal(t, 28, daysIn(2025, time.February))
	assert.Equal(t, 30, daysIn(2025, time.April))
	assert.Equal(t, 31, daysIn(2025, time.December))
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "09:00", want: TimeOfDay{Hour: 9}},
		{in: "23:59:30", want: TimeOfDay{Hour: 23, Minute: 59, Second: 30}},
		{in: "24:00", wantErr: true},
		{in: "nine", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeekdaySet(t *testing.T) {
	set := NewWeekdaySet(time.Friday, time.Monday, time.Sunday)

	assert.True(t, set.Has(time.Monday))
	assert.False(t, set.Has(time.Tuesday))
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday, time.Sunday}, set.Days())
	assert.Equal(t, "mon,fri,sun", set.String())
	assert.True(t, WeekdaySet(0).IsEmpty())

	parsed, err := ParseWeekdaySet("Monday, fri,sun")
	require.NoError(t, err)
	assert.Equal(t, set, parsed)

	_, err = ParseWeekdaySet("mon,funday")
	assert.ErrorIs(t, err, ErrInvalidWeekday)
}
