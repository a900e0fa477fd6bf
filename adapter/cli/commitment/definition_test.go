package commitment

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	defUser = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	defNow  = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
)

func TestLoadDefinition(t *testing.T) {
	t.Run("weekly with decimal stake", func(t *testing.T) {
		def, err := LoadDefinition(strings.NewReader(`
goal: Run three times a week
stake:
  amount: "25.50"
  currency: EUR
deadline: "2025-03-31 20:00"
timezone: UTC
schedule:
  kind: weekly
  anchor: "2025-03-03"
  at: "07:30"
  weekdays: [mon, wed, fri]
`))
		require.NoError(t, err)

		cmd, err := def.Command(defUser, defNow)
		require.NoError(t, err)

		assert.Equal(t, defUser, cmd.UserID)
		assert.Equal(t, "Run three times a week", cmd.Goal)
		assert.Equal(t, int64(2550), cmd.AmountMinor)
		assert.Equal(t, "EUR", cmd.Currency)
		assert.Equal(t, time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC), cmd.Deadline)
		assert.Equal(t, recurrence.KindWeekly, cmd.Schedule.Kind)
		assert.Equal(t, 1, cmd.Schedule.Interval)
		assert.Equal(t, "2025-03-03", cmd.Schedule.Anchor.String())
		assert.Equal(t, recurrence.TimeOfDay{Hour: 7, Minute: 30}, cmd.Schedule.TimeOfDay)
		assert.Equal(t, recurrence.NewWeekdaySet(time.Monday, time.Wednesday, time.Friday), cmd.Schedule.Weekdays)
	})

	t.Run("monthly last friday in minor units", func(t *testing.T) {
		def, err := LoadDefinition(strings.NewReader(`
goal: Review the budget
stake: {amount_minor: 1000, currency: USD}
deadline: "2025-12-31"
schedule:
  kind: monthly-nth
  interval: 2
  at: "18:00"
  nth: -1
  weekday: fri
`))
		require.NoError(t, err)

		cmd, err := def.Command(defUser, defNow)
		require.NoError(t, err)

		assert.Equal(t, int64(1000), cmd.AmountMinor)
		assert.Equal(t, "UTC", cmd.Timezone)
		assert.Equal(t, time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC), cmd.Deadline)
		assert.Equal(t, recurrence.KindMonthlyByNthWeekday, cmd.Schedule.Kind)
		assert.Equal(t, 2, cmd.Schedule.Interval)
		assert.Equal(t, recurrence.LastWeek, cmd.Schedule.Nth)
		assert.Equal(t, time.Friday, cmd.Schedule.Weekday)
		assert.Equal(t, "2025-03-01", cmd.Schedule.Anchor.String(), "anchor defaults to today")
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := LoadDefinition(strings.NewReader("goal: x\npenalty: 5\n"))
		assert.Error(t, err)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := LoadDefinition(strings.NewReader(""))
		assert.EqualError(t, err, "empty commitment definition")
	})
}

func TestDefinition_Command_Errors(t *testing.T) {
	base := func() *Definition {
		return &Definition{
			Goal:     "Meditate",
			Stake:    StakeDefinition{Amount: "5", Currency: "CHF"},
			Deadline: "2025-04-01 08:00",
			Timezone: "UTC",
			Schedule: ScheduleDefinition{Kind: "daily", At: "06:00"},
		}
	}

	tests := []struct {
		name   string
		mutate func(d *Definition)
	}{
		{name: "unknown timezone", mutate: func(d *Definition) { d.Timezone = "Mars/Olympus" }},
		{name: "missing time of day", mutate: func(d *Definition) { d.Schedule.At = "" }},
		{name: "bad weekday", mutate: func(d *Definition) { d.Schedule.Weekdays = []string{"someday"} }},
		{name: "bad deadline", mutate: func(d *Definition) { d.Deadline = "next friday" }},
		{name: "bad amount", mutate: func(d *Definition) { d.Stake.Amount = "1.234" }},
		{name: "bad anchor", mutate: func(d *Definition) { d.Schedule.Anchor = "2025-02-30" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(d)
			_, err := d.Command(defUser, defNow)
			assert.Error(t, err)
		})
	}

	t.Run("valid base", func(t *testing.T) {
		_, err := base().Command(defUser, defNow)
		assert.NoError(t, err)
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "25", want: 2500},
		{in: "25.5", want: 2550},
		{in: "25.05", want: 2505},
		{in: " 0.99 ", want: 99},
		{in: "", wantErr: true},
		{in: "1.", wantErr: true},
		{in: "1.234", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "1.-5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDeadline(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*3600)

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2025-03-31T20:00:00Z", want: time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC)},
		{in: "2025-03-31 20:00", want: time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC)},
		{in: "2025-03-31T20:00", want: time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC)},
		{in: "2025-03-31", want: time.Date(2025, 3, 31, 21, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDeadline(tt.in, zone)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDeadline("", zone)
	assert.Error(t, err)
}
