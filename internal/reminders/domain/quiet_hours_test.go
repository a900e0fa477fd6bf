package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 1, hour, minute, 0, 0, time.UTC)
}

func TestNewQuietHours_Validation(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		end      int
		timezone string
		wantErr  bool
	}{
		{"overnight", 22, 7, "UTC", false},
		{"empty zone is utc", 9, 17, "", false},
		{"start too large", 24, 7, "UTC", true},
		{"negative end", 22, -1, "UTC", true},
		{"unknown zone", 22, 7, "Mars/Olympus", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuietHours(uuid.New(), tt.start, tt.end, tt.timezone, t0)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, q.StartHour())
			assert.Equal(t, "UTC", q.Timezone())
		})
	}
}

func TestQuietHours_Contains(t *testing.T) {
	tests := []struct {
		name  string
		start int
		end   int
		now   time.Time
		want  bool
	}{
		{"overnight late evening", 22, 7, at(23, 0), true},
		{"overnight at start", 22, 7, at(22, 0), true},
		{"overnight early morning", 22, 7, at(3, 30), true},
		{"overnight at end", 22, 7, at(7, 0), false},
		{"overnight afternoon", 22, 7, at(15, 0), false},
		{"same day inside", 9, 17, at(12, 0), true},
		{"same day after", 9, 17, at(18, 0), false},
		{"same day before", 9, 17, at(8, 59), false},
		{"equal hours disable", 8, 8, at(8, 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuietHours(uuid.New(), tt.start, tt.end, "UTC", t0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Contains(tt.now))
		})
	}
}

func TestQuietHours_NextWindowEnd(t *testing.T) {
	q := DefaultQuietHours(uuid.New())

	assert.Equal(t, time.Date(2025, 3, 2, 7, 0, 0, 0, time.UTC), q.NextWindowEnd(at(23, 0)))
	assert.Equal(t, at(7, 0), q.NextWindowEnd(at(3, 0)))
	assert.Equal(t, time.Date(2025, 3, 2, 7, 0, 0, 0, time.UTC), q.NextWindowEnd(at(7, 0)))
}

func TestQuietHours_UsesOwnTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Skip("Europe/Zurich not available")
	}
	q, err := NewQuietHours(uuid.New(), 22, 7, "Europe/Zurich", t0)
	require.NoError(t, err)

	// 21:30 UTC is 22:30 in Zurich during winter time.
	assert.True(t, q.Contains(at(21, 30)))
	assert.False(t, DefaultQuietHours(uuid.New()).Contains(at(21, 30)))

	end := q.NextWindowEnd(at(21, 30))
	assert.True(t, end.Equal(time.Date(2025, 3, 2, 7, 0, 0, 0, loc)), "got %s", end.In(loc))
}

func TestDefaultQuietHours(t *testing.T) {
	q := DefaultQuietHours(uuid.New())
	assert.Equal(t, DefaultQuietStart, q.StartHour())
	assert.Equal(t, DefaultQuietEnd, q.EndHour())
	assert.True(t, q.IsOvernight())
	assert.False(t, q.IsDisabled())
}
