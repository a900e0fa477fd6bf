package commitment

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/application/queries"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func sampleCommitment() queries.CommitmentDTO {
	next := time.Date(2025, 3, 7, 7, 30, 0, 0, time.UTC)
	return queries.CommitmentDTO{
		ID:              uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Goal:            "Run 5k",
		AmountMinor:     2500,
		Currency:        "EUR",
		Stake:           "25.00 EUR",
		Deadline:        time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC),
		Timezone:        "UTC",
		Schedule:        "every week on mon,wed,fri at 07:30:00 UTC from 2025-03-03",
		Status:          "active",
		ProgressPercent: 40,
		RiskBadge:       "Behind",
		CheckInCount:    2,
		ExpectedCount:   3,
		NextOccurrence:  &next,
		CreatedAt:       time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		CheckIns: []queries.CheckInDTO{
			{
				OccurredAt: time.Date(2025, 3, 3, 7, 41, 0, 0, time.UTC),
				Note:       "5k in 27 minutes",
				PhotoURL:   "https://example.com/run.jpg",
			},
			{OccurredAt: time.Date(2025, 3, 5, 7, 35, 0, 0, time.UTC)},
		},
	}
}

func TestRenderList(t *testing.T) {
	g := newGoldie(t)

	t.Run("commitments", func(t *testing.T) {
		failed := queries.CommitmentDTO{
			ID:              uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
			Goal:            "Read 12 books",
			Stake:           "100.00 USD",
			Deadline:        time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC),
			Timezone:        "UTC",
			Status:          "failed",
			ProgressPercent: 100,
			CheckInCount:    10,
			ExpectedCount:   12,
		}

		var buf bytes.Buffer
		renderList(&buf, []queries.CommitmentDTO{sampleCommitment(), failed})
		g.Assert(t, "list", buf.Bytes())
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		renderList(&buf, nil)
		assert.Equal(t, "No commitments found.\n", buf.String())
	})
}

func TestRenderCommitment(t *testing.T) {
	g := newGoldie(t)
	dto := sampleCommitment()

	var buf bytes.Buffer
	renderCommitment(&buf, &dto)
	g.Assert(t, "show", buf.Bytes())
}

func TestRenderPreview(t *testing.T) {
	g := newGoldie(t)
	cet := time.FixedZone("CET", 3600)

	t.Run("occurrences", func(t *testing.T) {
		occurrences := []time.Time{
			time.Date(2025, 3, 3, 6, 30, 0, 0, time.UTC),
			time.Date(2025, 3, 5, 6, 30, 0, 0, time.UTC),
			time.Date(2025, 3, 7, 6, 30, 0, 0, time.UTC),
		}
		local := make([]time.Time, len(occurrences))
		for i, o := range occurrences {
			local[i] = o.In(cet)
		}

		var buf bytes.Buffer
		renderPreview(&buf, &queries.SchedulePreviewDTO{
			Schedule:    "every week on mon,wed,fri at 07:30:00 Europe/Zurich from 2025-03-03",
			RRule:       "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE,FR;UNTIL=20250331T190000Z",
			Timezone:    "Europe/Zurich",
			Occurrences: occurrences,
			Local:       local,
		})
		g.Assert(t, "preview", buf.Bytes())
	})

	t.Run("past the deadline", func(t *testing.T) {
		var buf bytes.Buffer
		renderPreview(&buf, &queries.SchedulePreviewDTO{Schedule: "every day at 09:00:00 UTC from 2025-03-01", RRule: "FREQ=DAILY"})
		assert.Contains(t, buf.String(), "No upcoming check-ins before the deadline.")
	})
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{percent: -5, want: "[..........]"},
		{percent: 0, want: "[..........]"},
		{percent: 45, want: "[####......]"},
		{percent: 100, want: "[##########]"},
		{percent: 130, want: "[##########]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, progressBar(tt.percent))
	}
}
