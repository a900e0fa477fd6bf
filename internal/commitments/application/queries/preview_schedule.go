package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

// DefaultPreviewCount is the number of occurrences listed when the query
// does not ask for a count.
const DefaultPreviewCount = 5

// PreviewScheduleQuery asks for the next occurrences of a commitment.
type PreviewScheduleQuery struct {
	CommitmentID uuid.UUID
	UserID       uuid.UUID
	Count        int
}

// SchedulePreviewDTO lists upcoming occurrences in UTC and in the
// schedule's own zone.
type SchedulePreviewDTO struct {
	CommitmentID uuid.UUID
	Schedule     string
	RRule        string
	Timezone     string
	Occurrences  []time.Time
	Local        []time.Time
}

// PreviewScheduleHandler handles the PreviewScheduleQuery.
type PreviewScheduleHandler struct {
	repo  domain.Repository
	clock sharedDomain.Clock
}

// NewPreviewScheduleHandler creates a new PreviewScheduleHandler.
func NewPreviewScheduleHandler(repo domain.Repository, clock sharedDomain.Clock) *PreviewScheduleHandler {
	return &PreviewScheduleHandler{repo: repo, clock: clock}
}

// Handle executes the PreviewScheduleQuery.
func (h *PreviewScheduleHandler) Handle(ctx context.Context, query PreviewScheduleQuery) (*SchedulePreviewDTO, error) {
	c, err := h.repo.FindByID(ctx, query.CommitmentID)
	if err != nil {
		return nil, err
	}
	if c.UserID() != query.UserID {
		return nil, domain.ErrCommitmentNotFound
	}

	count := query.Count
	if count <= 0 {
		count = DefaultPreviewCount
	}

	schedule := c.Schedule()
	occurrences := schedule.PreviewOccurrences(h.clock.Now(), c.Deadline(), count)
	loc := schedule.Location()
	local := make([]time.Time, len(occurrences))
	for i, o := range occurrences {
		local[i] = o.In(loc)
	}

	return &SchedulePreviewDTO{
		CommitmentID: c.ID(),
		Schedule:     schedule.Describe(),
		RRule:        schedule.RRuleString(c.Deadline()),
		Timezone:     schedule.Timezone(),
		Occurrences:  occurrences,
		Local:        local,
	}, nil
}
