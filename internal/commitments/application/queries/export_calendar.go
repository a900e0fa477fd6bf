package queries

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

// CalendarEncoder writes a commitment as calendar data.
type CalendarEncoder interface {
	Export(w io.Writer, c *domain.Commitment, now time.Time) error
}

// ExportCalendarQuery asks for the calendar of one commitment.
type ExportCalendarQuery struct {
	CommitmentID uuid.UUID
	UserID       uuid.UUID
}

// ExportCalendarHandler handles the ExportCalendarQuery.
type ExportCalendarHandler struct {
	repo    domain.Repository
	encoder CalendarEncoder
	clock   sharedDomain.Clock
}

// NewExportCalendarHandler creates a new ExportCalendarHandler.
func NewExportCalendarHandler(repo domain.Repository, encoder CalendarEncoder, clock sharedDomain.Clock) *ExportCalendarHandler {
	return &ExportCalendarHandler{repo: repo, encoder: encoder, clock: clock}
}

// Handle writes the calendar to w.
func (h *ExportCalendarHandler) Handle(ctx context.Context, query ExportCalendarQuery, w io.Writer) error {
	c, err := h.repo.FindByID(ctx, query.CommitmentID)
	if err != nil {
		return err
	}
	if c.UserID() != query.UserID {
		return domain.ErrCommitmentNotFound
	}
	return h.encoder.Export(w, c, h.clock.Now())
}
