package commands

import (
	"context"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

// SetQuietHoursCommand sets a user's quiet window.
type SetQuietHoursCommand struct {
	UserID    uuid.UUID
	StartHour int
	EndHour   int
	Timezone  string
}

// SetQuietHoursHandler handles the SetQuietHoursCommand.
type SetQuietHoursHandler struct {
	repo  domain.QuietHoursRepository
	clock sharedDomain.Clock
}

// NewSetQuietHoursHandler creates a new SetQuietHoursHandler.
func NewSetQuietHoursHandler(repo domain.QuietHoursRepository, clock sharedDomain.Clock) *SetQuietHoursHandler {
	return &SetQuietHoursHandler{repo: repo, clock: clock}
}

// Handle validates and stores the window, replacing any previous one.
func (h *SetQuietHoursHandler) Handle(ctx context.Context, cmd SetQuietHoursCommand) (*domain.QuietHours, error) {
	q, err := domain.NewQuietHours(cmd.UserID, cmd.StartHour, cmd.EndHour, cmd.Timezone, h.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := h.repo.Save(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ClearQuietHoursCommand returns a user to the default window.
type ClearQuietHoursCommand struct {
	UserID uuid.UUID
}

// ClearQuietHoursHandler handles the ClearQuietHoursCommand.
type ClearQuietHoursHandler struct {
	repo domain.QuietHoursRepository
}

// NewClearQuietHoursHandler creates a new ClearQuietHoursHandler.
func NewClearQuietHoursHandler(repo domain.QuietHoursRepository) *ClearQuietHoursHandler {
	return &ClearQuietHoursHandler{repo: repo}
}

func (h *ClearQuietHoursHandler) Handle(ctx context.Context, cmd ClearQuietHoursCommand) error {
	return h.repo.Delete(ctx, cmd.UserID)
}
