package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
)

// CheckInCommand records progress on an active commitment.
type CheckInCommand struct {
	CommitmentID uuid.UUID
	UserID       uuid.UUID
	Note         string
	PhotoURL     string
}

// CheckInResult contains the result of a check-in.
type CheckInResult struct {
	CheckInID    uuid.UUID
	OccurredAt   time.Time
	CheckInCount int
}

// CheckInHandler handles the CheckInCommand.
type CheckInHandler struct {
	repo       domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	clock      sharedDomain.Clock
}

// NewCheckInHandler creates a new CheckInHandler.
func NewCheckInHandler(repo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork, clock sharedDomain.Clock) *CheckInHandler {
	return &CheckInHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		uow:        uow,
		clock:      clock,
	}
}

// Handle executes the CheckInCommand.
func (h *CheckInHandler) Handle(ctx context.Context, cmd CheckInCommand) (*CheckInResult, error) {
	var result *CheckInResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		c, err := loadOwned(txCtx, h.repo, cmd.CommitmentID, cmd.UserID)
		if err != nil {
			return err
		}

		ci, err := c.AddCheckIn(cmd.Note, cmd.PhotoURL, h.clock.Now())
		if err != nil {
			return err
		}
		if err := h.repo.Save(txCtx, c); err != nil {
			return err
		}
		if err := stageEvents(txCtx, h.outboxRepo, c, cmd.UserID); err != nil {
			return err
		}

		result = &CheckInResult{
			CheckInID:    ci.ID(),
			OccurredAt:   ci.OccurredAt(),
			CheckInCount: c.CheckInCount(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
