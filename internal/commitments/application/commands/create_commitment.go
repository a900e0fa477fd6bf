package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
)

// CreateCommitmentCommand contains the data needed to create a commitment.
type CreateCommitmentCommand struct {
	UserID      uuid.UUID
	Goal        string
	AmountMinor int64
	Currency    string
	Deadline    time.Time
	Timezone    string
	Schedule    recurrence.Spec
}

// CreateCommitmentResult contains the result of creating a commitment.
type CreateCommitmentResult struct {
	CommitmentID    uuid.UUID
	FirstOccurrence time.Time
}

// CreateCommitmentHandler handles the CreateCommitmentCommand.
type CreateCommitmentHandler struct {
	repo       domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	clock      sharedDomain.Clock
}

// NewCreateCommitmentHandler creates a new CreateCommitmentHandler.
func NewCreateCommitmentHandler(repo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork, clock sharedDomain.Clock) *CreateCommitmentHandler {
	return &CreateCommitmentHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		uow:        uow,
		clock:      clock,
	}
}

// Handle executes the CreateCommitmentCommand.
func (h *CreateCommitmentHandler) Handle(ctx context.Context, cmd CreateCommitmentCommand) (*CreateCommitmentResult, error) {
	pattern, err := recurrence.FromSpec(cmd.Schedule)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	stake, err := domain.NewMoney(cmd.AmountMinor, cmd.Currency)
	if err != nil {
		return nil, err
	}

	c, err := domain.NewCommitment(domain.NewCommitmentParams{
		UserID:   cmd.UserID,
		Goal:     cmd.Goal,
		Stake:    stake,
		Deadline: cmd.Deadline,
		Timezone: cmd.Timezone,
		Schedule: pattern,
	}, h.clock.Now())
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.repo.Save(txCtx, c); err != nil {
			return err
		}
		return stageEvents(txCtx, h.outboxRepo, c, cmd.UserID)
	})
	if err != nil {
		return nil, err
	}

	return &CreateCommitmentResult{
		CommitmentID:    c.ID(),
		FirstOccurrence: pattern.FirstOccurrence(),
	}, nil
}
