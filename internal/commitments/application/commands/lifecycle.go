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

// TransitionResult reports the status a commitment moved to.
type TransitionResult struct {
	CommitmentID uuid.UUID
	Status       domain.Status
	At           time.Time
}

type transition func(c *domain.Commitment, now time.Time) error

// transitionHandler loads an owned commitment, applies one state change and
// stores it together with its events.
type transitionHandler struct {
	repo       domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	clock      sharedDomain.Clock
}

func newTransitionHandler(repo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork, clock sharedDomain.Clock) transitionHandler {
	return transitionHandler{repo: repo, outboxRepo: outboxRepo, uow: uow, clock: clock}
}

func (h transitionHandler) apply(ctx context.Context, commitmentID, userID uuid.UUID, fn transition) (*TransitionResult, error) {
	var result *TransitionResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		c, err := loadOwned(txCtx, h.repo, commitmentID, userID)
		if err != nil {
			return err
		}

		now := h.clock.Now()
		if err := fn(c, now); err != nil {
			return err
		}
		if err := h.repo.Save(txCtx, c); err != nil {
			return err
		}
		if err := stageEvents(txCtx, h.outboxRepo, c, userID); err != nil {
			return err
		}

		result = &TransitionResult{CommitmentID: c.ID(), Status: c.Status(), At: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func loadOwned(ctx context.Context, repo domain.Repository, commitmentID, userID uuid.UUID) (*domain.Commitment, error) {
	c, err := repo.FindByID(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	if c.UserID() != userID {
		return nil, domain.ErrNotOwner
	}
	return c, nil
}

// CompleteCommitmentCommand confirms a commitment awaiting a decision.
type CompleteCommitmentCommand struct {
	CommitmentID uuid.UUID
	UserID       uuid.UUID
}

// CompleteCommitmentHandler handles the CompleteCommitmentCommand.
type CompleteCommitmentHandler struct {
	transitionHandler
}

// NewCompleteCommitmentHandler creates a new CompleteCommitmentHandler.
func NewCompleteCommitmentHandler(repo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork, clock sharedDomain.Clock) *CompleteCommitmentHandler {
	return &CompleteCommitmentHandler{newTransitionHandler(repo, outboxRepo, uow, clock)}
}

func (h *CompleteCommitmentHandler) Handle(ctx context.Context, cmd CompleteCommitmentCommand) (*TransitionResult, error) {
	return h.apply(ctx, cmd.CommitmentID, cmd.UserID, (*domain.Commitment).Complete)
}

// FailCommitmentCommand marks a commitment as missed.
type FailCommitmentCommand struct {
	CommitmentID uuid.UUID
	UserID       uuid.UUID
}

// FailCommitmentHandler handles the FailCommitmentCommand.
type FailCommitmentHandler struct {
	transitionHandler
}

// NewFailCommitmentHandler creates a new FailCommitmentHandler.
func NewFailCommitmentHandler(repo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork, clock sharedDomain.Clock) *FailCommitmentHandler {
	return &FailCommitmentHandler{newTransitionHandler(repo, outboxRepo, uow, clock)}
}

func (h *FailCommitmentHandler) Handle(ctx context.Context, cmd FailCommitmentCommand) (*TransitionResult, error) {
	return h.apply(ctx, cmd.CommitmentID, cmd.UserID, (*domain.Commitment).Fail)
}

// CancelCommitmentCommand withdraws an active commitment.
type CancelCommitmentCommand struct {
	CommitmentID uuid.UUID
	UserID       uuid.UUID
}

// CancelCommitmentHandler handles the CancelCommitmentCommand.
type CancelCommitmentHandler struct {
	transitionHandler
}

// NewCancelCommitmentHandler creates a new CancelCommitmentHandler.
func NewCancelCommitmentHandler(repo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork, clock sharedDomain.Clock) *CancelCommitmentHandler {
	return &CancelCommitmentHandler{newTransitionHandler(repo, outboxRepo, uow, clock)}
}

func (h *CancelCommitmentHandler) Handle(ctx context.Context, cmd CancelCommitmentCommand) (*TransitionResult, error) {
	return h.apply(ctx, cmd.CommitmentID, cmd.UserID, (*domain.Commitment).Cancel)
}

// DeleteCommitmentCommand hides a finished commitment.
type DeleteCommitmentCommand struct {
	CommitmentID uuid.UUID
	UserID       uuid.UUID
}

// DeleteCommitmentHandler handles the DeleteCommitmentCommand.
type DeleteCommitmentHandler struct {
	transitionHandler
}

// NewDeleteCommitmentHandler creates a new DeleteCommitmentHandler.
func NewDeleteCommitmentHandler(repo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork, clock sharedDomain.Clock) *DeleteCommitmentHandler {
	return &DeleteCommitmentHandler{newTransitionHandler(repo, outboxRepo, uow, clock)}
}

func (h *DeleteCommitmentHandler) Handle(ctx context.Context, cmd DeleteCommitmentCommand) (*TransitionResult, error) {
	return h.apply(ctx, cmd.CommitmentID, cmd.UserID, (*domain.Commitment).SoftDelete)
}
