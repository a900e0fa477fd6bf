package queries

import (
	"context"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

// GetCommitmentQuery contains the parameters for getting a single commitment.
type GetCommitmentQuery struct {
	CommitmentID uuid.UUID
	UserID       uuid.UUID
}

// GetCommitmentHandler handles the GetCommitmentQuery.
type GetCommitmentHandler struct {
	repo  domain.Repository
	clock sharedDomain.Clock
}

// NewGetCommitmentHandler creates a new GetCommitmentHandler.
func NewGetCommitmentHandler(repo domain.Repository, clock sharedDomain.Clock) *GetCommitmentHandler {
	return &GetCommitmentHandler{repo: repo, clock: clock}
}

// Handle returns the commitment summary with its check-ins. Another user's
// commitment reads as not found.
func (h *GetCommitmentHandler) Handle(ctx context.Context, query GetCommitmentQuery) (*CommitmentDTO, error) {
	c, err := h.repo.FindByID(ctx, query.CommitmentID)
	if err != nil {
		return nil, err
	}
	if c.UserID() != query.UserID {
		return nil, domain.ErrCommitmentNotFound
	}

	dto := toDTO(c, h.clock.Now(), true)
	return &dto, nil
}
