package queries

import (
	"context"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

// ListCommitmentsQuery contains the parameters for listing commitments.
type ListCommitmentsQuery struct {
	UserID         uuid.UUID
	Status         string
	IncludeDeleted bool
}

// ListCommitmentsHandler handles the ListCommitmentsQuery.
type ListCommitmentsHandler struct {
	repo  domain.Repository
	clock sharedDomain.Clock
}

// NewListCommitmentsHandler creates a new ListCommitmentsHandler.
func NewListCommitmentsHandler(repo domain.Repository, clock sharedDomain.Clock) *ListCommitmentsHandler {
	return &ListCommitmentsHandler{repo: repo, clock: clock}
}

// Handle executes the ListCommitmentsQuery.
func (h *ListCommitmentsHandler) Handle(ctx context.Context, query ListCommitmentsQuery) ([]CommitmentDTO, error) {
	includeDeleted := query.IncludeDeleted || query.Status == string(domain.StatusDeleted)
	commitments, err := h.repo.FindByUser(ctx, query.UserID, includeDeleted)
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()
	dtos := make([]CommitmentDTO, 0, len(commitments))
	for _, c := range commitments {
		if query.Status != "" && c.Status().String() != query.Status {
			continue
		}
		dtos = append(dtos, toDTO(c, now, false))
	}
	return dtos, nil
}
