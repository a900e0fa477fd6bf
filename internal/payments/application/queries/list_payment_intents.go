package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/payments/domain"
)

// DefaultListLimit bounds ListPaymentIntentsQuery when no limit is given.
const DefaultListLimit = 100

// PaymentIntentDTO is the read model for a payment intent.
type PaymentIntentDTO struct {
	ID           uuid.UUID
	CommitmentID uuid.UUID
	UserID       uuid.UUID
	AmountMinor  int64
	Currency     string
	Status       string
	AttemptCount int
	CreatedAt    time.Time
}

// ListPaymentIntentsQuery lists intents in one status.
type ListPaymentIntentsQuery struct {
	Status string
	Limit  int
}

// ListPaymentIntentsHandler handles the ListPaymentIntentsQuery.
type ListPaymentIntentsHandler struct {
	repo domain.Repository
}

// NewListPaymentIntentsHandler creates a new ListPaymentIntentsHandler.
func NewListPaymentIntentsHandler(repo domain.Repository) *ListPaymentIntentsHandler {
	return &ListPaymentIntentsHandler{repo: repo}
}

func (h *ListPaymentIntentsHandler) Handle(ctx context.Context, query ListPaymentIntentsQuery) ([]PaymentIntentDTO, error) {
	status := domain.Status(query.Status)
	if status == "" {
		status = domain.StatusPending
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	intents, err := h.repo.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]PaymentIntentDTO, 0, len(intents))
	for _, p := range intents {
		dtos = append(dtos, PaymentIntentDTO{
			ID:           p.ID(),
			CommitmentID: p.CommitmentID(),
			UserID:       p.UserID(),
			AmountMinor:  p.AmountMinor(),
			Currency:     p.Currency(),
			Status:       string(p.Status()),
			AttemptCount: p.AttemptCount(),
			CreatedAt:    p.CreatedAt(),
		})
	}
	return dtos, nil
}
