package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	commitmentDomain "github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/payments/domain"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/eventbus"
	"github.com/jurzon/backy/pkg/observability"
)

// commitmentFailedPayload is the subset of the failed event the payment log
// needs.
type commitmentFailedPayload struct {
	CommitmentID uuid.UUID `json:"commitment_id"`
	UserID       uuid.UUID `json:"user_id"`
	AmountMinor  int64     `json:"amount_minor"`
	Currency     string    `json:"currency"`
}

// CommitmentFailedHandler records a pending payment intent for each failed
// commitment. Redelivered events are absorbed by the one-intent-per-
// commitment rule.
type CommitmentFailedHandler struct {
	repo    domain.Repository
	clock   sharedDomain.Clock
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewCommitmentFailedHandler creates the handler. A nil clock, metrics or
// logger gets the system default.
func NewCommitmentFailedHandler(repo domain.Repository, clock sharedDomain.Clock, metrics observability.Metrics, logger *slog.Logger) *CommitmentFailedHandler {
	if clock == nil {
		clock = sharedDomain.SystemClock{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommitmentFailedHandler{repo: repo, clock: clock, metrics: metrics, logger: logger}
}

func (h *CommitmentFailedHandler) RoutingKeys() []string {
	return []string{commitmentDomain.RoutingKeyFailed}
}

func (h *CommitmentFailedHandler) Handle(ctx context.Context, event *eventbus.Envelope) error {
	var payload commitmentFailedPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.RoutingKey, err)
	}
	if payload.CommitmentID == uuid.Nil {
		payload.CommitmentID = event.AggregateID
	}

	intent, err := domain.NewPaymentIntentLog(payload.CommitmentID, payload.UserID, payload.AmountMinor, payload.Currency, h.clock.Now())
	if err != nil {
		return fmt.Errorf("payment intent for %s: %w", payload.CommitmentID, err)
	}

	recorded, err := h.repo.Record(ctx, intent)
	if err != nil {
		return fmt.Errorf("record payment intent for %s: %w", payload.CommitmentID, err)
	}

	log := h.logger.With(
		"commitment_id", payload.CommitmentID,
		"event_id", event.EventID,
		observability.CorrelationIDKey, event.Metadata.CorrelationID,
	)
	if !recorded {
		log.DebugContext(ctx, "payment intent already recorded")
		return nil
	}
	h.metrics.Counter(observability.MetricPaymentIntentsRecorded, 1, observability.T("currency", intent.Currency()))
	log.InfoContext(ctx, "payment intent recorded",
		"amount_minor", intent.AmountMinor(),
		"currency", intent.Currency(),
	)
	return nil
}
