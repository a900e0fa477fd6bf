package commands

import (
	"context"

	"github.com/google/uuid"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
	"github.com/jurzon/backy/pkg/observability"
)

type eventSource interface {
	DomainEvents() []sharedDomain.DomainEvent
	ClearDomainEvents()
}

// stageEvents writes the aggregate's pending events to the outbox inside
// the caller's transaction and clears them.
func stageEvents(ctx context.Context, repo outbox.Repository, agg eventSource, userID uuid.UUID) error {
	events := agg.DomainEvents()
	correlationID, _ := uuid.Parse(observability.CorrelationID(ctx))
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(userID, correlationID))
	if err := outbox.Stage(ctx, repo, events); err != nil {
		return err
	}
	agg.ClearDomainEvents()
	return nil
}
