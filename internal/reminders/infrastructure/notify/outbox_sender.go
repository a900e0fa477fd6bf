package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
	"github.com/jurzon/backy/pkg/observability"
)

// OutboxSender hands notifications to external transports by staging a
// reminders.notification.requested event in the outbox.
type OutboxSender struct {
	repo  outbox.Repository
	clock sharedDomain.Clock
}

func NewOutboxSender(repo outbox.Repository, clock sharedDomain.Clock) *OutboxSender {
	if clock == nil {
		clock = sharedDomain.SystemClock{}
	}
	return &OutboxSender{repo: repo, clock: clock}
}

func (s *OutboxSender) Send(ctx context.Context, userID uuid.UUID, channel, subject, body string) error {
	event := domain.NewNotificationRequested(userID, channel, subject, body, s.clock.Now())

	correlationID, _ := uuid.Parse(observability.CorrelationID(ctx))
	events := []sharedDomain.DomainEvent{event}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(userID, correlationID))
	return outbox.Stage(ctx, s.repo, events)
}
