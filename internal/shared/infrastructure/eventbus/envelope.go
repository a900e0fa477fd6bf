package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/shared/domain"
)

// Envelope is the wire form of a domain event on the bus.
type Envelope struct {
	EventID       uuid.UUID            `json:"event_id"`
	AggregateID   uuid.UUID            `json:"aggregate_id"`
	AggregateType string               `json:"aggregate_type"`
	RoutingKey    string               `json:"routing_key"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Payload       json.RawMessage      `json:"payload"`
	Metadata      domain.EventMetadata `json:"metadata"`
}

// NewEnvelope wraps a domain event, serializing the event itself as payload.
func NewEnvelope(event domain.DomainEvent) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.RoutingKey(), err)
	}
	return &Envelope{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
		Metadata:      event.Metadata(),
	}, nil
}

// Marshal encodes the envelope for publishing.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.EventID)
	}
	return json.Unmarshal(e.Payload, v)
}

// ParseEnvelope decodes a published message body. The routing key falls back
// to the transport's key when the body omits it.
func ParseEnvelope(body []byte, routingKey string) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, err
	}
	if env.RoutingKey == "" {
		env.RoutingKey = routingKey
	}
	return env, nil
}

// Handler reacts to events with specific routing keys.
type Handler interface {
	// RoutingKeys lists the keys this handler subscribes to,
	// e.g. "commitments.commitment.failed".
	RoutingKeys() []string

	Handle(ctx context.Context, event *Envelope) error
}

// Publisher sends encoded envelopes to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// Subscriber delivers broker messages to registered handlers.
type Subscriber interface {
	// Start blocks until the context is cancelled or the subscriber is closed.
	Start(ctx context.Context) error
	Subscribe(handler Handler) error
	Close() error
}
