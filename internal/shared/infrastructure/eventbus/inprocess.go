package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// InProcessBus delivers published events synchronously to local handlers.
// The worker uses it when no broker is configured.
type InProcessBus struct {
	registry *Registry
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewInProcessBus creates an in-process bus.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{
		registry: NewRegistry(logger),
		logger:   logger,
	}
}

// Subscribe registers a handler.
func (b *InProcessBus) Subscribe(handler Handler) error {
	b.registry.Register(handler)
	return nil
}

// Publish decodes the envelope and dispatches it before returning.
// Undecodable bodies are dropped; handler errors are returned so the
// outbox schedules a retry.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	event, err := ParseEnvelope(body, routingKey)
	if err != nil {
		b.logger.Error("dropping undecodable event",
			"routing_key", routingKey,
			"error", err,
		)
		return nil
	}

	start := time.Now()
	if err := b.registry.Dispatch(ctx, event); err != nil {
		return err
	}
	b.logger.Debug("event dispatched",
		"routing_key", event.RoutingKey,
		"event_id", event.EventID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Start blocks until ctx is done; delivery happens inside Publish.
func (b *InProcessBus) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Registry exposes the handler registry.
func (b *InProcessBus) Registry() *Registry {
	return b.registry
}

func (b *InProcessBus) Close() error { return nil }

// NoopPublisher discards events after logging them.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that only logs.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.logger.Debug("noop publish", "routing_key", routingKey, "size", len(body))
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
