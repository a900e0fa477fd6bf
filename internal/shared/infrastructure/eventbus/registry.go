package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// Registry maps routing keys to handlers.
type Registry struct {
	handlers map[string][]Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Register adds a handler under each of its routing keys.
func (r *Registry) Register(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range handler.RoutingKeys() {
		r.handlers[key] = append(r.handlers[key], handler)
		r.logger.Debug("registered event handler", "routing_key", key)
	}
}

// Handlers returns the handlers bound to a routing key.
func (r *Registry) Handlers(routingKey string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.handlers[routingKey]
}

// RoutingKeys returns every key with at least one handler, sorted.
func (r *Registry) RoutingKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Dispatch delivers the event to every handler for its routing key.
// All handlers run even when one fails; the failures are joined.
func (r *Registry) Dispatch(ctx context.Context, event *Envelope) error {
	handlers := r.Handlers(event.RoutingKey)
	if len(handlers) == 0 {
		r.logger.Debug("no handlers for event", "routing_key", event.RoutingKey)
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			r.logger.Error("event handler failed",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of handler registrations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, handlers := range r.handlers {
		count += len(handlers)
	}
	return count
}
