package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/shared/domain"
	"github.com/stretchr/testify/assert"
)

type testAggregate struct {
	domain.BaseAggregateRoot
}

type testAggregateEvent struct {
	domain.BaseEvent
}

func newTestAggregateEvent(aggregateID uuid.UUID) *testAggregateEvent {
	return &testAggregateEvent{
		BaseEvent: domain.NewBaseEvent(aggregateID, "TestAggregate", "test.aggregate.created", time.Now()),
	}
}

func TestBaseAggregateRoot_Events(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := &testAggregate{BaseAggregateRoot: domain.NewBaseAggregateRoot(domain.NewBaseEntity(now))}

	t.Run("starts without events", func(t *testing.T) {
		assert.NotEqual(t, uuid.Nil, agg.ID())
		assert.Empty(t, agg.DomainEvents())
	})

	t.Run("records events in order", func(t *testing.T) {
		first := newTestAggregateEvent(agg.ID())
		second := newTestAggregateEvent(agg.ID())
		agg.AddDomainEvent(first)
		agg.AddDomainEvent(second)

		events := agg.DomainEvents()
		assert.Len(t, events, 2)
		assert.Equal(t, first.EventID(), events[0].EventID())
		assert.Equal(t, second.EventID(), events[1].EventID())
		for _, e := range events {
			assert.Equal(t, agg.ID(), e.AggregateID())
		}
	})

	t.Run("clears events", func(t *testing.T) {
		agg.ClearDomainEvents()
		assert.Empty(t, agg.DomainEvents())
	})
}
