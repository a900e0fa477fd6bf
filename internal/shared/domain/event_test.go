package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/shared/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEvent(t *testing.T) {
	aggregateID := uuid.New()
	occurred := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	event := domain.NewBaseEvent(aggregateID, "TestAggregate", "test.event.created", occurred)

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.Equal(t, aggregateID, event.AggregateID())
	assert.Equal(t, "TestAggregate", event.AggregateType())
	assert.Equal(t, "test.event.created", event.RoutingKey())
	assert.Equal(t, occurred, event.OccurredAt())
}

func TestBaseEvent_SetMetadata(t *testing.T) {
	event := domain.NewBaseEvent(uuid.New(), "TestAggregate", "test.event.created", time.Now())
	meta := domain.EventMetadata{
		CorrelationID: uuid.New(),
		CausationID:   uuid.New(),
		UserID:        uuid.New(),
	}

	event.SetMetadata(meta)

	assert.Equal(t, meta, event.Metadata())
}
