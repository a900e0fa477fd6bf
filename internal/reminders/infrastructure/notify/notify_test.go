package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
	"github.com/jurzon/backy/internal/shared/infrastructure/testdb"
	"github.com/jurzon/backy/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	userID := uuid.New()

	require.NoError(t, sender.Send(context.Background(), userID, "log", "Check in", "Run 5k"))

	out := buf.String()
	assert.Contains(t, out, userID.String())
	assert.Contains(t, out, "subject=\"Check in\"")
}

func TestInMemorySender(t *testing.T) {
	sender := NewInMemorySender()
	userID := uuid.New()

	require.NoError(t, sender.Send(context.Background(), userID, "email", "s", "b"))
	assert.Equal(t, 1, sender.Count())
	assert.Equal(t, Notification{UserID: userID, Channel: "email", Subject: "s", Body: "b"}, sender.Sent()[0])

	sender.Err = errors.New("down")
	assert.Error(t, sender.Send(context.Background(), userID, "email", "s", "b"))
	assert.Equal(t, 1, sender.Count())
}

func TestOutboxSender(t *testing.T) {
	repo := outbox.NewSQLiteRepository(testdb.SQLite(t))
	sender := NewOutboxSender(repo, sharedDomain.NewFixedClock(t0))
	userID := uuid.New()
	ctx := observability.WithCorrelationID(context.Background(), uuid.NewString())

	require.NoError(t, sender.Send(ctx, userID, "push", "Final warning", "15 minutes left"))

	msgs, err := repo.Pending(context.Background(), t0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoutingKeyNotificationRequested, msgs[0].RoutingKey)

	var payload domain.NotificationRequested
	require.NoError(t, msgs[0].Envelope().Decode(&payload))
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, "Final warning", payload.Subject)
	assert.Equal(t, observability.CorrelationID(ctx), msgs[0].Envelope().Metadata.CorrelationID.String())
}

func TestBreakerSender_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := NewInMemorySender()
	inner.Err = errors.New("provider down")
	sender := NewBreakerSender(inner, BreakerConfig{
		Name:        "test",
		MaxFailures: 2,
		OpenTimeout: time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	userID := uuid.New()

	assert.EqualError(t, sender.Send(ctx, userID, "log", "s", "b"), "provider down")
	assert.EqualError(t, sender.Send(ctx, userID, "log", "s", "b"), "provider down")
	assert.Equal(t, "open", sender.State())

	inner.Err = nil
	assert.ErrorIs(t, sender.Send(ctx, userID, "log", "s", "b"), ErrSenderUnavailable)
	assert.Zero(t, inner.Count())
}

func TestBreakerSender_PassesThrough(t *testing.T) {
	inner := NewInMemorySender()
	sender := NewBreakerSender(inner, DefaultBreakerConfig(), nil)

	require.NoError(t, sender.Send(context.Background(), uuid.New(), "log", "s", "b"))
	assert.Equal(t, 1, inner.Count())
	assert.Equal(t, "closed", sender.State())
}
