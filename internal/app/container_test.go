package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	commitmentCommands "github.com/jurzon/backy/internal/commitments/application/commands"
	commitmentDomain "github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	paymentDomain "github.com/jurzon/backy/internal/payments/domain"
	"github.com/jurzon/backy/internal/reminders/infrastructure/notify"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/database"
	"github.com/jurzon/backy/internal/shared/infrastructure/database/sqlite"
	"github.com/jurzon/backy/internal/shared/infrastructure/eventbus"
	"github.com/jurzon/backy/pkg/config"
	"github.com/jurzon/backy/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                   "test",
		UserID:                   config.DefaultUserID,
		DatabaseDriver:           "sqlite",
		SQLitePath:               sqlite.MemoryPath,
		OutboxPollInterval:       time.Second,
		OutboxBatchSize:          100,
		OutboxMaxRetries:         5,
		OutboxRetentionDays:      14,
		GraceWindow:              time.Hour,
		FinalWarningLead:         15 * time.Minute,
		HorizonDays:              7,
		HorizonMaxPerCommitment:  100,
		DispatchBatchSize:        200,
		MaxDeferrals:             3,
		QuietHoursDefaultStart:   22,
		QuietHoursDefaultEnd:     7,
		ScannerSchedule:          "@every 5m",
		HorizonSchedule:          "@every 15m",
		DispatchSchedule:         "@every 10m",
		WorkerTimezone:           "UTC",
		JobLockTTL:               5 * time.Minute,
		NotifyChannel:            ChannelLog,
		NotifyBreakerMaxFailures: 5,
	}
}

func TestNewContainer_SQLite(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := NewContainer(ctx, testConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	assert.Equal(t, database.DriverSQLite, c.DBDriver)
	assert.Equal(t, config.DefaultUserID, c.UserID.String())
	assert.Nil(t, c.RedisClient)
	assert.Len(t, c.ScheduledJobs(), 3)
	assert.Len(t, c.EventHandlers(), 1)
	require.NoError(t, c.DBConn.Ping(ctx))
}

func TestNewContainer_InvalidSettings(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("user id", func(t *testing.T) {
		cfg := testConfig()
		cfg.UserID = "not-a-uuid"
		_, err := NewContainer(ctx, cfg, logger)
		assert.ErrorContains(t, err, "BACKY_USER_ID")
	})

	t.Run("notify channel", func(t *testing.T) {
		cfg := testConfig()
		cfg.NotifyChannel = "carrier-pigeon"
		_, err := NewContainer(ctx, cfg, logger)
		assert.ErrorContains(t, err, "NOTIFY_CHANNEL")
	})
}

// TestContainer_Lifecycle drives one commitment from creation to a recorded
// payment intent through the wired jobs and the outbox.
func TestContainer_Lifecycle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	deadline := time.Date(2025, 3, 4, 20, 0, 0, 0, time.UTC)

	clock := sharedDomain.NewFixedClock(start)
	metrics := observability.NewInMemoryMetrics()
	sender := notify.NewInMemorySender()

	c, err := NewContainer(ctx, testConfig(), logger, WithClock(clock), WithMetrics(metrics), WithSender(sender))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	anchor, err := recurrence.NewDate(2025, time.March, 1)
	require.NoError(t, err)
	created, err := c.CreateCommitmentHandler.Handle(ctx, commitmentCommands.CreateCommitmentCommand{
		UserID:      c.UserID,
		Goal:        "Practice piano",
		AmountMinor: 4000,
		Currency:    "CHF",
		Deadline:    deadline,
		Schedule: recurrence.Spec{
			Kind:      recurrence.KindDaily,
			Interval:  1,
			Anchor:    anchor,
			TimeOfDay: recurrence.TimeOfDay{Hour: 12},
			Timezone:  "UTC",
		},
	})
	require.NoError(t, err)

	_, err = c.JobRunner.Run(ctx, c.HorizonBuilder)
	require.NoError(t, err)
	reminders, err := c.ReminderRepo.FindByCommitment(ctx, created.CommitmentID)
	require.NoError(t, err)
	assert.Len(t, reminders, 4, "one check-in reminder per day up to the deadline")

	clock.Set(time.Date(2025, 3, 1, 12, 0, 30, 0, time.UTC))
	_, err = c.JobRunner.Run(ctx, c.Dispatcher)
	require.NoError(t, err)
	assert.Equal(t, 1, sender.Count())

	clock.Set(deadline.Add(5 * time.Minute))
	_, err = c.JobRunner.Run(ctx, c.GraceScanner)
	require.NoError(t, err)
	clock.Set(deadline.Add(70 * time.Minute))
	_, err = c.JobRunner.Run(ctx, c.GraceScanner)
	require.NoError(t, err)

	commitment, err := c.CommitmentRepo.FindByID(ctx, created.CommitmentID)
	require.NoError(t, err)
	assert.Equal(t, commitmentDomain.StatusFailed, commitment.Status())

	bus := eventbus.NewInProcessBus(logger)
	for _, h := range c.EventHandlers() {
		require.NoError(t, bus.Subscribe(h))
	}
	require.NoError(t, c.NewOutboxProcessor(bus).ProcessOnce(ctx))

	intent, err := c.PaymentIntentRepo.FindByCommitment(ctx, created.CommitmentID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), intent.AmountMinor())
	assert.Equal(t, "CHF", intent.Currency())
	assert.Equal(t, paymentDomain.StatusPending, intent.Status())

	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricJobRuns,
		observability.T("job", c.HorizonBuilder.Name()), observability.T("outcome", "ok")))
}
