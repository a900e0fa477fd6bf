// Package app wires repositories, handlers and jobs for the backy binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	commitmentCommands "github.com/jurzon/backy/internal/commitments/application/commands"
	commitmentQueries "github.com/jurzon/backy/internal/commitments/application/queries"
	commitmentServices "github.com/jurzon/backy/internal/commitments/application/services"
	commitmentDomain "github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/commitments/infrastructure/ics"
	paymentHandlers "github.com/jurzon/backy/internal/payments/application/handlers"
	paymentQueries "github.com/jurzon/backy/internal/payments/application/queries"
	paymentDomain "github.com/jurzon/backy/internal/payments/domain"
	reminderCommands "github.com/jurzon/backy/internal/reminders/application/commands"
	reminderQueries "github.com/jurzon/backy/internal/reminders/application/queries"
	reminderServices "github.com/jurzon/backy/internal/reminders/application/services"
	reminderDomain "github.com/jurzon/backy/internal/reminders/domain"
	"github.com/jurzon/backy/internal/reminders/infrastructure/notify"
	reminderPersistence "github.com/jurzon/backy/internal/reminders/infrastructure/persistence"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/database"
	_ "github.com/jurzon/backy/internal/shared/infrastructure/database/postgres" // Register Postgres driver
	_ "github.com/jurzon/backy/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/jurzon/backy/internal/shared/infrastructure/eventbus"
	"github.com/jurzon/backy/internal/shared/infrastructure/jobs"
	"github.com/jurzon/backy/internal/shared/infrastructure/migrations"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
	"github.com/jurzon/backy/pkg/config"
	"github.com/jurzon/backy/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// Notification channels understood by NOTIFY_CHANNEL.
const (
	ChannelLog    = "log"
	ChannelOutbox = "outbox"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Clock   sharedDomain.Clock
	Metrics observability.Metrics

	// UserID owns everything created through this process.
	UserID uuid.UUID

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis, nil unless REDIS_URL is set and reachable.
	RedisClient *redis.Client

	// Repositories
	CommitmentRepo    commitmentDomain.Repository
	ReminderRepo      reminderDomain.ReminderRepository
	QuietHoursRepo    reminderDomain.QuietHoursRepository
	PaymentIntentRepo paymentDomain.Repository
	OutboxRepo        outbox.Repository

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Commitment Command Handlers
	CreateCommitmentHandler   *commitmentCommands.CreateCommitmentHandler
	CheckInHandler            *commitmentCommands.CheckInHandler
	CompleteCommitmentHandler *commitmentCommands.CompleteCommitmentHandler
	FailCommitmentHandler     *commitmentCommands.FailCommitmentHandler
	CancelCommitmentHandler   *commitmentCommands.CancelCommitmentHandler
	DeleteCommitmentHandler   *commitmentCommands.DeleteCommitmentHandler

	// Commitment Query Handlers
	GetCommitmentHandler   *commitmentQueries.GetCommitmentHandler
	ListCommitmentsHandler *commitmentQueries.ListCommitmentsHandler
	PreviewScheduleHandler *commitmentQueries.PreviewScheduleHandler

	// Quiet Hours
	SetQuietHoursHandler   *reminderCommands.SetQuietHoursHandler
	ClearQuietHoursHandler *reminderCommands.ClearQuietHoursHandler
	GetQuietHoursHandler   *reminderQueries.GetQuietHoursHandler

	// Payments
	ListPaymentIntentsHandler *paymentQueries.ListPaymentIntentsHandler
	CommitmentFailedHandler   *paymentHandlers.CommitmentFailedHandler

	// Lifecycle Jobs
	GraceScanner   *commitmentServices.GraceExpiryScanner
	HorizonBuilder *commitmentServices.HorizonBuilder
	Dispatcher     *reminderServices.Dispatcher
	Sender         reminderDomain.Sender
	JobRunner      *jobs.Runner

	// Calendar export
	Exporter              *ics.Exporter
	ExportCalendarHandler *commitmentQueries.ExportCalendarHandler
}

// Option customizes NewContainer.
type Option func(*Container)

// WithClock replaces the system clock.
func WithClock(clock sharedDomain.Clock) Option {
	return func(c *Container) { c.Clock = clock }
}

// WithMetrics replaces the no-op metrics sink.
func WithMetrics(metrics observability.Metrics) Option {
	return func(c *Container) { c.Metrics = metrics }
}

// WithSender replaces the configured notification sender. It is still
// wrapped in the circuit breaker.
func WithSender(sender reminderDomain.Sender) Option {
	return func(c *Container) { c.Sender = sender }
}

// NewContainer opens the configured database, applies migrations and
// builds every handler and job.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Clock:   sharedDomain.SystemClock{},
		Metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}

	userID, err := uuid.Parse(cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid BACKY_USER_ID %q: %w", cfg.UserID, err)
	}
	c.UserID = userID

	conn, err := database.Open(ctx, database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
		MaxConns:   cfg.MaxDBConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(ctx, conn, logger); err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Info("connected to database", "driver", c.DBDriver)

	c.connectRedis(ctx)

	if err := c.initRepositories(); err != nil {
		c.Close()
		return nil, err
	}
	c.initHandlers()
	if err := c.initJobs(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// connectRedis is best effort: without Redis the worker locks in-process
// and quiet hours are read straight from the database.
func (c *Container) connectRedis(ctx context.Context) {
	if c.Config.RedisURL == "" {
		return
	}
	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		c.Logger.Warn("invalid Redis URL, continuing without Redis", "error", err)
		return
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("Redis not available, continuing without Redis", "error", err)
		_ = client.Close()
		return
	}
	c.RedisClient = client
	c.Logger.Info("connected to Redis")
}

func (c *Container) initRepositories() error {
	factory := NewRepositoryFactory(c.DBConn)

	var err error
	if c.CommitmentRepo, err = factory.CommitmentRepository(); err != nil {
		return err
	}
	if c.ReminderRepo, err = factory.ReminderRepository(); err != nil {
		return err
	}
	if c.QuietHoursRepo, err = factory.QuietHoursRepository(); err != nil {
		return err
	}
	if c.PaymentIntentRepo, err = factory.PaymentIntentRepository(); err != nil {
		return err
	}
	if c.OutboxRepo, err = factory.OutboxRepository(); err != nil {
		return err
	}
	if c.UnitOfWork, err = factory.UnitOfWork(); err != nil {
		return err
	}

	if c.RedisClient != nil {
		c.QuietHoursRepo = reminderPersistence.NewCachedQuietHoursRepository(
			c.QuietHoursRepo, c.RedisClient, reminderPersistence.DefaultQuietHoursTTL, c.Logger)
	}
	return nil
}

func (c *Container) initHandlers() {
	// Create commitment command handlers
	c.CreateCommitmentHandler = commitmentCommands.NewCreateCommitmentHandler(c.CommitmentRepo, c.OutboxRepo, c.UnitOfWork, c.Clock)
	c.CheckInHandler = commitmentCommands.NewCheckInHandler(c.CommitmentRepo, c.OutboxRepo, c.UnitOfWork, c.Clock)
	c.CompleteCommitmentHandler = commitmentCommands.NewCompleteCommitmentHandler(c.CommitmentRepo, c.OutboxRepo, c.UnitOfWork, c.Clock)
	c.FailCommitmentHandler = commitmentCommands.NewFailCommitmentHandler(c.CommitmentRepo, c.OutboxRepo, c.UnitOfWork, c.Clock)
	c.CancelCommitmentHandler = commitmentCommands.NewCancelCommitmentHandler(c.CommitmentRepo, c.OutboxRepo, c.UnitOfWork, c.Clock)
	c.DeleteCommitmentHandler = commitmentCommands.NewDeleteCommitmentHandler(c.CommitmentRepo, c.OutboxRepo, c.UnitOfWork, c.Clock)

	// Create commitment query handlers
	c.GetCommitmentHandler = commitmentQueries.NewGetCommitmentHandler(c.CommitmentRepo, c.Clock)
	c.ListCommitmentsHandler = commitmentQueries.NewListCommitmentsHandler(c.CommitmentRepo, c.Clock)
	c.PreviewScheduleHandler = commitmentQueries.NewPreviewScheduleHandler(c.CommitmentRepo, c.Clock)

	// Create quiet hours handlers
	c.SetQuietHoursHandler = reminderCommands.NewSetQuietHoursHandler(c.QuietHoursRepo, c.Clock)
	c.ClearQuietHoursHandler = reminderCommands.NewClearQuietHoursHandler(c.QuietHoursRepo)
	c.GetQuietHoursHandler = reminderQueries.NewGetQuietHoursHandler(c.QuietHoursRepo)

	// Create payment handlers
	c.ListPaymentIntentsHandler = paymentQueries.NewListPaymentIntentsHandler(c.PaymentIntentRepo)
	c.CommitmentFailedHandler = paymentHandlers.NewCommitmentFailedHandler(c.PaymentIntentRepo, c.Clock, c.Metrics, c.Logger)

	c.Exporter = ics.NewExporter(ics.DefaultCheckInDuration)
	c.ExportCalendarHandler = commitmentQueries.NewExportCalendarHandler(c.CommitmentRepo, c.Exporter, c.Clock)
}

func (c *Container) initJobs() error {
	cfg := c.Config

	sender := c.Sender
	if sender == nil {
		switch cfg.NotifyChannel {
		case ChannelOutbox:
			sender = notify.NewOutboxSender(c.OutboxRepo, c.Clock)
		case ChannelLog, "":
			sender = notify.NewLogSender(c.Logger)
		default:
			return fmt.Errorf("unknown NOTIFY_CHANNEL %q", cfg.NotifyChannel)
		}
	}
	breaker := notify.DefaultBreakerConfig()
	breaker.MaxFailures = uint32(max(cfg.NotifyBreakerMaxFailures, 1))
	c.Sender = notify.NewBreakerSender(sender, breaker, c.Logger)

	c.GraceScanner = commitmentServices.NewGraceExpiryScanner(
		c.CommitmentRepo,
		c.ReminderRepo,
		c.OutboxRepo,
		c.UnitOfWork,
		c.Clock,
		commitmentServices.GraceScannerConfig{
			GraceWindow:      cfg.GraceWindow,
			FinalWarningLead: cfg.FinalWarningLead,
		},
		c.Metrics,
		c.Logger,
	)
	c.HorizonBuilder = commitmentServices.NewHorizonBuilder(
		c.CommitmentRepo,
		c.ReminderRepo,
		c.Clock,
		commitmentServices.HorizonConfig{
			Horizon:          cfg.HorizonWindow(),
			MaxPerCommitment: cfg.HorizonMaxPerCommitment,
		},
		c.Metrics,
		c.Logger,
	)
	c.Dispatcher = reminderServices.NewDispatcher(
		c.ReminderRepo,
		c.QuietHoursRepo,
		c.CommitmentRepo,
		c.Sender,
		c.UnitOfWork,
		c.Clock,
		reminderServices.DispatcherConfig{
			BatchSize:         cfg.DispatchBatchSize,
			MaxDeferrals:      cfg.MaxDeferrals,
			Channel:           cfg.NotifyChannel,
			DefaultQuietStart: cfg.QuietHoursDefaultStart,
			DefaultQuietEnd:   cfg.QuietHoursDefaultEnd,
		},
		c.Metrics,
		c.Logger,
	)

	var locker jobs.Locker = jobs.NewLocalLocker()
	if c.RedisClient != nil {
		locker = jobs.NewRedisLocker(c.RedisClient)
	}
	c.JobRunner = jobs.NewRunner(locker, cfg.JobLockTTL, c.Clock, c.Metrics, c.Logger)
	return nil
}

// ScheduledJob pairs a job with its cron spec.
type ScheduledJob struct {
	Spec string
	Job  jobs.Job
}

// ScheduledJobs lists the lifecycle jobs in the order a single manual pass
// should run them: transitions first, then reminder creation, then delivery.
func (c *Container) ScheduledJobs() []ScheduledJob {
	return []ScheduledJob{
		{Spec: c.Config.ScannerSchedule, Job: c.GraceScanner},
		{Spec: c.Config.HorizonSchedule, Job: c.HorizonBuilder},
		{Spec: c.Config.DispatchSchedule, Job: c.Dispatcher},
	}
}

// EventHandlers lists the handlers the worker subscribes to the bus.
func (c *Container) EventHandlers() []eventbus.Handler {
	return []eventbus.Handler{c.CommitmentFailedHandler}
}

// NewOutboxProcessor builds the outbox relay for publisher.
func (c *Container) NewOutboxProcessor(publisher eventbus.Publisher) *outbox.Processor {
	processorConfig := outbox.DefaultProcessorConfig()
	processorConfig.PollInterval = c.Config.OutboxPollInterval
	processorConfig.BatchSize = c.Config.OutboxBatchSize
	processorConfig.MaxRetries = c.Config.OutboxMaxRetries
	return outbox.NewProcessor(c.OutboxRepo, publisher, processorConfig, c.Logger,
		outbox.WithClock(c.Clock),
		outbox.WithMetrics(c.Metrics),
	)
}

// PruneOutbox removes published messages past the retention period.
func (c *Container) PruneOutbox(ctx context.Context) (int64, error) {
	retention := time.Duration(c.Config.OutboxRetentionDays) * 24 * time.Hour
	return c.OutboxRepo.DeleteOld(ctx, c.Clock.Now().Add(-retention))
}

// Close releases the database and Redis connections.
func (c *Container) Close() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("failed to close Redis client", "error", err)
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("failed to close database", "error", err)
		}
	}
}

func runMigrations(ctx context.Context, conn database.Connection, logger *slog.Logger) error {
	var (
		applied int
		err     error
	)
	switch db := conn.(type) {
	case interface{ DB() *sql.DB }:
		applied, err = migrations.RunSQLite(ctx, db.DB())
	case interface{ Pool() *pgxpool.Pool }:
		applied, err = migrations.RunPostgres(ctx, db.Pool())
	default:
		err = errors.New("connection exposes neither DB() nor Pool()")
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		logger.Info("migrations applied", "count", applied)
	}
	return nil
}
