package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jurzon/backy/internal/commitments/domain"
	reminderDomain "github.com/jurzon/backy/internal/reminders/domain"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/pkg/observability"
)

// HorizonJobName identifies the builder in locks, metrics and reports.
const HorizonJobName = "reminder-horizon"

// Actions recorded in the horizon report.
const (
	ActionScheduled = "scheduled"
	ActionUpToDate  = "up_to_date"
)

// HorizonConfig tunes a horizon build.
type HorizonConfig struct {
	Horizon          time.Duration
	MaxPerCommitment int
	BatchSize        int
}

// DefaultHorizonConfig returns the production defaults.
func DefaultHorizonConfig() HorizonConfig {
	return HorizonConfig{
		Horizon:          7 * 24 * time.Hour,
		MaxPerCommitment: 100,
		BatchSize:        200,
	}
}

// HorizonBuilder keeps a rolling window of check-in reminders persisted
// ahead of each active commitment's schedule.
type HorizonBuilder struct {
	commitments domain.Repository
	reminders   reminderDomain.ReminderRepository
	clock       sharedDomain.Clock
	config      HorizonConfig
	metrics     observability.Metrics
	logger      *slog.Logger
}

// NewHorizonBuilder creates a builder. A nil clock, metrics or logger gets
// the system default.
func NewHorizonBuilder(
	commitments domain.Repository,
	reminders reminderDomain.ReminderRepository,
	clock sharedDomain.Clock,
	config HorizonConfig,
	metrics observability.Metrics,
	logger *slog.Logger,
) *HorizonBuilder {
	defaults := DefaultHorizonConfig()
	if config.Horizon <= 0 {
		config.Horizon = defaults.Horizon
	}
	if config.MaxPerCommitment <= 0 {
		config.MaxPerCommitment = defaults.MaxPerCommitment
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if clock == nil {
		clock = sharedDomain.SystemClock{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HorizonBuilder{
		commitments: commitments,
		reminders:   reminders,
		clock:       clock,
		config:      config,
		metrics:     metrics,
		logger:      logger.With("job", HorizonJobName),
	}
}

func (b *HorizonBuilder) Name() string { return HorizonJobName }

func (b *HorizonBuilder) Run(ctx context.Context) (*sharedApplication.BatchReport, error) {
	return b.Build(ctx)
}

// Build inserts the missing check-in reminders in (now, min(now+horizon,
// deadline)) for every active commitment. Re-running it creates nothing new.
func (b *HorizonBuilder) Build(ctx context.Context) (*sharedApplication.BatchReport, error) {
	now := b.clock.Now()
	report := sharedApplication.NewBatchReport(HorizonJobName, now)

	total := 0
	var cursor *domain.ActiveCursor
	for !report.Cancelled {
		active, err := b.commitments.FindActive(ctx, cursor, b.config.BatchSize)
		if err != nil {
			return report, fmt.Errorf("load active commitments: %w", err)
		}
		for _, c := range active {
			if ctx.Err() != nil {
				report.Cancelled = true
				break
			}
			created, err := b.extend(ctx, c, now)
			total += created
			switch {
			case err != nil:
				b.logger.WarnContext(ctx, "horizon extension failed", "commitment_id", c.ID(), "error", err)
				report.Fail(c.ID(), ActionScheduled, err)
			case created > 0:
				report.Success(c.ID(), ActionScheduled)
			default:
				report.Skip(c.ID(), ActionUpToDate)
			}
		}
		if len(active) < b.config.BatchSize {
			break
		}
		cursor = domain.CursorAt(active[len(active)-1])
	}

	if total > 0 {
		b.metrics.Counter(observability.MetricRemindersCreated, int64(total))
		b.logger.InfoContext(ctx, "reminders scheduled", "count", total)
	}
	report.Finish(b.clock.Now())
	return report, nil
}

// Occurrences returns the occurrences of c the builder would cover at now.
func (b *HorizonBuilder) Occurrences(c *domain.Commitment, now time.Time) []time.Time {
	end := now.Add(b.config.Horizon)
	if c.Deadline().Before(end) {
		end = c.Deadline()
	}
	return c.Schedule().PreviewOccurrences(now, end, b.config.MaxPerCommitment)
}

func (b *HorizonBuilder) extend(ctx context.Context, c *domain.Commitment, now time.Time) (int, error) {
	created := 0
	for _, at := range b.Occurrences(c, now) {
		exists, err := b.reminders.ExistsAt(ctx, c.ID(), reminderDomain.TypeCheckInDue, at)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		r, err := reminderDomain.NewReminderEvent(c.ID(), reminderDomain.TypeCheckInDue, at, now)
		if err != nil {
			return created, err
		}
		inserted, err := b.reminders.Insert(ctx, r)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}
