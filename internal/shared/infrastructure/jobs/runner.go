package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	"github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/pkg/observability"
)

// Job is one periodic batch job.
type Job interface {
	Name() string
	Run(ctx context.Context) (*sharedApplication.BatchReport, error)
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) (*sharedApplication.BatchReport, error)
}

func (f JobFunc) Name() string { return f.JobName }

func (f JobFunc) Run(ctx context.Context) (*sharedApplication.BatchReport, error) {
	return f.Fn(ctx)
}

// Runner wraps each run in the job lock and records its outcome.
type Runner struct {
	locker  Locker
	lockTTL time.Duration
	clock   domain.Clock
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewRunner creates a runner. A nil locker serializes runs in-process.
func NewRunner(locker Locker, lockTTL time.Duration, clock domain.Clock, metrics observability.Metrics, logger *slog.Logger) *Runner {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		locker:  locker,
		lockTTL: lockTTL,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Run executes job once. It returns ErrLockHeld without running when another
// run holds the lock.
func (r *Runner) Run(ctx context.Context, job Job) (*sharedApplication.BatchReport, error) {
	name := job.Name()
	logger := r.logger.With("job", name)
	ctx = observability.WithCorrelationID(ctx, "")

	lock, err := r.locker.TryLock(ctx, name, r.lockTTL)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			logger.InfoContext(ctx, "job already running, skipping")
			r.metrics.Counter(observability.MetricJobSkipped, 1, observability.T("job", name))
			return nil, err
		}
		return nil, fmt.Errorf("acquire %s lock: %w", name, err)
	}
	defer func() {
		// The run's context may be cancelled by now.
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "failed to release job lock", "error", err)
		}
	}()

	start := r.clock.Now()
	report, err := job.Run(ctx)
	elapsed := r.clock.Now().Sub(start)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case report != nil && len(report.Errors()) > 0:
		outcome = "partial"
	}
	r.metrics.Counter(observability.MetricJobRuns, 1, observability.T("job", name), observability.T("outcome", outcome))
	r.metrics.Timing(observability.MetricJobDuration, elapsed, observability.T("job", name))

	if err != nil {
		logger.ErrorContext(ctx, "job failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return report, err
	}
	if report != nil {
		for _, res := range report.Errors() {
			logger.WarnContext(ctx, "record failed", "record_id", res.RecordID, "action", res.Action, "error", res.Err)
		}
		logger.InfoContext(ctx, "job finished", "summary", report.String(), "duration_ms", elapsed.Milliseconds())
	}
	return report, nil
}
