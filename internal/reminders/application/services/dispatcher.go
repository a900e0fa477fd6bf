package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	commitmentDomain "github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/reminders/domain"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/pkg/observability"
)

// DispatchJobName identifies the dispatcher in locks, metrics and reports.
const DispatchJobName = "reminder-dispatch"

// Actions recorded in the dispatch report.
const (
	ActionSent     = "sent"
	ActionDeferred = "deferred"
	ActionSkipped  = "skipped"
)

// CommitmentFinder loads the commitments reminders point at.
type CommitmentFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*commitmentDomain.Commitment, error)
}

// DispatcherConfig tunes a dispatch run.
type DispatcherConfig struct {
	BatchSize    int
	MaxDeferrals int
	Channel      string

	// Window applied to users without quiet hours of their own, in UTC.
	DefaultQuietStart int
	DefaultQuietEnd   int
}

// DefaultDispatcherConfig returns the production defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:         200,
		MaxDeferrals:      3,
		Channel:           "log",
		DefaultQuietStart: domain.DefaultQuietStart,
		DefaultQuietEnd:   domain.DefaultQuietEnd,
	}
}

// Dispatcher sends due reminders, deferring those that fall in the owner's
// quiet hours until the window ends.
type Dispatcher struct {
	reminders   domain.ReminderRepository
	quietHours  domain.QuietHoursRepository
	commitments CommitmentFinder
	sender      domain.Sender
	uow         sharedApplication.UnitOfWork
	clock       sharedDomain.Clock
	config      DispatcherConfig
	metrics     observability.Metrics
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil clock, metrics or logger gets
// the system default.
func NewDispatcher(
	reminders domain.ReminderRepository,
	quietHours domain.QuietHoursRepository,
	commitments CommitmentFinder,
	sender domain.Sender,
	uow sharedApplication.UnitOfWork,
	clock sharedDomain.Clock,
	config DispatcherConfig,
	metrics observability.Metrics,
	logger *slog.Logger,
) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxDeferrals < 0 {
		config.MaxDeferrals = 0
	}
	if config.Channel == "" {
		config.Channel = defaults.Channel
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
	return &Dispatcher{
		reminders:   reminders,
		quietHours:  quietHours,
		commitments: commitments,
		sender:      sender,
		uow:         uow,
		clock:       clock,
		config:      config,
		metrics:     metrics,
		logger:      logger.With("job", DispatchJobName),
	}
}

func (d *Dispatcher) Name() string { return DispatchJobName }

func (d *Dispatcher) Run(ctx context.Context) (*sharedApplication.BatchReport, error) {
	return d.Dispatch(ctx)
}

// Dispatch handles one batch of due reminders. Per-reminder failures are
// recorded in the report; only loading or saving the batch fails the run.
func (d *Dispatcher) Dispatch(ctx context.Context) (*sharedApplication.BatchReport, error) {
	now := d.clock.Now()
	report := sharedApplication.NewBatchReport(DispatchJobName, now)

	due, err := d.reminders.PendingDue(ctx, now, d.config.BatchSize)
	if err != nil {
		return report, fmt.Errorf("load due reminders: %w", err)
	}
	if len(due) == 0 {
		report.Finish(d.clock.Now())
		return report, nil
	}

	byID, err := d.loadCommitments(ctx, due)
	if err != nil {
		return report, err
	}

	windows := make(map[uuid.UUID]*domain.QuietHours)
	changed := make([]*domain.ReminderEvent, 0, len(due))
	for _, r := range due {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		if d.handle(ctx, r, byID[r.CommitmentID()], windows, now, report) {
			changed = append(changed, r)
		}
	}

	if len(changed) > 0 {
		saveCtx := context.WithoutCancel(ctx)
		err := sharedApplication.WithUnitOfWork(saveCtx, d.uow, func(txCtx context.Context) error {
			return d.reminders.SaveBatch(txCtx, changed)
		})
		if err != nil {
			return report, fmt.Errorf("save dispatched reminders: %w", err)
		}
	}

	report.Finish(d.clock.Now())
	return report, nil
}

// handle decides the fate of one reminder and reports whether it changed.
func (d *Dispatcher) handle(
	ctx context.Context,
	r *domain.ReminderEvent,
	c *commitmentDomain.Commitment,
	windows map[uuid.UUID]*domain.QuietHours,
	now time.Time,
	report *sharedApplication.BatchReport,
) bool {
	log := d.logger.With("reminder_id", r.ID(), "commitment_id", r.CommitmentID())

	if reason := skipReason(r, c); reason != "" {
		if err := r.MarkSkipped(reason, now); err != nil {
			report.Fail(r.ID(), ActionSkipped, err)
			return false
		}
		log.InfoContext(ctx, "reminder skipped", "reason", reason)
		report.Skip(r.ID(), ActionSkipped)
		d.count(ActionSkipped)
		return true
	}

	window, err := d.windowFor(ctx, c.UserID(), windows, now)
	if err != nil {
		log.WarnContext(ctx, "quiet hours lookup failed", "error", err)
		report.Fail(r.ID(), ActionSent, err)
		d.count("error")
		return false
	}

	if window.Contains(now) && r.DeferralCount() < d.config.MaxDeferrals {
		until := window.NextWindowEnd(now)
		if err := r.Defer(until, now); err != nil {
			report.Fail(r.ID(), ActionDeferred, err)
			d.count("error")
			return false
		}
		log.DebugContext(ctx, "reminder deferred", "until", until, "deferrals", r.DeferralCount())
		report.Success(r.ID(), ActionDeferred)
		d.count(ActionDeferred)
		return true
	}

	subject, body := composeMessage(r, c)
	if err := d.sender.Send(ctx, c.UserID(), d.config.Channel, subject, body); err != nil {
		r.RecordFailure(err, now)
		log.WarnContext(ctx, "reminder send failed", "error", err)
		report.Fail(r.ID(), ActionSent, err)
		d.count("error")
		return true
	}
	if err := r.MarkSent(now); err != nil {
		report.Fail(r.ID(), ActionSent, err)
		return false
	}
	report.Success(r.ID(), ActionSent)
	d.count(ActionSent)
	return true
}

func (d *Dispatcher) loadCommitments(ctx context.Context, due []*domain.ReminderEvent) (map[uuid.UUID]*commitmentDomain.Commitment, error) {
	seen := make(map[uuid.UUID]bool, len(due))
	ids := make([]uuid.UUID, 0, len(due))
	for _, r := range due {
		if !seen[r.CommitmentID()] {
			seen[r.CommitmentID()] = true
			ids = append(ids, r.CommitmentID())
		}
	}
	found, err := d.commitments.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load reminder commitments: %w", err)
	}
	byID := make(map[uuid.UUID]*commitmentDomain.Commitment, len(found))
	for _, c := range found {
		byID[c.ID()] = c
	}
	return byID, nil
}

func (d *Dispatcher) windowFor(ctx context.Context, userID uuid.UUID, cache map[uuid.UUID]*domain.QuietHours, now time.Time) (*domain.QuietHours, error) {
	if q, ok := cache[userID]; ok {
		return q, nil
	}
	q, err := d.quietHours.FindByUser(ctx, userID)
	if errors.Is(err, domain.ErrQuietHoursNotFound) {
		q, err = domain.NewQuietHours(userID, d.config.DefaultQuietStart, d.config.DefaultQuietEnd, "UTC", now)
		if err != nil {
			q, err = domain.DefaultQuietHours(userID), nil
		}
	}
	if err != nil {
		return nil, err
	}
	cache[userID] = q
	return q, nil
}

func (d *Dispatcher) count(outcome string) {
	d.metrics.Counter(observability.MetricRemindersDispatched, 1, observability.T("outcome", outcome))
}

// skipReason explains why a reminder will never be sent, or returns "".
func skipReason(r *domain.ReminderEvent, c *commitmentDomain.Commitment) string {
	switch {
	case c == nil:
		return commitmentDomain.ErrCommitmentNotFound.Error()
	case r.Type() == domain.TypeCheckInDue && c.Status() != commitmentDomain.StatusActive:
		return "commitment is " + c.Status().String()
	case r.Type() == domain.TypeGraceFinalWarning && c.Status() != commitmentDomain.StatusDecisionNeeded:
		return "commitment is " + c.Status().String()
	}
	return ""
}
