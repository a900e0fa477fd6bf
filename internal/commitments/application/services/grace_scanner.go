package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	reminderDomain "github.com/jurzon/backy/internal/reminders/domain"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
	"github.com/jurzon/backy/pkg/observability"
)

// GraceScanJobName identifies the scanner in locks, metrics and reports.
const GraceScanJobName = "grace-scan"

// Actions recorded in the scan report.
const (
	ActionDecisionNeeded = "decision_needed"
	ActionFailed         = "failed"
)

// GraceScannerConfig tunes a scan.
type GraceScannerConfig struct {
	GraceWindow      time.Duration
	FinalWarningLead time.Duration
	BatchSize        int
}

// DefaultGraceScannerConfig returns the production defaults.
func DefaultGraceScannerConfig() GraceScannerConfig {
	return GraceScannerConfig{
		GraceWindow:      60 * time.Minute,
		FinalWarningLead: 15 * time.Minute,
		BatchSize:        200,
	}
}

// GraceExpiryScanner moves commitments past their deadline into the
// decision window and fails those whose window has closed.
type GraceExpiryScanner struct {
	commitments domain.Repository
	reminders   reminderDomain.ReminderRepository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	clock       sharedDomain.Clock
	config      GraceScannerConfig
	metrics     observability.Metrics
	logger      *slog.Logger
}

// NewGraceExpiryScanner creates a scanner. A nil clock, metrics or logger
// gets the system default.
func NewGraceExpiryScanner(
	commitments domain.Repository,
	reminders reminderDomain.ReminderRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	clock sharedDomain.Clock,
	config GraceScannerConfig,
	metrics observability.Metrics,
	logger *slog.Logger,
) *GraceExpiryScanner {
	defaults := DefaultGraceScannerConfig()
	if config.GraceWindow <= 0 {
		config.GraceWindow = defaults.GraceWindow
	}
	if config.FinalWarningLead < 0 {
		config.FinalWarningLead = 0
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
	return &GraceExpiryScanner{
		commitments: commitments,
		reminders:   reminders,
		outboxRepo:  outboxRepo,
		uow:         uow,
		clock:       clock,
		config:      config,
		metrics:     metrics,
		logger:      logger.With("job", GraceScanJobName),
	}
}

func (s *GraceExpiryScanner) Name() string { return GraceScanJobName }

func (s *GraceExpiryScanner) Run(ctx context.Context) (*sharedApplication.BatchReport, error) {
	return s.Scan(ctx)
}

// scanResult collects what a scan changed, to be written in one transaction.
type scanResult struct {
	changed     []*domain.Commitment
	warnings    []*reminderDomain.ReminderEvent
	transitions map[string]int
}

// Scan runs both passes over the commitments selected at the start of the
// run. A commitment whose grace window already closed when it entered the
// decision window is failed in the same run.
func (s *GraceExpiryScanner) Scan(ctx context.Context) (*sharedApplication.BatchReport, error) {
	now := s.clock.Now()
	report := sharedApplication.NewBatchReport(GraceScanJobName, now)

	due, err := s.commitments.FindActiveDueBy(ctx, now, s.config.BatchSize)
	if err != nil {
		return report, fmt.Errorf("load commitments past deadline: %w", err)
	}
	expired, err := s.commitments.FindGraceExpiredBy(ctx, now, s.config.BatchSize)
	if err != nil {
		return report, fmt.Errorf("load commitments past grace: %w", err)
	}

	result := &scanResult{transitions: make(map[string]int)}

	for _, c := range due {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		if s.openDecision(ctx, c, now, report, result) && !c.GraceExpiresAt().After(now) {
			expired = append(expired, c)
		}
	}

	for _, c := range expired {
		if report.Cancelled || ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		s.fail(ctx, c, now, report, result)
	}

	if err := s.save(ctx, result); err != nil {
		return report, err
	}
	for to, n := range result.transitions {
		s.metrics.Counter(observability.MetricCommitmentsTransitioned, int64(n), observability.T("to", to))
	}

	report.Finish(s.clock.Now())
	return report, nil
}

func (s *GraceExpiryScanner) openDecision(ctx context.Context, c *domain.Commitment, now time.Time, report *sharedApplication.BatchReport, result *scanResult) bool {
	log := s.logger.With("commitment_id", c.ID())

	if err := c.TransitionToDecisionNeeded(s.config.GraceWindow, now); err != nil {
		log.WarnContext(ctx, "decision transition failed", "error", err)
		report.Fail(c.ID(), ActionDecisionNeeded, err)
		return false
	}

	warnAt := c.GraceExpiresAt().Add(-s.config.FinalWarningLead)
	if warnAt.After(now) {
		warning, err := reminderDomain.NewReminderEvent(c.ID(), reminderDomain.TypeGraceFinalWarning, warnAt, now)
		if err != nil {
			log.WarnContext(ctx, "final warning not scheduled", "error", err)
		} else {
			result.warnings = append(result.warnings, warning)
		}
	}

	log.InfoContext(ctx, "commitment awaits decision", "grace_expires_at", c.GraceExpiresAt())
	result.changed = append(result.changed, c)
	result.transitions[domain.StatusDecisionNeeded.String()]++
	report.Success(c.ID(), ActionDecisionNeeded)
	return true
}

func (s *GraceExpiryScanner) fail(ctx context.Context, c *domain.Commitment, now time.Time, report *sharedApplication.BatchReport, result *scanResult) {
	log := s.logger.With("commitment_id", c.ID())

	if err := c.Fail(now); err != nil {
		log.WarnContext(ctx, "grace expiry failed", "error", err)
		report.Fail(c.ID(), ActionFailed, err)
		return
	}

	log.InfoContext(ctx, "commitment failed after grace", "stake", c.Stake().String())
	result.changed = appendOnce(result.changed, c)
	result.transitions[domain.StatusFailed.String()]++
	report.Success(c.ID(), ActionFailed)
}

// save writes every changed commitment, its events and the final warnings
// in one unit of work. It runs even when ctx was cancelled mid-batch.
func (s *GraceExpiryScanner) save(ctx context.Context, result *scanResult) error {
	if len(result.changed) == 0 {
		return nil
	}
	saveCtx := context.WithoutCancel(ctx)
	correlationID, _ := uuid.Parse(observability.CorrelationID(ctx))

	err := sharedApplication.WithUnitOfWork(saveCtx, s.uow, func(txCtx context.Context) error {
		for _, c := range result.changed {
			if err := s.commitments.Save(txCtx, c); err != nil {
				return fmt.Errorf("save commitment %s: %w", c.ID(), err)
			}
			events := c.DomainEvents()
			sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(c.UserID(), correlationID))
			if err := outbox.Stage(txCtx, s.outboxRepo, events); err != nil {
				return err
			}
		}
		for _, w := range result.warnings {
			if _, err := s.reminders.Insert(txCtx, w); err != nil {
				return fmt.Errorf("schedule final warning for %s: %w", w.CommitmentID(), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save scan results: %w", err)
	}
	for _, c := range result.changed {
		c.ClearDomainEvents()
	}
	return nil
}

func appendOnce(list []*domain.Commitment, c *domain.Commitment) []*domain.Commitment {
	for _, existing := range list {
		if existing.ID() == c.ID() {
			return list
		}
	}
	return append(list, c)
}
