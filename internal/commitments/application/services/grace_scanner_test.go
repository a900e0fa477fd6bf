package services

import (
	"context"
	"testing"
	"time"

	"github.com/jurzon/backy/internal/commitments/domain"
	reminderDomain "github.com/jurzon/backy/internal/reminders/domain"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	"github.com/jurzon/backy/internal/shared/infrastructure/jobs"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
	"github.com/jurzon/backy/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanner(f *fixture) *GraceExpiryScanner {
	return NewGraceExpiryScanner(
		f.commitments, f.reminders, f.outbox,
		persistence.NewSQLiteUnitOfWork(f.db), f.clock,
		DefaultGraceScannerConfig(), f.metrics, f.logger,
	)
}

func TestGraceExpiryScanner_Scan(t *testing.T) {
	ctx := context.Background()
	deadline := time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC)

	t.Run("opens the decision window then fails after grace", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, deadline)
		scanner := newScanner(f)

		f.clock.Set(deadline.Add(5 * time.Minute))
		report, err := scanner.Scan(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.CountAction(ActionDecisionNeeded))

		got, err := f.commitments.FindByID(ctx, c.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDecisionNeeded, got.Status())
		require.NotNil(t, got.GraceExpiresAt())
		assert.Equal(t, deadline.Add(60*time.Minute), *got.GraceExpiresAt())

		warnings, err := f.reminders.FindByCommitment(ctx, c.ID())
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Equal(t, reminderDomain.TypeGraceFinalWarning, warnings[0].Type())
		assert.Equal(t, deadline.Add(45*time.Minute), warnings[0].ScheduledFor())

		f.clock.Set(deadline.Add(62 * time.Minute))
		report, err = scanner.Scan(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.CountAction(ActionFailed))

		got, err = f.commitments.FindByID(ctx, c.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, got.Status())
		require.NotNil(t, got.FailedAt())

		assert.Equal(t, []string{domain.RoutingKeyDecisionNeeded, domain.RoutingKeyFailed}, f.stagedKeys(t))
		assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricCommitmentsTransitioned, observability.T("to", "decision_needed")))
		assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricCommitmentsTransitioned, observability.T("to", "failed")))
	})

	t.Run("fails in one run when the window already closed", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, deadline)

		f.clock.Set(deadline.Add(2 * time.Hour))
		report, err := newScanner(f).Scan(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.CountAction(ActionDecisionNeeded))
		assert.Equal(t, 1, report.CountAction(ActionFailed))

		got, err := f.commitments.FindByID(ctx, c.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, got.Status())

		warnings, err := f.reminders.FindByCommitment(ctx, c.ID())
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, []string{domain.RoutingKeyDecisionNeeded, domain.RoutingKeyFailed}, f.stagedKeys(t))
	})

	t.Run("skips the final warning when the lead has passed", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, deadline)

		f.clock.Set(deadline.Add(50 * time.Minute))
		_, err := newScanner(f).Scan(ctx)
		require.NoError(t, err)

		got, err := f.commitments.FindByID(ctx, c.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDecisionNeeded, got.Status())
		warnings, err := f.reminders.FindByCommitment(ctx, c.ID())
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})

	t.Run("leaves commitments before their deadline alone", func(t *testing.T) {
		f := newFixture(t)
		c := f.seed(t, deadline)

		f.clock.Set(deadline.Add(-time.Minute))
		report, err := newScanner(f).Scan(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Results)
		assert.False(t, report.Changed())

		got, err := f.commitments.FindByID(ctx, c.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, got.Status())
		assert.Empty(t, f.stagedKeys(t))
	})

	t.Run("is a job", func(t *testing.T) {
		var job jobs.Job = newScanner(newFixture(t))
		assert.Equal(t, GraceScanJobName, job.Name())

		report, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Count(sharedApplication.OutcomeSuccess))
	})
}
