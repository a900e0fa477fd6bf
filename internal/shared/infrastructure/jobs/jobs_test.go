package jobs

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	"github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/pkg/observability"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (Lock, error) {
	args := m.Called(ctx, name, ttl)
	lock, _ := args.Get(0).(Lock)
	return lock, args.Error(1)
}

type mockLock struct {
	mock.Mock
}

func (m *mockLock) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var jobStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func reportJob(name string, fn func(r *sharedApplication.BatchReport) error) JobFunc {
	return JobFunc{JobName: name, Fn: func(ctx context.Context) (*sharedApplication.BatchReport, error) {
		r := sharedApplication.NewBatchReport(name, jobStart)
		err := fn(r)
		return r, err
	}}
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("runs under the lock and records metrics", func(t *testing.T) {
		lock := new(mockLock)
		lock.On("Release", mock.Anything).Return(nil)
		locker := new(mockLocker)
		locker.On("TryLock", mock.Anything, "grace_scan", 5*time.Minute).Return(lock, nil)
		metrics := observability.NewInMemoryMetrics()
		runner := NewRunner(locker, 5*time.Minute, domain.NewFixedClock(jobStart), metrics, nil)

		report, err := runner.Run(ctx, reportJob("grace_scan", func(r *sharedApplication.BatchReport) error {
			r.Success(uuid.New(), "decision_needed")
			return nil
		}))

		require.NoError(t, err)
		assert.Equal(t, 1, report.Count(sharedApplication.OutcomeSuccess))
		assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricJobRuns,
			observability.T("job", "grace_scan"), observability.T("outcome", "ok")))
		assert.Len(t, metrics.GetTimings(observability.MetricJobDuration, observability.T("job", "grace_scan")), 1)
		locker.AssertExpectations(t)
		lock.AssertExpectations(t)
	})

	t.Run("skips when the lock is held", func(t *testing.T) {
		locker := new(mockLocker)
		locker.On("TryLock", mock.Anything, "dispatch", time.Minute).Return(nil, ErrLockHeld)
		metrics := observability.NewInMemoryMetrics()
		runner := NewRunner(locker, time.Minute, nil, metrics, nil)

		ran := false
		_, err := runner.Run(ctx, reportJob("dispatch", func(*sharedApplication.BatchReport) error {
			ran = true
			return nil
		}))

		assert.ErrorIs(t, err, ErrLockHeld)
		assert.False(t, ran)
		assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricJobSkipped, observability.T("job", "dispatch")))
	})

	t.Run("wraps locker failures", func(t *testing.T) {
		locker := new(mockLocker)
		locker.On("TryLock", mock.Anything, "horizon", time.Minute).Return(nil, errors.New("connection refused"))
		runner := NewRunner(locker, time.Minute, nil, nil, nil)

		_, err := runner.Run(ctx, reportJob("horizon", func(*sharedApplication.BatchReport) error { return nil }))

		assert.EqualError(t, err, "acquire horizon lock: connection refused")
	})

	t.Run("releases the lock when the job fails", func(t *testing.T) {
		lock := new(mockLock)
		lock.On("Release", mock.Anything).Return(nil)
		locker := new(mockLocker)
		locker.On("TryLock", mock.Anything, "horizon", time.Minute).Return(lock, nil)
		metrics := observability.NewInMemoryMetrics()
		runner := NewRunner(locker, time.Minute, nil, metrics, nil)

		_, err := runner.Run(ctx, reportJob("horizon", func(*sharedApplication.BatchReport) error {
			return errors.New("db gone")
		}))

		assert.EqualError(t, err, "db gone")
		lock.AssertCalled(t, "Release", mock.Anything)
		assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricJobRuns,
			observability.T("job", "horizon"), observability.T("outcome", "error")))
	})

	t.Run("marks runs with record errors as partial", func(t *testing.T) {
		metrics := observability.NewInMemoryMetrics()
		runner := NewRunner(nil, time.Minute, nil, metrics, nil)

		_, err := runner.Run(ctx, reportJob("dispatch", func(r *sharedApplication.BatchReport) error {
			r.Fail(uuid.New(), "send", errors.New("smtp down"))
			return nil
		}))

		require.NoError(t, err)
		assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricJobRuns,
			observability.T("job", "dispatch"), observability.T("outcome", "partial")))
	})
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	first, err := locker.TryLock(ctx, "scan", time.Minute)
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, "scan", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := locker.TryLock(ctx, "horizon", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx))

	again, err := locker.TryLock(ctx, "scan", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, again.Release(ctx))
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	locker := NewRedisLocker(client)
	name := "test-" + uuid.NewString()

	lock, err := locker.TryLock(ctx, name, time.Minute)
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, name, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx))
	again, err := locker.TryLock(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.NoError(t, again.Release(ctx))
}

func TestScheduler(t *testing.T) {
	runner := NewRunner(nil, time.Minute, nil, nil, nil)

	t.Run("rejects invalid specs", func(t *testing.T) {
		s := NewScheduler(runner, time.UTC, nil)
		err := s.Add("every tuesday", reportJob("bad", func(*sharedApplication.BatchReport) error { return nil }))
		assert.Error(t, err)
		assert.Zero(t, s.Entries())
	})

	t.Run("runs jobs until cancelled", func(t *testing.T) {
		s := NewScheduler(runner, time.UTC, nil)
		var runs atomic.Int32
		require.NoError(t, s.Add("@every 1s", reportJob("tick", func(*sharedApplication.BatchReport) error {
			runs.Add(1)
			return nil
		})))
		assert.Equal(t, 1, s.Entries())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
		cancel()
		assert.NoError(t, <-done)
	})
}
