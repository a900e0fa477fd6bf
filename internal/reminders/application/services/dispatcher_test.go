package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	commitmentDomain "github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/jurzon/backy/internal/reminders/infrastructure/notify"
	remindersPersistence "github.com/jurzon/backy/internal/reminders/infrastructure/persistence"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
	"github.com/jurzon/backy/internal/shared/infrastructure/testdb"
	"github.com/jurzon/backy/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockCommitmentFinder is a mock implementation of CommitmentFinder.
type mockCommitmentFinder struct {
	mock.Mock
}

func (m *mockCommitmentFinder) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*commitmentDomain.Commitment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*commitmentDomain.Commitment), args.Error(1)
}

var (
	created = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	lateEve = time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
)

type dispatchFixture struct {
	reminders  *remindersPersistence.SQLiteReminderRepository
	quietHours *remindersPersistence.SQLiteQuietHoursRepository
	finder     *mockCommitmentFinder
	sender     *notify.InMemorySender
	clock      *sharedDomain.FixedClock
	metrics    *observability.InMemoryMetrics
	dispatcher *Dispatcher
}

func newDispatchFixture(t *testing.T, now time.Time) *dispatchFixture {
	t.Helper()
	db := testdb.SQLite(t)
	f := &dispatchFixture{
		reminders:  remindersPersistence.NewSQLiteReminderRepository(db),
		quietHours: remindersPersistence.NewSQLiteQuietHoursRepository(db),
		finder:     new(mockCommitmentFinder),
		sender:     notify.NewInMemorySender(),
		clock:      sharedDomain.NewFixedClock(now),
		metrics:    observability.NewInMemoryMetrics(),
	}
	f.dispatcher = NewDispatcher(
		f.reminders, f.quietHours, f.finder, f.sender,
		persistence.NewSQLiteUnitOfWork(db), f.clock,
		DefaultDispatcherConfig(), f.metrics,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func newCommitment(t *testing.T) *commitmentDomain.Commitment {
	t.Helper()
	anchor, err := recurrence.NewDate(2025, time.March, 1)
	require.NoError(t, err)
	pattern, err := recurrence.NewDaily(anchor, recurrence.TimeOfDay{Hour: 9}, "UTC", 1)
	require.NoError(t, err)
	stake, err := commitmentDomain.NewMoney(2500, "EUR")
	require.NoError(t, err)

	c, err := commitmentDomain.NewCommitment(commitmentDomain.NewCommitmentParams{
		UserID:   uuid.New(),
		Goal:     "Run every morning",
		Stake:    stake,
		Deadline: created.Add(7 * 24 * time.Hour),
		Schedule: pattern,
	}, created)
	require.NoError(t, err)
	return c
}

func (f *dispatchFixture) insert(t *testing.T, r *domain.ReminderEvent) {
	t.Helper()
	inserted, err := f.reminders.Insert(context.Background(), r)
	require.NoError(t, err)
	require.True(t, inserted)
}

func (f *dispatchFixture) reload(t *testing.T, id uuid.UUID) *domain.ReminderEvent {
	t.Helper()
	r, err := f.reminders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

func dueReminder(t *testing.T, c *commitmentDomain.Commitment, at time.Time) *domain.ReminderEvent {
	t.Helper()
	r, err := domain.NewReminderEvent(c.ID(), domain.TypeCheckInDue, at, created)
	require.NoError(t, err)
	return r
}

func TestDispatcher_DefersInsideOvernightWindow(t *testing.T) {
	f := newDispatchFixture(t, lateEve)
	c := newCommitment(t)
	r := dueReminder(t, c, lateEve)
	f.insert(t, r)
	f.finder.On("FindByIDs", mock.Anything, []uuid.UUID{c.ID()}).Return([]*commitmentDomain.Commitment{c}, nil)

	report, err := f.dispatcher.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.CountAction(ActionDeferred))
	assert.Zero(t, f.sender.Count())

	got := f.reload(t, r.ID())
	assert.Equal(t, domain.StatusPending, got.Status())
	assert.Equal(t, 1, got.DeferralCount())
	assert.True(t, got.ScheduledFor().After(lateEve))
	assert.Equal(t, time.Date(2025, 3, 2, 7, 0, 0, 0, time.UTC), got.ScheduledFor())
	assert.EqualValues(t, 1, f.metrics.GetCounter(observability.MetricRemindersDispatched, observability.T("outcome", ActionDeferred)))
	f.finder.AssertExpectations(t)
}

func TestDispatcher_SendsOnceDeferralCapIsReached(t *testing.T) {
	f := newDispatchFixture(t, lateEve)
	c := newCommitment(t)
	r := domain.RehydrateReminderEvent(domain.ReminderSnapshot{
		ID:            uuid.New(),
		CommitmentID:  c.ID(),
		Type:          domain.TypeCheckInDue,
		OccurrenceAt:  lateEve.Add(-3 * 24 * time.Hour),
		ScheduledFor:  lateEve,
		DeferralCount: 3,
		Status:        domain.StatusPending,
		CreatedAt:     created,
	})
	f.insert(t, r)
	f.finder.On("FindByIDs", mock.Anything, mock.Anything).Return([]*commitmentDomain.Commitment{c}, nil)

	report, err := f.dispatcher.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.CountAction(ActionSent))
	require.Equal(t, 1, f.sender.Count())
	assert.Equal(t, c.UserID(), f.sender.Sent()[0].UserID)
	assert.Contains(t, f.sender.Sent()[0].Subject, "Run every morning")

	got := f.reload(t, r.ID())
	assert.Equal(t, domain.StatusSent, got.Status())
	assert.Equal(t, 3, got.DeferralCount())
}

func TestDispatcher_SendsOutsideSameDayWindow(t *testing.T) {
	evening := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	f := newDispatchFixture(t, evening)
	c := newCommitment(t)
	q, err := domain.NewQuietHours(c.UserID(), 9, 17, "UTC", created)
	require.NoError(t, err)
	require.NoError(t, f.quietHours.Save(context.Background(), q))

	r := dueReminder(t, c, evening)
	f.insert(t, r)
	f.finder.On("FindByIDs", mock.Anything, mock.Anything).Return([]*commitmentDomain.Commitment{c}, nil)

	report, err := f.dispatcher.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.sender.Count())
	assert.Equal(t, "log", f.sender.Sent()[0].Channel)
	assert.Equal(t, "reminder-dispatch: 1 ok, 0 skipped, 0 failed", report.String())

	got := f.reload(t, r.ID())
	assert.Equal(t, domain.StatusSent, got.Status())
	require.NotNil(t, got.ProcessedAt())
	assert.Equal(t, evening, *got.ProcessedAt())
}

func TestDispatcher_SkipsWhenCommitmentMissingOrClosed(t *testing.T) {
	f := newDispatchFixture(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	active := newCommitment(t)
	orphan := dueReminder(t, newCommitment(t), created.Add(time.Hour))
	warning, err := domain.NewReminderEvent(active.ID(), domain.TypeGraceFinalWarning, created.Add(2*time.Hour), created)
	require.NoError(t, err)
	f.insert(t, orphan)
	f.insert(t, warning)
	f.finder.On("FindByIDs", mock.Anything, mock.Anything).Return([]*commitmentDomain.Commitment{active}, nil)

	report, err := f.dispatcher.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(sharedApplication.OutcomeSkipped))
	assert.Zero(t, f.sender.Count())

	got := f.reload(t, orphan.ID())
	assert.Equal(t, domain.StatusSkipped, got.Status())
	assert.Equal(t, commitmentDomain.ErrCommitmentNotFound.Error(), got.LastError())

	got = f.reload(t, warning.ID())
	assert.Equal(t, domain.StatusSkipped, got.Status())
	assert.Equal(t, "commitment is active", got.LastError())
}

func TestDispatcher_SendFailureKeepsReminderPending(t *testing.T) {
	noon := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newDispatchFixture(t, noon)
	f.sender.Err = errors.New("provider down")
	c := newCommitment(t)
	r := dueReminder(t, c, noon)
	f.insert(t, r)
	f.finder.On("FindByIDs", mock.Anything, mock.Anything).Return([]*commitmentDomain.Commitment{c}, nil)

	report, err := f.dispatcher.Dispatch(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Errors(), 1)
	assert.EqualError(t, report.Errors()[0].Err, "provider down")

	got := f.reload(t, r.ID())
	assert.Equal(t, domain.StatusPending, got.Status())
	assert.Equal(t, "provider down", got.LastError())
}

func TestDispatcher_NothingDue(t *testing.T) {
	f := newDispatchFixture(t, lateEve)

	report, err := f.dispatcher.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	f.finder.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestDispatcher_LookupFailureAbortsRun(t *testing.T) {
	f := newDispatchFixture(t, lateEve)
	c := newCommitment(t)
	f.insert(t, dueReminder(t, c, lateEve))
	f.finder.On("FindByIDs", mock.Anything, mock.Anything).Return(nil, errors.New("db gone"))

	_, err := f.dispatcher.Dispatch(context.Background())
	assert.ErrorContains(t, err, "db gone")
}

func TestDispatcher_IsAJob(t *testing.T) {
	f := newDispatchFixture(t, lateEve)
	assert.Equal(t, DispatchJobName, f.dispatcher.Name())

	report, err := f.dispatcher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DispatchJobName, report.Job)
}
