package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
	"github.com/jurzon/backy/internal/shared/infrastructure/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func weeklyPattern(t *testing.T) recurrence.Pattern {
	t.Helper()
	anchor, err := recurrence.NewDate(2025, time.March, 3)
	require.NoError(t, err)
	p, err := recurrence.NewWeekly(anchor, recurrence.TimeOfDay{Hour: 7, Minute: 30}, "UTC", 2,
		recurrence.NewWeekdaySet(time.Monday, time.Thursday))
	require.NoError(t, err)
	return p
}

func newCommitment(t *testing.T, userID uuid.UUID, deadline time.Time) *domain.Commitment {
	t.Helper()
	stake, err := domain.NewMoney(1500, "CHF")
	require.NoError(t, err)
	c, err := domain.NewCommitment(domain.NewCommitmentParams{
		UserID:   userID,
		Goal:     "Swim twice a fortnight",
		Stake:    stake,
		Deadline: deadline,
		Schedule: weeklyPattern(t),
	}, t0)
	require.NoError(t, err)
	return c
}

func TestSQLiteCommitmentRepository_RoundTrip(t *testing.T) {
	repo := NewSQLiteCommitmentRepository(testdb.SQLite(t))
	ctx := context.Background()
	c := newCommitment(t, uuid.New(), t0.Add(30*24*time.Hour))

	_, err := c.AddCheckIn("first lap", "", t0.Add(time.Hour))
	require.NoError(t, err)
	_, err = c.AddCheckIn("", "https://example.com/pool.jpg", t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.FindByID(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, c.Goal(), got.Goal())
	assert.Equal(t, c.Stake(), got.Stake())
	assert.Equal(t, c.Deadline(), got.Deadline())
	assert.Equal(t, domain.StatusActive, got.Status())
	assert.Equal(t, c.Schedule().Spec(), got.Schedule().Spec())
	require.Equal(t, 2, got.CheckInCount())
	assert.Equal(t, "first lap", got.CheckIns()[0].Note())
	assert.Equal(t, "https://example.com/pool.jpg", got.CheckIns()[1].PhotoURL())
	assert.Equal(t, c.CreatedAt(), got.CreatedAt())
}

func TestSQLiteCommitmentRepository_SaveUpdatesTransitions(t *testing.T) {
	repo := NewSQLiteCommitmentRepository(testdb.SQLite(t))
	ctx := context.Background()
	deadline := t0.Add(48 * time.Hour)
	c := newCommitment(t, uuid.New(), deadline)
	require.NoError(t, repo.Save(ctx, c))

	require.NoError(t, c.TransitionToDecisionNeeded(time.Hour, deadline.Add(time.Minute)))
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.FindByID(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDecisionNeeded, got.Status())
	require.NotNil(t, got.GraceExpiresAt())
	assert.Equal(t, *c.GraceExpiresAt(), *got.GraceExpiresAt())
}

func TestSQLiteCommitmentRepository_Queries(t *testing.T) {
	db := testdb.SQLite(t)
	repo := NewSQLiteCommitmentRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	now := t0.Add(10 * 24 * time.Hour)

	overdue := newCommitment(t, userID, t0.Add(5*24*time.Hour))
	running := newCommitment(t, userID, t0.Add(20*24*time.Hour))
	inGrace := newCommitment(t, uuid.New(), t0.Add(3*24*time.Hour))
	require.NoError(t, inGrace.TransitionToDecisionNeeded(time.Hour, t0.Add(3*24*time.Hour)))
	cancelled := newCommitment(t, userID, t0.Add(20*24*time.Hour))
	require.NoError(t, cancelled.Cancel(t0.Add(time.Hour)))
	require.NoError(t, cancelled.SoftDelete(t0.Add(2*time.Hour)))

	uow := persistence.NewSQLiteUnitOfWork(db)
	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	for _, c := range []*domain.Commitment{overdue, running, inGrace, cancelled} {
		require.NoError(t, repo.Save(txCtx, c))
	}
	require.NoError(t, uow.Commit(txCtx))

	t.Run("active due by cutoff", func(t *testing.T) {
		got, err := repo.FindActiveDueBy(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, overdue.ID(), got[0].ID())
	})

	t.Run("grace expired by cutoff", func(t *testing.T) {
		got, err := repo.FindGraceExpiredBy(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, inGrace.ID(), got[0].ID())

		got, err = repo.FindGraceExpiredBy(ctx, t0.Add(3*24*time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("active ordered by deadline", func(t *testing.T) {
		got, err := repo.FindActive(ctx, nil, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, overdue.ID(), got[0].ID())
		assert.Equal(t, running.ID(), got[1].ID())
	})

	t.Run("active pages after cursor", func(t *testing.T) {
		first, err := repo.FindActive(ctx, nil, 1)
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, overdue.ID(), first[0].ID())

		second, err := repo.FindActive(ctx, domain.CursorAt(first[0]), 1)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, running.ID(), second[0].ID())

		rest, err := repo.FindActive(ctx, domain.CursorAt(second[0]), 1)
		require.NoError(t, err)
		assert.Empty(t, rest)
	})

	t.Run("by user hides deleted", func(t *testing.T) {
		got, err := repo.FindByUser(ctx, userID, false)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = repo.FindByUser(ctx, userID, true)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("by ids ignores unknown", func(t *testing.T) {
		got, err := repo.FindByIDs(ctx, []uuid.UUID{running.ID(), uuid.New(), inGrace.ID()})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSQLiteCommitmentRepository_NotFound(t *testing.T) {
	repo := NewSQLiteCommitmentRepository(testdb.SQLite(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrCommitmentNotFound)
}
