package commands

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockCommitmentRepo is a mock implementation of domain.Repository.
type mockCommitmentRepo struct {
	mock.Mock
}

func (m *mockCommitmentRepo) Save(ctx context.Context, c *domain.Commitment) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCommitmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Commitment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commitment), args.Error(1)
}

func (m *mockCommitmentRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Commitment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Commitment), args.Error(1)
}

func (m *mockCommitmentRepo) FindByUser(ctx context.Context, userID uuid.UUID, includeDeleted bool) ([]*domain.Commitment, error) {
	args := m.Called(ctx, userID, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Commitment), args.Error(1)
}

func (m *mockCommitmentRepo) FindActiveDueBy(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Commitment, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Commitment), args.Error(1)
}

func (m *mockCommitmentRepo) FindGraceExpiredBy(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Commitment, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Commitment), args.Error(1)
}

func (m *mockCommitmentRepo) FindActive(ctx context.Context, after *domain.ActiveCursor, limit int) ([]*domain.Commitment, error) {
	args := m.Called(ctx, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Commitment), args.Error(1)
}

// mockOutboxRepo is a mock implementation of outbox.Repository.
type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Save(ctx context.Context, msg *outbox.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockOutboxRepo) Pending(ctx context.Context, now time.Time, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	return m.Called(ctx, id, errMsg, nextRetryAt).Error(0)
}

func (m *mockOutboxRepo) MarkDead(ctx context.Context, id int64, reason string, at time.Time) error {
	return m.Called(ctx, id, reason, at).Error(0)
}

func (m *mockOutboxRepo) DeleteOld(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// mockUnitOfWork is a mock implementation of UnitOfWork.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func passthroughUnitOfWork(ctx context.Context) *mockUnitOfWork {
	uow := new(mockUnitOfWork)
	uow.On("Begin", mock.Anything).Return(ctx, nil)
	uow.On("Commit", mock.Anything).Return(nil).Maybe()
	uow.On("Rollback", mock.Anything).Return(nil).Maybe()
	return uow
}

var (
	created  = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	deadline = time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC)
)

func dailySpec(t *testing.T) recurrence.Spec {
	t.Helper()
	anchor, err := recurrence.NewDate(2025, time.March, 1)
	require.NoError(t, err)
	return recurrence.Spec{
		Kind:      recurrence.KindDaily,
		Interval:  1,
		Anchor:    anchor,
		TimeOfDay: recurrence.TimeOfDay{Hour: 9},
		Timezone:  "UTC",
	}
}

func newCommitment(t *testing.T, userID uuid.UUID) *domain.Commitment {
	t.Helper()
	pattern, err := recurrence.FromSpec(dailySpec(t))
	require.NoError(t, err)
	c, err := domain.NewCommitment(domain.NewCommitmentParams{
		UserID:   userID,
		Goal:     "Run every morning",
		Stake:    domain.Money{AmountMinor: 2500, Currency: "EUR"},
		Deadline: deadline,
		Schedule: pattern,
	}, created)
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

// routingKeys extracts the routing keys staged in a SaveBatch call.
func routingKeys(msgs []*outbox.Message) []string {
	keys := make([]string, len(msgs))
	for i, m := range msgs {
		keys[i] = m.RoutingKey
	}
	return keys
}
