package queries

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/jurzon/backy/internal/reminders/infrastructure/persistence"
	"github.com/jurzon/backy/internal/shared/infrastructure/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuietHoursHandler(t *testing.T) {
	repo := persistence.NewSQLiteQuietHoursRepository(testdb.SQLite(t))
	handler := NewGetQuietHoursHandler(repo)
	ctx := context.Background()
	userID := uuid.New()

	dto, err := handler.Handle(ctx, GetQuietHoursQuery{UserID: userID})
	require.NoError(t, err)
	assert.True(t, dto.IsDefault)
	assert.Equal(t, domain.DefaultQuietStart, dto.StartHour)
	assert.Equal(t, domain.DefaultQuietEnd, dto.EndHour)

	q, err := domain.NewQuietHours(userID, 21, 8, "UTC", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, q))

	dto, err = handler.Handle(ctx, GetQuietHoursQuery{UserID: userID})
	require.NoError(t, err)
	assert.False(t, dto.IsDefault)
	assert.Equal(t, 21, dto.StartHour)
	assert.Equal(t, "UTC", dto.Timezone)
}
