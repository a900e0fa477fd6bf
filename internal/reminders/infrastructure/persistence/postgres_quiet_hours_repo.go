package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

// PostgresQuietHoursRepository implements domain.QuietHoursRepository using PostgreSQL.
type PostgresQuietHoursRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresQuietHoursRepository creates a new PostgreSQL quiet hours repository.
func NewPostgresQuietHoursRepository(pool *pgxpool.Pool) *PostgresQuietHoursRepository {
	return &PostgresQuietHoursRepository{pool: pool}
}

func (r *PostgresQuietHoursRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.QuietHours, error) {
	var (
		start, end int16
		timezone   string
		updatedAt  time.Time
	)
	err := persistence.PgExec(ctx, r.pool).QueryRow(ctx, `
		SELECT start_hour, end_hour, timezone, updated_at
		FROM quiet_hours WHERE user_id = $1`, userID,
	).Scan(&start, &end, &timezone, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuietHoursNotFound
	}
	if err != nil {
		return nil, err
	}
	return domain.RehydrateQuietHours(userID, int(start), int(end), timezone, updatedAt), nil
}

func (r *PostgresQuietHoursRepository) Save(ctx context.Context, q *domain.QuietHours) error {
	_, err := persistence.PgExec(ctx, r.pool).Exec(ctx, `
		INSERT INTO quiet_hours (user_id, start_hour, end_hour, timezone, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at`,
		q.UserID(), int16(q.StartHour()), int16(q.EndHour()), q.Timezone(), q.UpdatedAt())
	return err
}

func (r *PostgresQuietHoursRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := persistence.PgExec(ctx, r.pool).Exec(ctx, `DELETE FROM quiet_hours WHERE user_id = $1`, userID)
	return err
}
