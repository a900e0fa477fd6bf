package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

// SQLiteQuietHoursRepository implements domain.QuietHoursRepository using SQLite.
type SQLiteQuietHoursRepository struct {
	db *sql.DB
}

// NewSQLiteQuietHoursRepository creates a new SQLite quiet hours repository.
func NewSQLiteQuietHoursRepository(db *sql.DB) *SQLiteQuietHoursRepository {
	return &SQLiteQuietHoursRepository{db: db}
}

func (r *SQLiteQuietHoursRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.QuietHours, error) {
	var (
		start, end          int
		timezone, updatedAt string
	)
	err := persistence.SQLiteExec(ctx, r.db).QueryRowContext(ctx, `
		SELECT start_hour, end_hour, timezone, updated_at
		FROM quiet_hours WHERE user_id = ?`, userID.String(),
	).Scan(&start, &end, &timezone, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuietHoursNotFound
	}
	if err != nil {
		return nil, err
	}
	updated, err := persistence.ParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateQuietHours(userID, start, end, timezone, updated), nil
}

func (r *SQLiteQuietHoursRepository) Save(ctx context.Context, q *domain.QuietHours) error {
	_, err := persistence.SQLiteExec(ctx, r.db).ExecContext(ctx, `
		INSERT INTO quiet_hours (user_id, start_hour, end_hour, timezone, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			start_hour = excluded.start_hour,
			end_hour = excluded.end_hour,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at`,
		q.UserID().String(), q.StartHour(), q.EndHour(), q.Timezone(), persistence.FormatTime(q.UpdatedAt()))
	return err
}

func (r *SQLiteQuietHoursRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := persistence.SQLiteExec(ctx, r.db).ExecContext(ctx,
		`DELETE FROM quiet_hours WHERE user_id = ?`, userID.String())
	return err
}
