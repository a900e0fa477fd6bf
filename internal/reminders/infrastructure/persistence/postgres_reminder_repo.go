package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

// PostgresReminderRepository implements domain.ReminderRepository using PostgreSQL.
type PostgresReminderRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReminderRepository creates a new PostgreSQL reminder repository.
func NewPostgresReminderRepository(pool *pgxpool.Pool) *PostgresReminderRepository {
	return &PostgresReminderRepository{pool: pool}
}

func (r *PostgresReminderRepository) Insert(ctx context.Context, e *domain.ReminderEvent) (bool, error) {
	tag, err := persistence.PgExec(ctx, r.pool).Exec(ctx, `
		INSERT INTO reminder_events (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (commitment_id, type, occurrence_at) DO NOTHING`,
		e.ID(),
		e.CommitmentID(),
		string(e.Type()),
		e.OccurrenceAt(),
		e.ScheduledFor(),
		e.DeferralCount(),
		string(e.Status()),
		e.ProcessedAt(),
		e.LastError(),
		e.CreatedAt(),
	)
	if err != nil {
		return false, fmt.Errorf("insert reminder %s: %w", e.ID(), err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresReminderRepository) ExistsAt(ctx context.Context, commitmentID uuid.UUID, t domain.Type, occurrenceAt time.Time) (bool, error) {
	var exists bool
	err := persistence.PgExec(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reminder_events
			WHERE commitment_id = $1 AND type = $2 AND occurrence_at = $3
		)`, commitmentID, string(t), occurrenceAt,
	).Scan(&exists)
	return exists, err
}

func (r *PostgresReminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ReminderEvent, error) {
	row := persistence.PgExec(ctx, r.pool).QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminder_events WHERE id = $1`, id)
	e, err := scanPostgresReminder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReminderNotFound
	}
	return e, err
}

func (r *PostgresReminderRepository) FindByCommitment(ctx context.Context, commitmentID uuid.UUID) ([]*domain.ReminderEvent, error) {
	return r.query(ctx, `
		SELECT `+reminderColumns+` FROM reminder_events
		WHERE commitment_id = $1
		ORDER BY occurrence_at, type`, commitmentID)
}

func (r *PostgresReminderRepository) PendingDue(ctx context.Context, now time.Time, limit int) ([]*domain.ReminderEvent, error) {
	return r.query(ctx, `
		SELECT `+reminderColumns+` FROM reminder_events
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for, id
		LIMIT $3`, string(domain.StatusPending), now, limit)
}

func (r *PostgresReminderRepository) SaveBatch(ctx context.Context, events []*domain.ReminderEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			UPDATE reminder_events
			SET scheduled_for = $1, deferral_count = $2, status = $3, processed_at = $4, last_error = $5
			WHERE id = $6`,
			e.ScheduledFor(), e.DeferralCount(), string(e.Status()), e.ProcessedAt(), e.LastError(), e.ID())
	}

	var results pgx.BatchResults
	if info, ok := persistence.PgTxFromContext(ctx); ok {
		results = info.Tx.SendBatch(ctx, batch)
	} else {
		results = r.pool.SendBatch(ctx, batch)
	}
	defer results.Close()

	for _, e := range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("update reminder %s: %w", e.ID(), err)
		}
	}
	return nil
}

func (r *PostgresReminderRepository) query(ctx context.Context, sql string, args ...any) ([]*domain.ReminderEvent, error) {
	rows, err := persistence.PgExec(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.ReminderEvent
	for rows.Next() {
		e, err := scanPostgresReminder(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanPostgresReminder(row pgx.Row) (*domain.ReminderEvent, error) {
	var (
		s           domain.ReminderSnapshot
		typ, status string
		processedAt *time.Time
	)
	err := row.Scan(&s.ID, &s.CommitmentID, &typ, &s.OccurrenceAt, &s.ScheduledFor, &s.DeferralCount,
		&status, &processedAt, &s.LastError, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Type = domain.Type(typ)
	s.Status = domain.Status(status)
	s.ProcessedAt = persistence.UTCPtr(processedAt)
	return domain.RehydrateReminderEvent(s), nil
}
