package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

const reminderColumns = `
	id, commitment_id, type, occurrence_at, scheduled_for, deferral_count,
	status, processed_at, last_error, created_at`

// SQLiteReminderRepository implements domain.ReminderRepository using SQLite.
type SQLiteReminderRepository struct {
	db *sql.DB
}

// NewSQLiteReminderRepository creates a new SQLite reminder repository.
func NewSQLiteReminderRepository(db *sql.DB) *SQLiteReminderRepository {
	return &SQLiteReminderRepository{db: db}
}

func (r *SQLiteReminderRepository) Insert(ctx context.Context, e *domain.ReminderEvent) (bool, error) {
	res, err := persistence.SQLiteExec(ctx, r.db).ExecContext(ctx, `
		INSERT INTO reminder_events (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (commitment_id, type, occurrence_at) DO NOTHING`,
		e.ID().String(),
		e.CommitmentID().String(),
		string(e.Type()),
		persistence.FormatTime(e.OccurrenceAt()),
		persistence.FormatTime(e.ScheduledFor()),
		e.DeferralCount(),
		string(e.Status()),
		persistence.FormatNullTime(e.ProcessedAt()),
		e.LastError(),
		persistence.FormatTime(e.CreatedAt()),
	)
	if err != nil {
		return false, fmt.Errorf("insert reminder %s: %w", e.ID(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteReminderRepository) ExistsAt(ctx context.Context, commitmentID uuid.UUID, t domain.Type, occurrenceAt time.Time) (bool, error) {
	var one int
	err := persistence.SQLiteExec(ctx, r.db).QueryRowContext(ctx, `
		SELECT 1 FROM reminder_events
		WHERE commitment_id = ? AND type = ? AND occurrence_at = ?`,
		commitmentID.String(), string(t), persistence.FormatTime(occurrenceAt),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteReminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ReminderEvent, error) {
	rows, err := persistence.SQLiteExec(ctx, r.db).QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminder_events WHERE id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	events, err := scanSQLiteReminders(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, domain.ErrReminderNotFound
	}
	return events[0], nil
}

func (r *SQLiteReminderRepository) FindByCommitment(ctx context.Context, commitmentID uuid.UUID) ([]*domain.ReminderEvent, error) {
	rows, err := persistence.SQLiteExec(ctx, r.db).QueryContext(ctx, `
		SELECT `+reminderColumns+` FROM reminder_events
		WHERE commitment_id = ?
		ORDER BY occurrence_at, type`, commitmentID.String())
	if err != nil {
		return nil, err
	}
	return scanSQLiteReminders(rows)
}

func (r *SQLiteReminderRepository) PendingDue(ctx context.Context, now time.Time, limit int) ([]*domain.ReminderEvent, error) {
	rows, err := persistence.SQLiteExec(ctx, r.db).QueryContext(ctx, `
		SELECT `+reminderColumns+` FROM reminder_events
		WHERE status = ? AND scheduled_for <= ?
		ORDER BY scheduled_for, id
		LIMIT ?`,
		string(domain.StatusPending), persistence.FormatTime(now), limit)
	if err != nil {
		return nil, err
	}
	return scanSQLiteReminders(rows)
}

// SaveBatch updates every reminder in the caller's transaction, or in one
// of its own.
func (r *SQLiteReminderRepository) SaveBatch(ctx context.Context, events []*domain.ReminderEvent) error {
	if len(events) == 0 {
		return nil
	}
	if info, ok := persistence.SQLiteTxFromContext(ctx); ok {
		return r.updateAll(ctx, info.Tx, events)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := r.updateAll(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteReminderRepository) updateAll(ctx context.Context, exec persistence.SQLExecutor, events []*domain.ReminderEvent) error {
	for _, e := range events {
		_, err := exec.ExecContext(ctx, `
			UPDATE reminder_events
			SET scheduled_for = ?, deferral_count = ?, status = ?, processed_at = ?, last_error = ?
			WHERE id = ?`,
			persistence.FormatTime(e.ScheduledFor()),
			e.DeferralCount(),
			string(e.Status()),
			persistence.FormatNullTime(e.ProcessedAt()),
			e.LastError(),
			e.ID().String(),
		)
		if err != nil {
			return fmt.Errorf("update reminder %s: %w", e.ID(), err)
		}
	}
	return nil
}

func scanSQLiteReminders(rows *sql.Rows) ([]*domain.ReminderEvent, error) {
	defer rows.Close()

	var events []*domain.ReminderEvent
	for rows.Next() {
		var (
			s                             domain.ReminderSnapshot
			id, commitmentID, typ, status string
			occurrenceAt, scheduledFor    string
			createdAt                     string
			processedAt                   sql.NullString
		)
		err := rows.Scan(&id, &commitmentID, &typ, &occurrenceAt, &scheduledFor, &s.DeferralCount,
			&status, &processedAt, &s.LastError, &createdAt)
		if err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("reminder id %q: %w", id, err)
		}
		if s.CommitmentID, err = uuid.Parse(commitmentID); err != nil {
			return nil, fmt.Errorf("reminder %s commitment id: %w", id, err)
		}
		if s.OccurrenceAt, err = persistence.ParseTime(occurrenceAt); err != nil {
			return nil, err
		}
		if s.ScheduledFor, err = persistence.ParseTime(scheduledFor); err != nil {
			return nil, err
		}
		if s.ProcessedAt, err = persistence.ParseNullTime(processedAt); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = persistence.ParseTime(createdAt); err != nil {
			return nil, err
		}
		s.Type = domain.Type(typ)
		s.Status = domain.Status(status)
		events = append(events, domain.RehydrateReminderEvent(s))
	}
	return events, rows.Err()
}
