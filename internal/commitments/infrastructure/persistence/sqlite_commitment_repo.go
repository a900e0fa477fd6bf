package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

const sqliteUpsertCommitment = `
	INSERT INTO commitments (` + commitmentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		goal = excluded.goal,
		stake_amount_minor = excluded.stake_amount_minor,
		currency = excluded.currency,
		deadline = excluded.deadline,
		timezone = excluded.timezone,
		status = excluded.status,
		schedule_kind = excluded.schedule_kind,
		schedule_interval = excluded.schedule_interval,
		schedule_anchor = excluded.schedule_anchor,
		schedule_time = excluded.schedule_time,
		schedule_timezone = excluded.schedule_timezone,
		schedule_weekdays = excluded.schedule_weekdays,
		schedule_day_of_month = excluded.schedule_day_of_month,
		schedule_nth = excluded.schedule_nth,
		schedule_weekday = excluded.schedule_weekday,
		decision_needed_at = excluded.decision_needed_at,
		grace_expires_at = excluded.grace_expires_at,
		completed_at = excluded.completed_at,
		failed_at = excluded.failed_at,
		cancelled_at = excluded.cancelled_at,
		deleted_at = excluded.deleted_at,
		updated_at = excluded.updated_at`

// SQLiteCommitmentRepository implements domain.Repository using SQLite.
type SQLiteCommitmentRepository struct {
	db *sql.DB
}

// NewSQLiteCommitmentRepository creates a new SQLite commitment repository.
func NewSQLiteCommitmentRepository(db *sql.DB) *SQLiteCommitmentRepository {
	return &SQLiteCommitmentRepository{db: db}
}

// Save upserts the commitment and inserts check-ins not stored yet, in the
// caller's transaction or one of its own.
func (r *SQLiteCommitmentRepository) Save(ctx context.Context, c *domain.Commitment) error {
	if info, ok := persistence.SQLiteTxFromContext(ctx); ok {
		return r.save(ctx, info.Tx, c)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := r.save(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteCommitmentRepository) save(ctx context.Context, exec persistence.SQLExecutor, c *domain.Commitment) error {
	schedule, anchor := newScheduleRow(c.Schedule())
	_, err := exec.ExecContext(ctx, sqliteUpsertCommitment,
		c.ID().String(),
		c.UserID().String(),
		c.Goal(),
		c.Stake().AmountMinor,
		c.Stake().Currency,
		persistence.FormatTime(c.Deadline()),
		c.Timezone(),
		string(c.Status()),
		schedule.Kind,
		schedule.Interval,
		anchor.String(),
		schedule.Time,
		schedule.Timezone,
		schedule.Weekdays,
		schedule.DayOfMonth,
		schedule.Nth,
		schedule.Weekday,
		persistence.FormatNullTime(c.DecisionNeededAt()),
		persistence.FormatNullTime(c.GraceExpiresAt()),
		persistence.FormatNullTime(c.CompletedAt()),
		persistence.FormatNullTime(c.FailedAt()),
		persistence.FormatNullTime(c.CancelledAt()),
		persistence.FormatNullTime(c.DeletedAt()),
		persistence.FormatTime(c.CreatedAt()),
		persistence.FormatTime(c.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("save commitment %s: %w", c.ID(), err)
	}

	for _, ci := range c.CheckIns() {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO check_ins (`+checkInColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			ci.ID().String(),
			ci.CommitmentID().String(),
			persistence.FormatTime(ci.OccurredAt()),
			ci.Note(),
			ci.PhotoURL(),
			persistence.FormatTime(ci.CreatedAt()),
		)
		if err != nil {
			return fmt.Errorf("save check-in %s: %w", ci.ID(), err)
		}
	}
	return nil
}

func (r *SQLiteCommitmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Commitment, error) {
	found, err := r.find(ctx, `WHERE id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrCommitmentNotFound
	}
	return found[0], nil
}

func (r *SQLiteCommitmentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Commitment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return r.find(ctx, `WHERE id IN (`+placeholders(len(ids))+`) ORDER BY created_at`, args...)
}

func (r *SQLiteCommitmentRepository) FindByUser(ctx context.Context, userID uuid.UUID, includeDeleted bool) ([]*domain.Commitment, error) {
	if includeDeleted {
		return r.find(ctx, `WHERE user_id = ? ORDER BY created_at DESC`, userID.String())
	}
	return r.find(ctx, `WHERE user_id = ? AND status <> ? ORDER BY created_at DESC`,
		userID.String(), string(domain.StatusDeleted))
}

func (r *SQLiteCommitmentRepository) FindActiveDueBy(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Commitment, error) {
	return r.find(ctx, `WHERE status = ? AND deadline <= ? ORDER BY deadline LIMIT ?`,
		string(domain.StatusActive), persistence.FormatTime(cutoff), limit)
}

func (r *SQLiteCommitmentRepository) FindGraceExpiredBy(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Commitment, error) {
	return r.find(ctx, `WHERE status = ? AND grace_expires_at IS NOT NULL AND grace_expires_at <= ? ORDER BY grace_expires_at LIMIT ?`,
		string(domain.StatusDecisionNeeded), persistence.FormatTime(cutoff), limit)
}

func (r *SQLiteCommitmentRepository) FindActive(ctx context.Context, after *domain.ActiveCursor, limit int) ([]*domain.Commitment, error) {
	if after == nil {
		return r.find(ctx, `WHERE status = ? ORDER BY deadline, id LIMIT ?`, string(domain.StatusActive), limit)
	}
	deadline := persistence.FormatTime(after.Deadline)
	return r.find(ctx, `WHERE status = ? AND (deadline > ? OR (deadline = ? AND id > ?)) ORDER BY deadline, id LIMIT ?`,
		string(domain.StatusActive), deadline, deadline, after.ID.String(), limit)
}

// find loads the matching commitments first and their check-ins second, so
// only one result set is open at a time.
func (r *SQLiteCommitmentRepository) find(ctx context.Context, where string, args ...any) ([]*domain.Commitment, error) {
	exec := persistence.SQLiteExec(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `SELECT `+commitmentColumns+` FROM commitments `+where, args...)
	if err != nil {
		return nil, err
	}
	snapshots, err := scanSQLiteCommitments(rows)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}

	checkIns, err := r.loadCheckIns(ctx, exec, snapshots)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Commitment, len(snapshots))
	for i, s := range snapshots {
		s.CheckIns = checkIns[s.ID]
		out[i] = domain.RehydrateCommitment(s)
	}
	return out, nil
}

func (r *SQLiteCommitmentRepository) loadCheckIns(ctx context.Context, exec persistence.SQLExecutor, snapshots []domain.Snapshot) (map[uuid.UUID][]*domain.CheckIn, error) {
	args := make([]any, len(snapshots))
	for i, s := range snapshots {
		args[i] = s.ID.String()
	}
	rows, err := exec.QueryContext(ctx, `
		SELECT `+checkInColumns+` FROM check_ins
		WHERE commitment_id IN (`+placeholders(len(args))+`)
		ORDER BY occurred_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]*domain.CheckIn)
	for rows.Next() {
		var id, commitmentID, occurredAt, note, photoURL, createdAt string
		if err := rows.Scan(&id, &commitmentID, &occurredAt, &note, &photoURL, &createdAt); err != nil {
			return nil, err
		}
		ci, err := sqliteCheckIn(id, commitmentID, occurredAt, note, photoURL, createdAt)
		if err != nil {
			return nil, err
		}
		out[ci.CommitmentID()] = append(out[ci.CommitmentID()], ci)
	}
	return out, rows.Err()
}

func sqliteCheckIn(id, commitmentID, occurredAt, note, photoURL, createdAt string) (*domain.CheckIn, error) {
	checkInID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("check-in id %q: %w", id, err)
	}
	parentID, err := uuid.Parse(commitmentID)
	if err != nil {
		return nil, fmt.Errorf("check-in %s commitment id: %w", id, err)
	}
	occurred, err := persistence.ParseTime(occurredAt)
	if err != nil {
		return nil, err
	}
	created, err := persistence.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateCheckIn(checkInID, parentID, occurred, note, photoURL, created), nil
}

func scanSQLiteCommitments(rows *sql.Rows) ([]domain.Snapshot, error) {
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		var (
			s                                          domain.Snapshot
			schedule                                   scheduleRow
			id, userID, deadline, status, anchor       string
			createdAt, updatedAt                       string
			decision, grace, completed, failed, cancel sql.NullString
			deleted                                    sql.NullString
		)
		err := rows.Scan(
			&id, &userID, &s.Goal, &s.Stake.AmountMinor, &s.Stake.Currency, &deadline, &s.Timezone, &status,
			&schedule.Kind, &schedule.Interval, &anchor, &schedule.Time, &schedule.Timezone,
			&schedule.Weekdays, &schedule.DayOfMonth, &schedule.Nth, &schedule.Weekday,
			&decision, &grace, &completed, &failed, &cancel, &deleted,
			&createdAt, &updatedAt,
		)
		if err != nil {
			return nil, err
		}

		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("commitment id %q: %w", id, err)
		}
		if s.UserID, err = uuid.Parse(userID); err != nil {
			return nil, fmt.Errorf("commitment %s user id: %w", id, err)
		}
		anchorDate, err := recurrence.ParseDate(anchor)
		if err != nil {
			return nil, fmt.Errorf("commitment %s anchor: %w", id, err)
		}
		if s.Schedule, err = schedule.pattern(anchorDate); err != nil {
			return nil, fmt.Errorf("commitment %s schedule: %w", id, err)
		}
		s.Status = domain.Status(status)

		if s.Deadline, err = persistence.ParseTime(deadline); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = persistence.ParseTime(createdAt); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = persistence.ParseTime(updatedAt); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			dst **time.Time
			src sql.NullString
		}{
			{&s.DecisionNeededAt, decision},
			{&s.GraceExpiresAt, grace},
			{&s.CompletedAt, completed},
			{&s.FailedAt, failed},
			{&s.CancelledAt, cancel},
			{&s.DeletedAt, deleted},
		} {
			if *f.dst, err = persistence.ParseNullTime(f.src); err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
