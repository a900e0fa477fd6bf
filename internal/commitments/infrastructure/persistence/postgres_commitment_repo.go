package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jurzon/backy/internal/commitments/domain"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
	"github.com/lib/pq"
)

const postgresUpsertCommitment = `
	INSERT INTO commitments (` + commitmentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23, $24, $25)
	ON CONFLICT (id) DO UPDATE SET
		goal = EXCLUDED.goal,
		stake_amount_minor = EXCLUDED.stake_amount_minor,
		currency = EXCLUDED.currency,
		deadline = EXCLUDED.deadline,
		timezone = EXCLUDED.timezone,
		status = EXCLUDED.status,
		schedule_kind = EXCLUDED.schedule_kind,
		schedule_interval = EXCLUDED.schedule_interval,
		schedule_anchor = EXCLUDED.schedule_anchor,
		schedule_time = EXCLUDED.schedule_time,
		schedule_timezone = EXCLUDED.schedule_timezone,
		schedule_weekdays = EXCLUDED.schedule_weekdays,
		schedule_day_of_month = EXCLUDED.schedule_day_of_month,
		schedule_nth = EXCLUDED.schedule_nth,
		schedule_weekday = EXCLUDED.schedule_weekday,
		decision_needed_at = EXCLUDED.decision_needed_at,
		grace_expires_at = EXCLUDED.grace_expires_at,
		completed_at = EXCLUDED.completed_at,
		failed_at = EXCLUDED.failed_at,
		cancelled_at = EXCLUDED.cancelled_at,
		deleted_at = EXCLUDED.deleted_at,
		updated_at = EXCLUDED.updated_at`

// PostgresCommitmentRepository implements domain.Repository using PostgreSQL.
type PostgresCommitmentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCommitmentRepository creates a new PostgreSQL commitment repository.
func NewPostgresCommitmentRepository(pool *pgxpool.Pool) *PostgresCommitmentRepository {
	return &PostgresCommitmentRepository{pool: pool}
}

func (r *PostgresCommitmentRepository) Save(ctx context.Context, c *domain.Commitment) error {
	if info, ok := persistence.PgTxFromContext(ctx); ok {
		return r.save(ctx, info.Tx, c)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := r.save(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresCommitmentRepository) save(ctx context.Context, tx pgx.Tx, c *domain.Commitment) error {
	schedule, anchor := newScheduleRow(c.Schedule())
	_, err := tx.Exec(ctx, postgresUpsertCommitment,
		c.ID(),
		c.UserID(),
		c.Goal(),
		c.Stake().AmountMinor,
		c.Stake().Currency,
		c.Deadline(),
		c.Timezone(),
		string(c.Status()),
		schedule.Kind,
		schedule.Interval,
		time.Date(anchor.Year, anchor.Month, anchor.Day, 0, 0, 0, 0, time.UTC),
		schedule.Time,
		schedule.Timezone,
		int16(schedule.Weekdays),
		int16(schedule.DayOfMonth),
		int16(schedule.Nth),
		int16(schedule.Weekday),
		c.DecisionNeededAt(),
		c.GraceExpiresAt(),
		c.CompletedAt(),
		c.FailedAt(),
		c.CancelledAt(),
		c.DeletedAt(),
		c.CreatedAt(),
		c.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save commitment %s: %w", c.ID(), err)
	}

	if len(c.CheckIns()) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ci := range c.CheckIns() {
		batch.Queue(`
			INSERT INTO check_ins (`+checkInColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			ci.ID(), ci.CommitmentID(), ci.OccurredAt(), ci.Note(), ci.PhotoURL(), ci.CreatedAt())
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for _, ci := range c.CheckIns() {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("save check-in %s: %w", ci.ID(), err)
		}
	}
	return nil
}

func (r *PostgresCommitmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Commitment, error) {
	found, err := r.find(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrCommitmentNotFound
	}
	return found[0], nil
}

func (r *PostgresCommitmentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Commitment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, `WHERE id = ANY($1) ORDER BY created_at`, pq.Array(uuidStrings(ids)))
}

func (r *PostgresCommitmentRepository) FindByUser(ctx context.Context, userID uuid.UUID, includeDeleted bool) ([]*domain.Commitment, error) {
	if includeDeleted {
		return r.find(ctx, `WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	}
	return r.find(ctx, `WHERE user_id = $1 AND status <> $2 ORDER BY created_at DESC`,
		userID, string(domain.StatusDeleted))
}

func (r *PostgresCommitmentRepository) FindActiveDueBy(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Commitment, error) {
	return r.find(ctx, `WHERE status = $1 AND deadline <= $2 ORDER BY deadline LIMIT $3`,
		string(domain.StatusActive), cutoff, limit)
}

func (r *PostgresCommitmentRepository) FindGraceExpiredBy(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Commitment, error) {
	return r.find(ctx, `WHERE status = $1 AND grace_expires_at <= $2 ORDER BY grace_expires_at LIMIT $3`,
		string(domain.StatusDecisionNeeded), cutoff, limit)
}

func (r *PostgresCommitmentRepository) FindActive(ctx context.Context, after *domain.ActiveCursor, limit int) ([]*domain.Commitment, error) {
	if after == nil {
		return r.find(ctx, `WHERE status = $1 ORDER BY deadline, id LIMIT $2`, string(domain.StatusActive), limit)
	}
	return r.find(ctx, `WHERE status = $1 AND (deadline, id) > ($2, $3) ORDER BY deadline, id LIMIT $4`,
		string(domain.StatusActive), after.Deadline, after.ID, limit)
}

func (r *PostgresCommitmentRepository) find(ctx context.Context, where string, args ...any) ([]*domain.Commitment, error) {
	exec := persistence.PgExec(ctx, r.pool)
	rows, err := exec.Query(ctx, `SELECT `+commitmentColumns+` FROM commitments `+where, args...)
	if err != nil {
		return nil, err
	}
	snapshots, err := pgx.CollectRows(rows, scanPostgresCommitment)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(snapshots))
	for i, s := range snapshots {
		ids[i] = s.ID
	}
	checkIns, err := r.loadCheckIns(ctx, exec, ids)
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

func (r *PostgresCommitmentRepository) loadCheckIns(ctx context.Context, exec persistence.PgExecutor, ids []uuid.UUID) (map[uuid.UUID][]*domain.CheckIn, error) {
	rows, err := exec.Query(ctx, `
		SELECT `+checkInColumns+` FROM check_ins
		WHERE commitment_id = ANY($1)
		ORDER BY occurred_at, id`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]*domain.CheckIn)
	for rows.Next() {
		var (
			id, commitmentID      uuid.UUID
			occurredAt, createdAt time.Time
			note, photoURL        string
		)
		if err := rows.Scan(&id, &commitmentID, &occurredAt, &note, &photoURL, &createdAt); err != nil {
			return nil, err
		}
		out[commitmentID] = append(out[commitmentID], domain.RehydrateCheckIn(id, commitmentID, occurredAt, note, photoURL, createdAt))
	}
	return out, rows.Err()
}

func scanPostgresCommitment(row pgx.CollectableRow) (domain.Snapshot, error) {
	var (
		s                              domain.Snapshot
		status, kind, at, scheduleZone string
		interval                       int32
		anchor                         time.Time
		weekdays, dayOfMonth, nth, wd  int16
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Goal, &s.Stake.AmountMinor, &s.Stake.Currency, &s.Deadline, &s.Timezone, &status,
		&kind, &interval, &anchor, &at, &scheduleZone,
		&weekdays, &dayOfMonth, &nth, &wd,
		&s.DecisionNeededAt, &s.GraceExpiresAt, &s.CompletedAt, &s.FailedAt, &s.CancelledAt, &s.DeletedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return s, err
	}

	schedule := scheduleRow{
		Kind:       kind,
		Interval:   int(interval),
		Time:       at,
		Timezone:   scheduleZone,
		Weekdays:   int(weekdays),
		DayOfMonth: int(dayOfMonth),
		Nth:        int(nth),
		Weekday:    int(wd),
	}
	anchorDate := recurrence.Date{Year: anchor.Year(), Month: anchor.Month(), Day: anchor.Day()}
	if s.Schedule, err = schedule.pattern(anchorDate); err != nil {
		return s, fmt.Errorf("commitment %s schedule: %w", s.ID, err)
	}
	s.Status = domain.Status(status)
	s.Deadline = s.Deadline.UTC()
	s.DecisionNeededAt = persistence.UTCPtr(s.DecisionNeededAt)
	s.GraceExpiresAt = persistence.UTCPtr(s.GraceExpiresAt)
	s.CompletedAt = persistence.UTCPtr(s.CompletedAt)
	s.FailedAt = persistence.UTCPtr(s.FailedAt)
	s.CancelledAt = persistence.UTCPtr(s.CancelledAt)
	s.DeletedAt = persistence.UTCPtr(s.DeletedAt)
	return s, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
