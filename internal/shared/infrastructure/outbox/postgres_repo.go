package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

const postgresInsert = `
	INSERT INTO outbox_messages (
		event_id, aggregate_type, aggregate_id, event_type, routing_key,
		payload, metadata, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`

// PostgresRepository stores the outbox in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Save(ctx context.Context, msg *Message) error {
	return r.insert(ctx, persistence.PgExec(ctx, r.pool), msg)
}

func (r *PostgresRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if info, ok := persistence.PgTxFromContext(ctx); ok {
		return r.insertAll(ctx, info.Tx, msgs)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := r.insertAll(ctx, tx, msgs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) insertAll(ctx context.Context, exec persistence.PgExecutor, msgs []*Message) error {
	for _, msg := range msgs {
		if err := r.insert(ctx, exec, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) insert(ctx context.Context, exec persistence.PgExecutor, msg *Message) error {
	var metadata []byte
	if len(msg.Metadata) > 0 {
		metadata = msg.Metadata
	}
	err := exec.QueryRow(ctx, postgresInsert,
		msg.EventID,
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.RoutingKey,
		[]byte(msg.Payload),
		metadata,
		msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert outbox message %s: %w", msg.EventID, err)
	}
	return nil
}

func (r *PostgresRepository) Pending(ctx context.Context, now time.Time, limit int) ([]*Message, error) {
	rows, err := persistence.PgExec(ctx, r.pool).Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		       payload, metadata, created_at, published_at, next_retry_at, retry_count,
		       last_error, dead_lettered_at, dead_letter_reason
		FROM outbox_messages
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= $1)
		ORDER BY id
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanPostgresMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (r *PostgresRepository) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	_, err := persistence.PgExec(ctx, r.pool).Exec(ctx,
		`UPDATE outbox_messages SET published_at = $1, last_error = NULL WHERE id = $2`, at, id)
	return err
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	_, err := persistence.PgExec(ctx, r.pool).Exec(ctx, `
		UPDATE outbox_messages
		SET retry_count = retry_count + 1, last_error = $1, next_retry_at = $2
		WHERE id = $3`, errMsg, nextRetryAt, id)
	return err
}

func (r *PostgresRepository) MarkDead(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := persistence.PgExec(ctx, r.pool).Exec(ctx, `
		UPDATE outbox_messages
		SET retry_count = retry_count + 1, last_error = $1, dead_lettered_at = $2, dead_letter_reason = $1
		WHERE id = $3`, reason, at, id)
	return err
}

func (r *PostgresRepository) DeleteOld(ctx context.Context, before time.Time) (int64, error) {
	tag, err := persistence.PgExec(ctx, r.pool).Exec(ctx,
		`DELETE FROM outbox_messages WHERE published_at IS NOT NULL AND published_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPostgresMessage(row pgx.Row) (*Message, error) {
	var (
		msg              Message
		payload, meta    []byte
		lastErr, dead    *string
		createdAt        time.Time
		published, retry *time.Time
		deadAt           *time.Time
	)
	err := row.Scan(
		&msg.ID, &msg.EventID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.RoutingKey,
		&payload, &meta, &createdAt, &published, &retry, &msg.RetryCount,
		&lastErr, &deadAt, &dead,
	)
	if err != nil {
		return nil, err
	}
	msg.Payload = payload
	msg.Metadata = meta
	msg.CreatedAt = createdAt.UTC()
	msg.PublishedAt = persistence.UTCPtr(published)
	msg.NextRetryAt = persistence.UTCPtr(retry)
	msg.DeadLetteredAt = persistence.UTCPtr(deadAt)
	msg.LastError = lastErr
	msg.DeadLetterReason = dead
	return &msg, nil
}
