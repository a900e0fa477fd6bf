package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jurzon/backy/internal/payments/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

// PostgresPaymentIntentRepository implements domain.Repository using PostgreSQL.
type PostgresPaymentIntentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentIntentRepository creates a new PostgreSQL payment intent repository.
func NewPostgresPaymentIntentRepository(pool *pgxpool.Pool) *PostgresPaymentIntentRepository {
	return &PostgresPaymentIntentRepository{pool: pool}
}

func (r *PostgresPaymentIntentRepository) Record(ctx context.Context, p *domain.PaymentIntentLog) (bool, error) {
	tag, err := persistence.PgExec(ctx, r.pool).Exec(ctx, `
		INSERT INTO payment_intents (`+paymentIntentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (commitment_id) DO NOTHING`,
		p.ID(), p.CommitmentID(), p.UserID(), p.AmountMinor(), p.Currency(), string(p.Status()),
		p.AttemptCount(), p.LastError(), p.CreatedAt(), p.UpdatedAt(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresPaymentIntentRepository) FindByCommitment(ctx context.Context, commitmentID uuid.UUID) (*domain.PaymentIntentLog, error) {
	rows, err := persistence.PgExec(ctx, r.pool).Query(ctx,
		`SELECT `+paymentIntentColumns+` FROM payment_intents WHERE commitment_id = $1`, commitmentID)
	if err != nil {
		return nil, err
	}
	found, err := pgx.CollectRows(rows, scanPostgresPaymentIntent)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrPaymentIntentNotFound
	}
	return found[0], nil
}

func (r *PostgresPaymentIntentRepository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.PaymentIntentLog, error) {
	rows, err := persistence.PgExec(ctx, r.pool).Query(ctx, `
		SELECT `+paymentIntentColumns+` FROM payment_intents
		WHERE status = $1 ORDER BY created_at, id LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanPostgresPaymentIntent)
}

func scanPostgresPaymentIntent(row pgx.CollectableRow) (*domain.PaymentIntentLog, error) {
	var (
		s      domain.PaymentIntentSnapshot
		status string
	)
	if err := row.Scan(&s.ID, &s.CommitmentID, &s.UserID, &s.AmountMinor, &s.Currency, &status,
		&s.AttemptCount, &s.LastError, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = domain.Status(status)
	return domain.RehydratePaymentIntentLog(s), nil
}
