package persistence

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/payments/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

const paymentIntentColumns = `id, commitment_id, user_id, amount_minor, currency, status,
	attempt_count, last_error, created_at, updated_at`

// SQLitePaymentIntentRepository implements domain.Repository using SQLite.
type SQLitePaymentIntentRepository struct {
	db *sql.DB
}

// NewSQLitePaymentIntentRepository creates a new SQLite payment intent repository.
func NewSQLitePaymentIntentRepository(db *sql.DB) *SQLitePaymentIntentRepository {
	return &SQLitePaymentIntentRepository{db: db}
}

func (r *SQLitePaymentIntentRepository) Record(ctx context.Context, p *domain.PaymentIntentLog) (bool, error) {
	res, err := persistence.SQLiteExec(ctx, r.db).ExecContext(ctx, `
		INSERT INTO payment_intents (`+paymentIntentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (commitment_id) DO NOTHING`,
		p.ID().String(), p.CommitmentID().String(), p.UserID().String(),
		p.AmountMinor(), p.Currency(), string(p.Status()),
		p.AttemptCount(), p.LastError(),
		persistence.FormatTime(p.CreatedAt()), persistence.FormatTime(p.UpdatedAt()),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLitePaymentIntentRepository) FindByCommitment(ctx context.Context, commitmentID uuid.UUID) (*domain.PaymentIntentLog, error) {
	rows, err := persistence.SQLiteExec(ctx, r.db).QueryContext(ctx,
		`SELECT `+paymentIntentColumns+` FROM payment_intents WHERE commitment_id = ?`, commitmentID.String())
	if err != nil {
		return nil, err
	}
	found, err := scanSQLitePaymentIntents(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrPaymentIntentNotFound
	}
	return found[0], nil
}

func (r *SQLitePaymentIntentRepository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.PaymentIntentLog, error) {
	rows, err := persistence.SQLiteExec(ctx, r.db).QueryContext(ctx, `
		SELECT `+paymentIntentColumns+` FROM payment_intents
		WHERE status = ? ORDER BY created_at, id LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return scanSQLitePaymentIntents(rows)
}

func scanSQLitePaymentIntents(rows *sql.Rows) ([]*domain.PaymentIntentLog, error) {
	defer rows.Close()

	var out []*domain.PaymentIntentLog
	for rows.Next() {
		var (
			s                                domain.PaymentIntentSnapshot
			id, commitmentID, userID, status string
			createdAt, updatedAt             string
		)
		if err := rows.Scan(&id, &commitmentID, &userID, &s.AmountMinor, &s.Currency, &status,
			&s.AttemptCount, &s.LastError, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		var err error
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if s.CommitmentID, err = uuid.Parse(commitmentID); err != nil {
			return nil, err
		}
		if s.UserID, err = uuid.Parse(userID); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = persistence.ParseTime(createdAt); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = persistence.ParseTime(updatedAt); err != nil {
			return nil, err
		}
		s.Status = domain.Status(status)
		out = append(out, domain.RehydratePaymentIntentLog(s))
	}
	return out, rows.Err()
}
