package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgTxKey struct{}

// PgTx is the pgx transaction carried by a context. Owned is false for
// nested units that joined an outer transaction.
type PgTx struct {
	Tx    pgx.Tx
	Owned bool
}

// WithPgTx stores a pgx transaction in the context.
func WithPgTx(ctx context.Context, tx pgx.Tx, owned bool) context.Context {
	return context.WithValue(ctx, pgTxKey{}, PgTx{Tx: tx, Owned: owned})
}

// PgTxFromContext returns the transaction set by WithPgTx.
func PgTxFromContext(ctx context.Context) (PgTx, bool) {
	info, ok := ctx.Value(pgTxKey{}).(PgTx)
	if !ok || info.Tx == nil {
		return PgTx{}, false
	}
	return info, true
}

// PgExecutor is the query surface shared by *pgxpool.Pool and pgx.Tx.
type PgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgExec picks the transaction in ctx, or the pool outside one.
func PgExec(ctx context.Context, pool *pgxpool.Pool) PgExecutor {
	if info, ok := PgTxFromContext(ctx); ok {
		return info.Tx
	}
	return pool
}

// PostgresUnitOfWork runs repository calls in one pgx transaction.
type PostgresUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewPostgresUnitOfWork creates a unit of work over the pool.
func NewPostgresUnitOfWork(pool *pgxpool.Pool) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{pool: pool}
}

// Begin opens a transaction, or joins the one already in ctx.
func (u *PostgresUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if outer, ok := PgTxFromContext(ctx); ok {
		return WithPgTx(ctx, outer.Tx, false), nil
	}
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return WithPgTx(ctx, tx, true), nil
}

// Commit commits an owned transaction. Joined units leave it to the owner.
func (u *PostgresUnitOfWork) Commit(ctx context.Context) error {
	info, ok := PgTxFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if !info.Owned {
		return nil
	}
	return info.Tx.Commit(ctx)
}

// Rollback aborts an owned transaction.
func (u *PostgresUnitOfWork) Rollback(ctx context.Context) error {
	info, ok := PgTxFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if !info.Owned {
		return nil
	}
	return info.Tx.Rollback(ctx)
}
