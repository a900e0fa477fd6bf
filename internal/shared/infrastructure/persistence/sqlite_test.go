package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE notes (body TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func countNotes(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&n))
	return n
}

func TestSQLiteUnitOfWork_Commit(t *testing.T) {
	db := openMemoryDB(t)
	uow := NewSQLiteUnitOfWork(db)
	ctx := context.Background()

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)

	_, err = SQLiteExec(txCtx, db).ExecContext(txCtx, `INSERT INTO notes (body) VALUES ('a')`)
	require.NoError(t, err)
	require.NoError(t, uow.Commit(txCtx))

	assert.Equal(t, 1, countNotes(t, db))
}

func TestSQLiteUnitOfWork_Rollback(t *testing.T) {
	db := openMemoryDB(t)
	uow := NewSQLiteUnitOfWork(db)
	ctx := context.Background()

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)

	_, err = SQLiteExec(txCtx, db).ExecContext(txCtx, `INSERT INTO notes (body) VALUES ('a')`)
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(txCtx))

	assert.Equal(t, 0, countNotes(t, db))
}

func TestSQLiteUnitOfWork_NestedJoinsOuter(t *testing.T) {
	db := openMemoryDB(t)
	uow := NewSQLiteUnitOfWork(db)

	outerCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)
	innerCtx, err := uow.Begin(outerCtx)
	require.NoError(t, err)

	outer, _ := SQLiteTxFromContext(outerCtx)
	inner, _ := SQLiteTxFromContext(innerCtx)
	assert.Same(t, outer.Tx, inner.Tx)
	assert.True(t, outer.Owned)
	assert.False(t, inner.Owned)

	_, err = SQLiteExec(innerCtx, db).ExecContext(innerCtx, `INSERT INTO notes (body) VALUES ('nested')`)
	require.NoError(t, err)

	// Inner commit is a no-op, outer rollback discards everything.
	require.NoError(t, uow.Commit(innerCtx))
	require.NoError(t, uow.Rollback(outerCtx))
	assert.Equal(t, 0, countNotes(t, db))
}

func TestSQLiteUnitOfWork_WithoutBegin(t *testing.T) {
	uow := NewSQLiteUnitOfWork(openMemoryDB(t))

	assert.True(t, errors.Is(uow.Commit(context.Background()), ErrNoTransaction))
	assert.True(t, errors.Is(uow.Rollback(context.Background()), ErrNoTransaction))
}

func TestSQLiteExec_OutsideTransaction(t *testing.T) {
	db := openMemoryDB(t)

	assert.Same(t, db, SQLiteExec(context.Background(), db))
}

func TestPgTxFromContext(t *testing.T) {
	_, ok := PgTxFromContext(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), pgTxKey{}, PgTx{})
	_, ok = PgTxFromContext(ctx)
	assert.False(t, ok, "nil transaction is ignored")
}

func TestPostgresUnitOfWork_WithoutBegin(t *testing.T) {
	uow := NewPostgresUnitOfWork(nil)

	assert.ErrorIs(t, uow.Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, uow.Rollback(context.Background()), ErrNoTransaction)
}
