// Package testdb opens migrated in-memory databases for package tests.
package testdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jurzon/backy/internal/shared/infrastructure/database/sqlite"
	"github.com/jurzon/backy/internal/shared/infrastructure/migrations"
	"github.com/stretchr/testify/require"
)

// SQLite returns an in-memory database with every migration applied.
// It is closed when the test ends.
func SQLite(t testing.TB) *sql.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := sqlite.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = migrations.RunSQLite(ctx, conn.DB())
	require.NoError(t, err)
	return conn.DB()
}
