package migrations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestLoad(t *testing.T) {
	for _, dialect := range []string{"sqlite", "postgres"} {
		t.Run(dialect, func(t *testing.T) {
			got, err := Load(dialect)
			require.NoError(t, err)
			require.Len(t, got, 4)
			assert.Equal(t, "0001_commitments", got[0].Version)
			assert.Equal(t, "0004_outbox", got[3].Version)
		})
	}
}

func TestRunSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	ctx := context.Background()

	applied, err := RunSQLite(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 4, applied)

	applied, err = RunSQLite(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, applied, "second run is a no-op")

	for _, table := range []string{"commitments", "check_ins", "reminder_events", "quiet_hours", "payment_intents", "outbox_messages"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}
