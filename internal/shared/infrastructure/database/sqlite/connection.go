package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jurzon/backy/internal/shared/infrastructure/database"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

func init() {
	database.Register(database.DriverSQLite, func(ctx context.Context, cfg database.Config) (database.Connection, error) {
		return Open(ctx, cfg.SQLitePath)
	})
}

// Connection is a SQLite database opened through modernc.org/sqlite.
type Connection struct {
	db *sql.DB
}

// Open opens the database file at path, creating its directory. An empty
// path uses database.DefaultSQLitePath.
func Open(ctx context.Context, path string) (*Connection, error) {
	if path == "" {
		path = database.DefaultSQLitePath()
	}
	path = database.ExpandHome(path)

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; this also keeps an in-memory database on a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return &Connection{db: db}, nil
}

// OpenMemory opens an in-memory database, mostly for tests.
func OpenMemory(ctx context.Context) (*Connection, error) {
	return Open(ctx, MemoryPath)
}

func (c *Connection) DB() *sql.DB             { return c.db }
func (c *Connection) Driver() database.Driver { return database.DriverSQLite }
func (c *Connection) Close() error            { return c.db.Close() }

// Ping checks the database is reachable.
func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
