package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jurzon/backy/internal/shared/infrastructure/database"
)

func init() {
	database.Register(database.DriverPostgres, func(ctx context.Context, cfg database.Config) (database.Connection, error) {
		return Open(ctx, cfg.URL, cfg.MaxConns)
	})
}

// Connection is a pgx connection pool.
type Connection struct {
	pool *pgxpool.Pool
}

// Open creates a pool for url. maxConns of 0 keeps the pgx default.
func Open(ctx context.Context, url string, maxConns int) (*Connection, error) {
	if url == "" {
		return nil, errors.New("postgres requires DATABASE_URL")
	}
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &Connection{pool: pool}, nil
}

// Pool returns the underlying pool.
func (c *Connection) Pool() *pgxpool.Pool {
	return c.pool
}

func (c *Connection) Driver() database.Driver {
	return database.DriverPostgres
}

// Close releases every pooled connection.
func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}
