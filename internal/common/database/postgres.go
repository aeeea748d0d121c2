// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notify-engine/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient owns the connection pool behind the notification stores.
// Store operations hold a connection only for single guarded statements or
// short transactions (version appends, status CAS), so the pool stays small.
type PostgresClient struct {
	db *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	// Recycle connections ahead of typical load-balancer idle cutoffs.
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{db: db}, nil
}

// Ping verifies the connection; the readiness endpoint calls this per probe.
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB exposes the pool for store construction.
func (c *PostgresClient) DB() *sql.DB {
	return c.db
}
