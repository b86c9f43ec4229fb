package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinic-assistant/internal/config"
)

// Open connects to the configured database and verifies the connection.
// With the sqlite driver the database file is created on first run; the pool
// is capped at one connection there since sqlite allows a single writer and
// the clinic traffic is low.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	if cfg.Driver == "sqlite" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", cfg.DSN)
	}

	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		conn.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}
