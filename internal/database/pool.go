package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/livenotify/internal/config"
)

// Schema creates the notification history table.
const Schema = `
CREATE TABLE IF NOT EXISTS notification_history (
	id          UUID PRIMARY KEY,
	topic       TEXT        NOT NULL,
	action      TEXT        NOT NULL,
	severity    TEXT        NOT NULL,
	title       TEXT        NOT NULL,
	body        TEXT        NOT NULL,
	server_ts   TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL,
	instance_id TEXT        NOT NULL
);
CREATE INDEX IF NOT EXISTS notification_history_topic_created_idx
	ON notification_history (topic, created_at DESC);
`

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the history table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
