package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return pool, nil
}

// Schema holds the tables used by the repositories. The calls table mirrors
// the platform call log columns; cached_name stays nullable so "no cached
// name" survives the round trip.
const Schema = `
CREATE TABLE IF NOT EXISTS calls (
	id BIGSERIAL PRIMARY KEY,
	type INTEGER NOT NULL,
	number TEXT NOT NULL DEFAULT '',
	cached_name TEXT,
	date BIGINT NOT NULL,
	duration TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_calls_date ON calls(date DESC);
CREATE TABLE IF NOT EXISTS exports (
	id TEXT PRIMARY KEY,
	object_key TEXT NOT NULL,
	status TEXT NOT NULL,
	row_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exports_status ON exports(status);`

// EnsureSchema creates the tables if needed. Having the migration in code
// keeps docker-compose bootstrapping self-contained.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
