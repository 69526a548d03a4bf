package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tick table and its symbol/time index if they do
// not exist. Mirrors migrations/001_create_ticks.sql so a fresh database
// works without a separate migration step.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schema, table string) error {
	qualified := pgx.Identifier{schema, table}.Sanitize()
	indexName := pgx.Identifier{fmt.Sprintf("idx_%s_symbol_ts", table)}.Sanitize()

	createSchema := fmt.Sprintf(
		`CREATE SCHEMA IF NOT EXISTS %s`,
		pgx.Identifier{schema}.Sanitize(),
	)

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol     TEXT NOT NULL,
			ts         TIMESTAMPTZ NOT NULL,
			bid        DOUBLE PRECISION NOT NULL,
			ask        DOUBLE PRECISION NOT NULL,
			last       DOUBLE PRECISION NOT NULL DEFAULT 0,
			volume     BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (symbol, ts)
		)`, qualified)

	createIndex := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s (symbol, ts DESC)`,
		indexName, qualified,
	)

	if _, err := pool.Exec(ctx, createSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create tick table: %w", err)
	}
	if _, err := pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("create tick index: %w", err)
	}
	return nil
}
