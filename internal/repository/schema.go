package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema holds the DDL for the access-control and catalog tables.
// usage_log is indexed on (key_id, ts) because every admission decision
// counts rows per key across three time windows.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		key_hash TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_used_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_key_hash ON api_keys(key_hash)`,
	`CREATE TABLE IF NOT EXISTS usage_log (
		id BIGSERIAL PRIMARY KEY,
		key_id BIGINT NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
		endpoint TEXT NOT NULL DEFAULT '',
		ts TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_log_key_ts ON usage_log(key_id, ts)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS foods (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		serving TEXT,
		weight_g DOUBLE PRECISION,
		calories_kcal DOUBLE PRECISION,
		reference TEXT,
		category_id BIGINT REFERENCES categories(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_foods_name ON foods(name)`,
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}
