package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id              TEXT PRIMARY KEY,
		host_id         TEXT NOT NULL,
		title           TEXT NOT NULL DEFAULT '',
		city            TEXT NOT NULL DEFAULT '',
		price_per_night NUMERIC(12,2) NOT NULL,
		available       BOOLEAN NOT NULL DEFAULT TRUE,
		lat             DOUBLE PRECISION,
		lon             DOUBLE PRECISION,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS listings_lat_lon_idx ON listings (lat, lon)`,
	`CREATE TABLE IF NOT EXISTS calendar_entries (
		listing_id     TEXT NOT NULL,
		day            DATE NOT NULL,
		is_available   BOOLEAN NOT NULL,
		price_override NUMERIC(12,2),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (listing_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		aggregate       TEXT NOT NULL,
		payload         BYTEA NOT NULL,
		headers         JSONB NOT NULL DEFAULT '{}',
		occurred_at     TIMESTAMPTZ NOT NULL,
		state           TEXT NOT NULL,
		attempts        INT NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMPTZ NOT NULL,
		claimed_by      TEXT,
		claimed_at      TIMESTAMPTZ,
		sent_at         TIMESTAMPTZ,
		last_error      TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_due_idx ON outbox_events (state, next_attempt_at)`,
	`CREATE TABLE IF NOT EXISTS app_idempotency (
		key          TEXT PRIMARY KEY,
		request_hash TEXT NOT NULL DEFAULT '',
		payload      BYTEA NOT NULL,
		occurred_at  TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE app_idempotency ADD COLUMN IF NOT EXISTS request_hash TEXT NOT NULL DEFAULT ''`,
}

// Migrate creates the tables the adapters need. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
