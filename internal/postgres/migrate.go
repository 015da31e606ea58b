package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		id             UUID PRIMARY KEY,
		pin            INTEGER NOT NULL,
		city           TEXT NOT NULL,
		slot_numbers   TEXT[] NOT NULL,
		vehicle_number TEXT NOT NULL,
		name           TEXT NOT NULL DEFAULT '',
		date           TEXT NOT NULL DEFAULT '',
		entry_time     TEXT NOT NULL DEFAULT '',
		exit_time      TEXT NOT NULL DEFAULT '',
		total_amount   NUMERIC(12, 2) NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_pin ON tickets (pin)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id          UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		payload     JSONB NOT NULL,
		cookie      TEXT,
		status      TEXT NOT NULL DEFAULT 'pending',
		attempts    INTEGER NOT NULL DEFAULT 0,
		last_error  TEXT,
		next_run_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		done_at     TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_due
		ON outbox (next_run_at) WHERE status = 'pending'`,
}

// Migrate creates the ticket ledger and outbox tables if they are missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const op = "postgres.Migrate"

	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: statement %d: %w", op, i, err)
		}
	}

	return nil
}
