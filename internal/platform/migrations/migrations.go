// Package migrations applies the bridge's database schema. Statements are
// ordered and idempotent, so Apply is safe to run at every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS relay_checkpoints (
		channel_id TEXT PRIMARY KEY,
		sequence_number BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payment_records (
		id UUID PRIMARY KEY,
		tx_hash TEXT NOT NULL UNIQUE,
		operation_id TEXT NOT NULL DEFAULT '',
		success BOOLEAN NOT NULL DEFAULT FALSE,
		result TEXT NOT NULL DEFAULT '',
		validated BOOLEAN NOT NULL DEFAULT FALSE,
		ledger_index BIGINT NOT NULL DEFAULT 0,
		fee TEXT NOT NULL DEFAULT '',
		settled_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_records_settled_at ON payment_records (settled_at)`,
	`CREATE INDEX IF NOT EXISTS idx_relay_checkpoints_updated_at ON relay_checkpoints (updated_at)`,
}

// Apply executes all schema statements in order and stops at the first
// failure.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
