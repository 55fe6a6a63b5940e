package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rigrent-backend/internal/logger"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS plans (
		id              BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL,
		min_daily_yield NUMERIC NOT NULL CHECK (min_daily_yield >= 0),
		max_daily_yield NUMERIC NOT NULL CHECK (max_daily_yield >= min_daily_yield),
		duration_days   NUMERIC NOT NULL CHECK (duration_days > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS machines (
		id     BIGSERIAL PRIMARY KEY,
		serial TEXT NOT NULL UNIQUE,
		tier   TEXT NOT NULL,
		status TEXT NOT NULL,
		specs  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS machines_tier_status_idx ON machines (tier, status)`,
	`CREATE TABLE IF NOT EXISTS leases (
		id                BIGSERIAL PRIMARY KEY,
		user_id           BIGINT NOT NULL REFERENCES users (id),
		machine_id        BIGINT NOT NULL REFERENCES machines (id),
		plan_id           BIGINT NOT NULL REFERENCES plans (id),
		start_time        TIMESTAMPTZ NOT NULL,
		end_time          TIMESTAMPTZ NOT NULL,
		price_to_user     NUMERIC NOT NULL,
		gross_price       NUMERIC NOT NULL,
		status            TEXT NOT NULL,
		amount_refunded   NUMERIC,
		platform_earnings NUMERIC,
		full_term         BOOLEAN,
		closed_at         TIMESTAMPTZ,
		CHECK (end_time > start_time OR status = 'CLOSED')
	)`,
	`CREATE INDEX IF NOT EXISTS leases_user_status_idx ON leases (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS leases_status_end_idx ON leases (status, end_time)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS leases_open_machine_idx ON leases (machine_id) WHERE status = 'OPEN'`,
	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL UNIQUE REFERENCES users (id),
		balance    NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_transactions (
		id            BIGSERIAL PRIMARY KEY,
		account_id    BIGINT NOT NULL REFERENCES ledger_accounts (id),
		type          TEXT NOT NULL,
		amount        NUMERIC NOT NULL CHECK (amount > 0),
		balance_after NUMERIC NOT NULL,
		lease_id      BIGINT,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_transactions_account_idx ON ledger_transactions (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL,
		alias      TEXT NOT NULL,
		currency   TEXT NOT NULL,
		balance    NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
		id            BIGSERIAL PRIMARY KEY,
		wallet_id     BIGINT NOT NULL REFERENCES wallets (id),
		type          TEXT NOT NULL,
		crypto_amount NUMERIC NOT NULL,
		usd_amount    NUMERIC NOT NULL,
		spot_rate     NUMERIC NOT NULL,
		balance_after NUMERIC NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	logger.Info("Database schema ensured", "statements", len(schemaStatements))
	return nil
}
