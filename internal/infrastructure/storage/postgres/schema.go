package postgres

import (
	"context"
	"fmt"
)

// schemaStatements creates the tables backing sequence issuance.
//
// sequence_counters keys on (module_code, year, financial_year) with NULLs
// standing in for "no epoch". The COALESCE-based unique index makes the
// one-row-per-key invariant hold even though NULLs never compare equal.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sequence_configs (
		module_code          TEXT PRIMARY KEY,
		use_year_prefix      BOOLEAN NOT NULL DEFAULT FALSE,
		use_financial_year   BOOLEAN NOT NULL DEFAULT FALSE,
		financial_year_start INT NOT NULL DEFAULT 4 CHECK (financial_year_start BETWEEN 1 AND 12),
		padding              INT NOT NULL DEFAULT 6 CHECK (padding > 0),
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS sequence_counters (
		module_code    TEXT NOT NULL REFERENCES sequence_configs(module_code),
		year           INT,
		financial_year TEXT,
		current_value  BIGINT NOT NULL DEFAULT 0 CHECK (current_value >= 0),
		last_reset_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS ux_sequence_counters_key
		ON sequence_counters (module_code, COALESCE(year, 0), COALESCE(financial_year, ''))`,

	`CREATE TABLE IF NOT EXISTS sequence_audit (
		id                 UUID PRIMARY KEY,
		module_code        TEXT NOT NULL,
		issued_id          TEXT NOT NULL,
		sequence_value     BIGINT NOT NULL,
		year               INT,
		financial_year     TEXT,
		user_id            TEXT NOT NULL DEFAULT '',
		source             TEXT NOT NULL DEFAULT '',
		details            JSONB,
		details_compressed BYTEA,
		compression_algo   TEXT NOT NULL DEFAULT 'none',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS ix_sequence_audit_module_created
		ON sequence_audit (module_code, created_at)`,
}

// EnsureSchema creates the service tables if they do not exist.
// Idempotent; called from cmd bootstrap before serving.
func EnsureSchema(ctx context.Context, pool *Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
