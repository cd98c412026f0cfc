// Package sequence_repo provides PostgreSQL repositories for sequence
// configuration and counter rows. Both repos run on the querier supplied by
// the transaction manager, so they participate in whatever transaction the
// caller opened.
package sequence_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"srplerp/internal/core/sequence"
	"srplerp/internal/infrastructure/storage/postgres"
)

const configTable = "sequence_configs"

var configCols = []string{
	"module_code", "use_year_prefix", "use_financial_year",
	"financial_year_start", "padding", "created_at", "updated_at",
}

// ConfigRepo persists per-module formatting configuration.
type ConfigRepo struct {
	txManager *postgres.TxManager
}

// NewConfigRepo creates a new config repository.
func NewConfigRepo(txManager *postgres.TxManager) *ConfigRepo {
	return &ConfigRepo{txManager: txManager}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *ConfigRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Get loads the configuration for a module.
// Returns (nil, nil) when no row exists; the caller decides whether to
// synthesize defaults.
func (r *ConfigRepo) Get(ctx context.Context, module sequence.ModuleCode) (*sequence.Config, error) {
	q := r.Builder().
		Select(configCols...).
		From(configTable).
		Where(squirrel.Eq{"module_code": module})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build config select: %w", err)
	}

	var cfg sequence.Config
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &cfg, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select config %s: %w", module, err)
	}
	return &cfg, nil
}

// Create inserts a configuration row, ignoring a concurrent insert of the
// same module. The stored row wins: callers re-read after a conflict.
func (r *ConfigRepo) Create(ctx context.Context, cfg sequence.Config) error {
	now := time.Now().UTC()
	q := r.Builder().
		Insert(configTable).
		Columns(configCols...).
		Values(
			cfg.ModuleCode, cfg.UseYearPrefix, cfg.UseFinancialYear,
			cfg.FinancialYearStart, cfg.Padding, now, now,
		).
		Suffix("ON CONFLICT (module_code) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build config insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert config %s: %w", cfg.ModuleCode, err)
	}
	return nil
}

// GetOrCreate loads the module's configuration, lazily creating it with
// defaults on first use.
func (r *ConfigRepo) GetOrCreate(ctx context.Context, module sequence.ModuleCode) (*sequence.Config, error) {
	cfg, err := r.Get(ctx, module)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	if err := r.Create(ctx, sequence.DefaultConfig(module)); err != nil {
		return nil, err
	}

	// Re-read: a concurrent creator may have won the insert.
	cfg, err = r.Get(ctx, module)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config %s missing after create", module)
	}
	return cfg, nil
}
