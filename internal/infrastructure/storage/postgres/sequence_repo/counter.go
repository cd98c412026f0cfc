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

const counterTable = "sequence_counters"

var counterCols = []string{
	"module_code", "year", "financial_year", "current_value", "last_reset_at",
}

// counterConflictTarget matches ux_sequence_counters_key, which treats NULL
// epoch columns as a concrete value so one row per key is enforceable.
const counterConflictTarget = "(module_code, COALESCE(year, 0), COALESCE(financial_year, ''))"

// CounterRepo persists the durable per-(module, epoch) counters.
// All mutation paths expect to run inside the caller's locking transaction.
type CounterRepo struct {
	txManager *postgres.TxManager
}

// NewCounterRepo creates a new counter repository.
func NewCounterRepo(txManager *postgres.TxManager) *CounterRepo {
	return &CounterRepo{txManager: txManager}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *CounterRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// keyPredicate matches the counter row for exactly this (module, epoch) key.
// squirrel renders nil values as IS NULL, which is the intended match.
func keyPredicate(module sequence.ModuleCode, epoch sequence.Epoch) squirrel.Eq {
	pred := squirrel.Eq{"module_code": module}
	if epoch.Year != nil {
		pred["year"] = *epoch.Year
	} else {
		pred["year"] = nil
	}
	if epoch.FinancialYear != nil {
		pred["financial_year"] = *epoch.FinancialYear
	} else {
		pred["financial_year"] = nil
	}
	return pred
}

// GetForUpdate loads the counter row under a row lock.
// Blocks (up to lock_timeout) while another transaction holds the row.
// Returns (nil, nil) when no row exists for the key yet.
func (r *CounterRepo) GetForUpdate(ctx context.Context, module sequence.ModuleCode, epoch sequence.Epoch) (*sequence.Counter, error) {
	q := r.Builder().
		Select(counterCols...).
		From(counterTable).
		Where(keyPredicate(module, epoch)).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counter select for update: %w", err)
	}

	var counter sequence.Counter
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &counter, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock counter %s: %w", module, err)
	}
	return &counter, nil
}

// Get loads the counter row without locking (preview only).
func (r *CounterRepo) Get(ctx context.Context, module sequence.ModuleCode, epoch sequence.Epoch) (*sequence.Counter, error) {
	q := r.Builder().
		Select(counterCols...).
		From(counterTable).
		Where(keyPredicate(module, epoch))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counter select: %w", err)
	}

	var counter sequence.Counter
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &counter, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select counter %s: %w", module, err)
	}
	return &counter, nil
}

// Create inserts a counter row with the given starting value.
// Serializable isolation turns a concurrent create of the same key into a
// serialization failure rather than a duplicate.
func (r *CounterRepo) Create(ctx context.Context, module sequence.ModuleCode, epoch sequence.Epoch, value int64) error {
	q := r.Builder().
		Insert(counterTable).
		Columns(counterCols...).
		Values(module, epoch.Year, epoch.FinancialYear, value, time.Now().UTC())

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build counter insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert counter %s: %w", module, err)
	}
	return nil
}

// Increment advances the locked counter row by one and returns the new value.
// Must only be called while the caller holds the row lock from GetForUpdate.
func (r *CounterRepo) Increment(ctx context.Context, module sequence.ModuleCode, epoch sequence.Epoch) (int64, error) {
	q := r.Builder().
		Update(counterTable).
		Set("current_value", squirrel.Expr("current_value + 1")).
		Where(keyPredicate(module, epoch)).
		Suffix("RETURNING current_value")

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build counter increment: %w", err)
	}

	var value int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", module, err)
	}
	return value, nil
}

// EnsureBase creates the no-epoch counter at 0 if absent. Idempotent.
func (r *CounterRepo) EnsureBase(ctx context.Context, module sequence.ModuleCode) error {
	q := r.Builder().
		Insert(counterTable).
		Columns(counterCols...).
		Values(module, nil, nil, 0, time.Now().UTC()).
		Suffix("ON CONFLICT " + counterConflictTarget + " DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build counter ensure: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("ensure base counter %s: %w", module, err)
	}
	return nil
}
