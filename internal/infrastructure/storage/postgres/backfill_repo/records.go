// Package backfill_repo provides the PostgreSQL record source for the
// backfill migration. Table and column names come from vetted Target
// definitions in cmd/backfill, never from user input.
package backfill_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"srplerp/internal/domain/backfill"
	"srplerp/internal/infrastructure/storage/postgres"
)

// RecordRepo implements backfill.RecordSource.
type RecordRepo struct {
	txManager *postgres.TxManager
}

// NewRecordRepo creates a new record repository.
func NewRecordRepo(txManager *postgres.TxManager) *RecordRepo {
	return &RecordRepo{txManager: txManager}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *RecordRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// ListMissing implements backfill.RecordSource.
// Keyset pagination on (created_at, id) keeps the scan stable while earlier
// pages are being updated.
func (r *RecordRepo) ListMissing(ctx context.Context, target backfill.Target, after *backfill.Cursor, limit int) ([]backfill.Record, error) {
	q := r.Builder().
		Select("id", "created_at").
		From(target.Table).
		Where(squirrel.Or{
			squirrel.Eq{target.IDColumn: nil},
			squirrel.Eq{target.IDColumn: ""},
		}).
		OrderBy("created_at", "id").
		Limit(uint64(limit))

	if after != nil {
		q = q.Where(squirrel.Expr("(created_at, id) > (?, ?)", after.CreatedAt, after.ID))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build missing-id select: %w", err)
	}

	var records []backfill.Record
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s rows missing identifier: %w", target.Table, err)
	}
	return records, nil
}

// SetIdentifier implements backfill.RecordSource.
func (r *RecordRepo) SetIdentifier(ctx context.Context, target backfill.Target, recordID, srplID string) error {
	q := r.Builder().
		Update(target.Table).
		Set(target.IDColumn, srplID).
		Where(squirrel.Eq{"id": recordID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build identifier update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s.%s: %w", target.Table, target.IDColumn, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s not found in %s", recordID, target.Table)
	}
	return nil
}

// Ensure compile-time interface compliance.
var _ backfill.RecordSource = (*RecordRepo)(nil)
