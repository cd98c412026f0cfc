// Package backfill numbers pre-existing business records that were created
// before SRPL identifiers existed. One-time migration use.
package backfill

import (
	"context"
	"fmt"
	"time"

	"srplerp/internal/core/sequence"
	"srplerp/pkg/logger"
)

// Target names one business table to backfill.
type Target struct {
	// Module decides which sequence the records draw from.
	Module sequence.ModuleCode

	// Table is the business table holding the records.
	Table string

	// IDColumn receives the generated SRPL identifier.
	IDColumn string
}

// Record is one row lacking an identifier.
type Record struct {
	ID        string
	CreatedAt time.Time
}

// Cursor is a keyset-pagination position within a target table.
// Cursor-based paging means a record that failed in one page is never
// revisited by the same run, so one bad row cannot stall the migration.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// RecordSource lists and updates rows missing an identifier.
// The PostgreSQL implementation lives in infrastructure/storage/postgres.
type RecordSource interface {
	// ListMissing returns up to limit rows without an identifier, ordered by
	// (created_at, id) ascending, strictly after the cursor position.
	ListMissing(ctx context.Context, target Target, after *Cursor, limit int) ([]Record, error)

	// SetIdentifier writes the generated identifier onto one row.
	SetIdentifier(ctx context.Context, target Target, recordID, srplID string) error
}

// ConfigSource exposes per-module sequence configuration for epoch hints.
type ConfigSource interface {
	Get(ctx context.Context, module sequence.ModuleCode) (*sequence.Config, error)
}

// Failure describes one record the migration could not number.
type Failure struct {
	Table    string `json:"table"`
	RecordID string `json:"recordId"`
	Reason   string `json:"reason"`
}

// Report summarizes a migration run.
type Report struct {
	Processed int       `json:"processed"`
	Updated   int       `json:"updated"`
	Failures  []Failure `json:"failures,omitempty"`
}

// DefaultBatchSize pages record listing when the caller passes no size.
const DefaultBatchSize = 200

// Service runs the backfill migration.
type Service struct {
	records   RecordSource
	configs   ConfigSource
	generator sequence.Generator
}

// NewService creates a new backfill service.
func NewService(records RecordSource, configs ConfigSource, generator sequence.Generator) *Service {
	return &Service{
		records:   records,
		configs:   configs,
		generator: generator,
	}
}

// Run numbers every record missing an identifier across all targets.
// Pages are ordered by creation time to keep numbering roughly chronological.
// Individual record failures are collected and logged, never fatal: later
// records still get numbered when an earlier one in the same page failed.
func (s *Service) Run(ctx context.Context, targets []Target, batchSize int) (*Report, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	report := &Report{}

	for _, target := range targets {
		if !target.Module.IsValid() {
			return nil, fmt.Errorf("backfill target %s: unknown module code %q", target.Table, target.Module)
		}
		if err := s.runTarget(ctx, target, batchSize, report); err != nil {
			return report, err
		}
	}

	logger.Info(ctx, "backfill finished",
		"processed", report.Processed,
		"updated", report.Updated,
		"failed", len(report.Failures),
	)
	return report, nil
}

func (s *Service) runTarget(ctx context.Context, target Target, batchSize int, report *Report) error {
	cfg, err := s.configs.Get(ctx, target.Module)
	if err != nil {
		return fmt.Errorf("load config for %s: %w", target.Module, err)
	}
	if cfg == nil {
		synthesized := sequence.DefaultConfig(target.Module)
		cfg = &synthesized
	}

	var cursor *Cursor
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := s.records.ListMissing(ctx, target, cursor, batchSize)
		if err != nil {
			return fmt.Errorf("list %s records: %w", target.Table, err)
		}
		if len(records) == 0 {
			return nil
		}

		for _, record := range records {
			report.Processed++
			if err := s.numberRecord(ctx, target, *cfg, record); err != nil {
				report.Failures = append(report.Failures, Failure{
					Table:    target.Table,
					RecordID: record.ID,
					Reason:   err.Error(),
				})
				logger.Warn(ctx, "backfill record failed",
					"table", target.Table,
					"record_id", record.ID,
					"error", err,
				)
				continue
			}
			report.Updated++
		}

		last := records[len(records)-1]
		cursor = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}

// numberRecord issues an identifier under the record's original period and
// writes it back.
func (s *Service) numberRecord(ctx context.Context, target Target, cfg sequence.Config, record Record) error {
	srplID, err := s.generator.GenerateID(ctx, target.Module, historicalHints(cfg, record.CreatedAt))
	if err != nil {
		return fmt.Errorf("generate id: %w", err)
	}
	if err := s.records.SetIdentifier(ctx, target, record.ID, srplID); err != nil {
		return fmt.Errorf("write id %s: %w", srplID, err)
	}
	return nil
}

// historicalHints attributes a historical record to the epoch it was created
// in, so a year-prefixed module numbers 2023 records under 2023.
func historicalHints(cfg sequence.Config, createdAt time.Time) *sequence.Hints {
	switch cfg.EpochMode() {
	case sequence.EpochFinancialYear:
		label := sequence.FinancialYearLabel(createdAt, cfg.FinancialYearStart)
		return &sequence.Hints{FinancialYear: &label}
	case sequence.EpochCalendarYear:
		year := createdAt.Year()
		return &sequence.Hints{Year: &year}
	default:
		return nil
	}
}
