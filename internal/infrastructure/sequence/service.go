// Package sequence provides the PostgreSQL implementation of SRPL identifier
// generation. This is the infrastructure layer - it implements the
// core/sequence.Generator interface.
//
// Correctness under concurrent multi-instance deployment comes entirely from
// the store: a serializable transaction plus a SELECT ... FOR UPDATE row lock
// on the (module, epoch) counter. The service holds no counter state in
// memory and never retries internally - a failed attempt surfaces a retryable
// error and the caller owns the retry, without reusing any previously
// returned identifier.
package sequence

import (
	"context"
	"fmt"
	"time"

	"srplerp/internal/core/apperror"
	coreseq "srplerp/internal/core/sequence"
	"srplerp/internal/infrastructure/storage/postgres"
	"srplerp/pkg/logger"
)

// TxRunner abstracts the two transaction shapes the generator needs.
// The production implementation wraps postgres.TxManager.
type TxRunner interface {
	// Serializable runs fn in a serializable read-write transaction with
	// statement and lock timeouts applied.
	Serializable(ctx context.Context, fn func(ctx context.Context) error) error

	// ReadOnly runs fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// ConfigStore is the per-module configuration access the generator needs.
type ConfigStore interface {
	Get(ctx context.Context, module coreseq.ModuleCode) (*coreseq.Config, error)
	Create(ctx context.Context, cfg coreseq.Config) error
	GetOrCreate(ctx context.Context, module coreseq.ModuleCode) (*coreseq.Config, error)
}

// CounterStore is the counter-row access the generator needs.
// GetForUpdate/Create/Increment must be called inside a locking transaction.
type CounterStore interface {
	GetForUpdate(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch) (*coreseq.Counter, error)
	Get(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch) (*coreseq.Counter, error)
	Create(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch, value int64) error
	Increment(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch) (int64, error)
	EnsureBase(ctx context.Context, module coreseq.ModuleCode) error
}

// IssuanceLog receives audit entries for successfully issued identifiers.
// *postgres.AuditService satisfies this.
type IssuanceLog interface {
	Log(ctx context.Context, entry postgres.AuditEntry) error
}

// Service generates SRPL identifiers against PostgreSQL.
type Service struct {
	runner   TxRunner
	configs  ConfigStore
	counters CounterStore

	// audit is optional; issuance audit is best-effort and happens after the
	// issuing transaction commits, so an audit failure never un-issues a number.
	audit IssuanceLog
}

// Ensure compile-time interface compliance.
var _ coreseq.Generator = (*Service)(nil)

// NewService creates a new sequence generation service.
// audit may be nil to disable the issuance trail.
func NewService(runner TxRunner, configs ConfigStore, counters CounterStore, audit IssuanceLog) *Service {
	return &Service{
		runner:   runner,
		configs:  configs,
		counters: counters,
		audit:    audit,
	}
}

// validateHints rejects epoch hints that would embed junk into an issued
// identifier. Hints reach this service from the unauthenticated HTTP surface,
// so shape checks belong here and not only in the DTO binding.
func validateHints(hints *coreseq.Hints) error {
	if hints == nil {
		return nil
	}
	if hints.FinancialYear != nil && !coreseq.IsFinancialYearLabel(*hints.FinancialYear) {
		return apperror.NewValidation("financial year hint must have the FY<YY> shape").
			WithDetail("financialYear", *hints.FinancialYear)
	}
	if hints.Year != nil && (*hints.Year < 1900 || *hints.Year > 9999) {
		return apperror.NewValidation("year hint must be a four-digit year").
			WithDetail("year", *hints.Year)
	}
	return nil
}

// GenerateID implements core/sequence.Generator.
func (s *Service) GenerateID(ctx context.Context, module coreseq.ModuleCode, hints *coreseq.Hints) (string, error) {
	if !module.IsValid() {
		return "", apperror.NewConfiguration("unknown module code").WithDetail("module", string(module))
	}
	if err := validateHints(hints); err != nil {
		return "", err
	}

	var (
		issued string
		epoch  coreseq.Epoch
		value  int64
	)

	err := s.runner.Serializable(ctx, func(ctx context.Context) error {
		cfg, err := s.configs.GetOrCreate(ctx, module)
		if err != nil {
			return err
		}

		epoch = coreseq.ResolveEpoch(*cfg, hints, time.Now())

		counter, err := s.counters.GetForUpdate(ctx, module, epoch)
		if err != nil {
			return err
		}

		if counter == nil {
			// First issuance for this (module, epoch) key.
			value = 1
			if err := s.counters.Create(ctx, module, epoch, value); err != nil {
				return err
			}
		} else {
			value, err = s.counters.Increment(ctx, module, epoch)
			if err != nil {
				return err
			}
		}

		issued = coreseq.FormatID(module, epoch, value, cfg.EffectivePadding())
		return nil
	})
	if err != nil {
		return "", s.translateError(module, err)
	}

	s.recordIssuance(ctx, module, epoch, issued, value)
	return issued, nil
}

// PreviewNextID implements core/sequence.Generator.
// Advisory only: reads without locking, so a concurrent issuance can claim
// the previewed number before the caller does.
func (s *Service) PreviewNextID(ctx context.Context, module coreseq.ModuleCode, hints *coreseq.Hints) (string, error) {
	if !module.IsValid() {
		return "", apperror.NewConfiguration("unknown module code").WithDetail("module", string(module))
	}
	if err := validateHints(hints); err != nil {
		return "", err
	}

	var preview string

	err := s.runner.ReadOnly(ctx, func(ctx context.Context) error {
		cfg, err := s.configs.Get(ctx, module)
		if err != nil {
			return err
		}
		if cfg == nil {
			// Read-only transaction: use defaults without persisting them.
			synthesized := coreseq.DefaultConfig(module)
			cfg = &synthesized
		}

		epoch := coreseq.ResolveEpoch(*cfg, hints, time.Now())

		counter, err := s.counters.Get(ctx, module, epoch)
		if err != nil {
			return err
		}

		next := int64(1)
		if counter != nil {
			next = counter.CurrentValue + 1
		}

		preview = coreseq.FormatID(module, epoch, next, cfg.EffectivePadding())
		return nil
	})
	if err != nil {
		return "", s.translateError(module, err)
	}
	return preview, nil
}

// InitializeCounters implements core/sequence.Generator.
// Idempotent bulk setup: every listed module ends up with exactly one default
// config row and one base no-epoch counter at 0, regardless of how many times
// this runs.
func (s *Service) InitializeCounters(ctx context.Context, modules []coreseq.ModuleCode) error {
	for _, module := range modules {
		if !module.IsValid() {
			return apperror.NewConfiguration("unknown module code").WithDetail("module", string(module))
		}
	}

	return s.runner.Serializable(ctx, func(ctx context.Context) error {
		for _, module := range modules {
			if err := s.configs.Create(ctx, coreseq.DefaultConfig(module)); err != nil {
				return fmt.Errorf("initialize config %s: %w", module, err)
			}
			if err := s.counters.EnsureBase(ctx, module); err != nil {
				return fmt.Errorf("initialize counter %s: %w", module, err)
			}
		}
		return nil
	})
}

// translateError maps store failures to the service's error kinds.
func (s *Service) translateError(module coreseq.ModuleCode, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	switch {
	case postgres.IsSerializationFailure(err), postgres.IsUniqueViolation(err):
		// A unique violation here means a concurrent transaction created the
		// same counter row first; losing that race is retryable contention,
		// not a data error.
		return apperror.NewSequenceConflict(string(module)).WithCause(err)
	case postgres.IsLockTimeout(err), postgres.IsContextTimeout(err):
		return apperror.NewTimeout("sequence allocation timed out").
			WithDetail("module", string(module)).
			WithCause(err)
	default:
		return apperror.NewDatabase(err)
	}
}

// recordIssuance appends the audit entry after commit, best-effort.
func (s *Service) recordIssuance(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch, issued string, value int64) {
	if s.audit == nil {
		return
	}
	entry := postgres.AuditEntry{
		ModuleCode:    module,
		IssuedID:      issued,
		SequenceValue: value,
		Year:          epoch.Year,
		FinancialYear: epoch.FinancialYear,
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		logger.Warn(ctx, "issuance audit write failed",
			"module", module,
			"issued_id", issued,
			"error", err,
		)
	}
}

// --- production TxRunner ---

type pgTxRunner struct {
	txManager *postgres.TxManager
}

// NewTxRunner wraps a postgres.TxManager as the generator's TxRunner.
func NewTxRunner(txManager *postgres.TxManager) TxRunner {
	return &pgTxRunner{txManager: txManager}
}

func (r *pgTxRunner) Serializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.RunInTransactionWithOptions(ctx, postgres.SerializableTxOptions(), fn)
}

func (r *pgTxRunner) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ReadOnly(ctx, fn)
}
