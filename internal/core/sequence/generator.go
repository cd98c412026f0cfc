package sequence

import "context"

// Generator issues SRPL identifiers.
// This is the domain contract - the PostgreSQL implementation lives in the
// infrastructure layer and guarantees uniqueness through row locking inside
// serializable transactions, never through in-process state.
type Generator interface {
	// GenerateID atomically reserves the next number for (module, epoch) and
	// returns the formatted identifier, e.g. SRPL-INV-FY25-000045.
	//
	// The number is consumed even if the caller's surrounding business
	// transaction later rolls back: gaps are acceptable, duplicates are not.
	// Contention surfaces as a retryable conflict error; retrying is the
	// caller's responsibility and a previously returned ID must never be
	// reused after a failed attempt.
	GenerateID(ctx context.Context, module ModuleCode, hints *Hints) (string, error)

	// PreviewNextID computes what the next identifier would be without
	// consuming a number. Advisory only: concurrent issuance can invalidate
	// the preview before the caller acts on it.
	PreviewNextID(ctx context.Context, module ModuleCode, hints *Hints) (string, error)

	// InitializeCounters ensures a default config and a base no-epoch counter
	// (value 0) exist for every listed module. Idempotent; used once at
	// deployment or migration time.
	InitializeCounters(ctx context.Context, modules []ModuleCode) error
}
