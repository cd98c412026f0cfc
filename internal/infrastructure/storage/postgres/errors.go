package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes relevant to locking transactions.
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateUniqueViolation      = "23505"
	sqlstateLockNotAvailable     = "55P03"
	sqlstateQueryCanceled        = "57014" // statement_timeout / lock_timeout fire this
)

// IsSerializationFailure reports whether err is a serialization failure or
// deadlock - the transaction can be retried as a whole.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateSerializationFailure || pgErr.Code == sqlstateDeadlockDetected
	}
	return false
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
// When two transactions race to create the same new counter row, the loser
// gets 23505 from ux_sequence_counters_key rather than a serialization
// failure: unique enforcement fires before the serializability check.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateUniqueViolation
	}
	return false
}

// IsLockTimeout reports whether err came from lock_timeout, statement_timeout
// or NOWAIT lock acquisition.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateLockNotAvailable || pgErr.Code == sqlstateQueryCanceled
	}
	return false
}

// IsContextTimeout reports whether err is a context deadline or cancellation.
func IsContextTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
