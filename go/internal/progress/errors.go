package progress

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mcdev12/playoffs/go/internal/models"
)

// Postgres error codes that mean another transaction got there first.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// isWriteConflict reports whether err is a Postgres concurrency failure.
func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
	}
	return false
}

func isInvalid(err error) bool  { return errors.Is(err, models.ErrInvalidAction) }
func isConflict(err error) bool { return errors.Is(err, models.ErrWriteConflict) }
func isNotFound(err error) bool { return errors.Is(err, models.ErrNotFound) }
