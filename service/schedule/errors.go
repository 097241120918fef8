package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSlotConflict means the commit-time re-check (or the storage exclusion
// constraint) found a concurrent booking for the same worker time. Safe to
// retry after a fresh availability query.
var ErrSlotConflict = errors.New("worker time range was booked concurrently")

// ValidationError covers malformed or unknown input detected before any
// resolver or scheduler work. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// WorkerUnavailableError reports the first leg whose computed interval does
// not fit the worker's free set, so the caller can re-query availability.
type WorkerUnavailableError struct {
	LegIndex int
	WorkerID uint
	StartAt  time.Time
	EndAt    time.Time
}

func (e *WorkerUnavailableError) Error() string {
	return fmt.Sprintf("worker %d is not available from %s to %s (leg %d)",
		e.WorkerID,
		e.StartAt.UTC().Format(time.RFC3339),
		e.EndAt.UTC().Format(time.RFC3339),
		e.LegIndex)
}

// IsExclusionViolation reports whether err is the Postgres exclusion
// constraint rejecting an overlapping active leg (SQLSTATE 23P01). The
// constraint is the final arbiter under concurrent writers; this maps its
// violation to ErrSlotConflict at the call site.
func IsExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
