package schedule

import (
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"gorm.io/gorm"
)

// EnsureExclusive re-validates, inside the transaction that writes the legs,
// that no active leg overlaps [start, end) for the worker. Between Plan's read
// and the insert another request may have committed the same worker time; this
// check plus the Postgres exclusion constraint on booking_legs closes that
// race. excludeBookingID skips the booking being updated (zero for creates).
//
// Returns ErrSlotConflict so callers can tell a race apart from a stale
// client choice (WorkerUnavailableError).
func EnsureExclusive(tx *gorm.DB, workerID uint, start, end time.Time, excludeBookingID uint) error {
	q := tx.Model(&models.BookingLeg{}).
		Where("worker_id = ? AND status IN ? AND start_at < ? AND end_at > ?",
			workerID, models.ActiveStatuses, end.UTC(), start.UTC())
	if excludeBookingID != 0 {
		q = q.Where("booking_id <> ?", excludeBookingID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSlotConflict
	}
	return nil
}
