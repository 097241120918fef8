package schedule

import (
	"errors"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"gorm.io/gorm"
)

// LegRequest is one requested service of a booking session. WorkerID is
// required: worker auto-assignment is the caller's job, not the engine's.
type LegRequest struct {
	ServiceID uint   `json:"service_id"`
	WorkerID  uint   `json:"worker_id"`
	Notes     string `json:"notes"`
}

// PlannedLeg is a validated leg with its duration/price snapshot and computed
// time window, ready to persist.
type PlannedLeg struct {
	ServiceID uint
	WorkerID  uint
	Duration  int
	Price     float64
	StartAt   time.Time
	EndAt     time.Time
	Notes     string
}

// Plan chains the requested legs sequentially from startAt: each leg starts
// where the previous one ends, so the customer's session is one contiguous
// block even when different workers handle different services. Every leg is
// validated against its worker's free set; the first failing leg aborts the
// whole attempt with WorkerUnavailableError and nothing is persisted.
//
// Run Plan on the same transaction that inserts the booking; the commit-time
// re-check in EnsureExclusive closes the remaining read-to-write race.
func Plan(tx *gorm.DB, companyID uint, startAt time.Time, reqs []LegRequest, loc *time.Location) ([]PlannedLeg, error) {
	if len(reqs) == 0 {
		return nil, NewValidationError("at least one service is required")
	}

	resolver := NewResolver(tx)
	cursor := startAt.UTC()
	legs := make([]PlannedLeg, 0, len(reqs))

	for i, req := range reqs {
		if req.WorkerID == 0 {
			return nil, NewValidationError("leg %d: worker_id is required", i)
		}

		var cs models.CompanyService
		err := tx.Preload("Service").
			Where("company_id = ? AND service_id = ? AND active = ?", companyID, req.ServiceID, true).
			First(&cs).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("leg %d: service %d not offered by this company", i, req.ServiceID)
		}
		if err != nil {
			return nil, err
		}

		duration := cs.EffectiveDuration()
		if duration <= 0 {
			return nil, NewValidationError("leg %d: service %d has no positive duration", i, req.ServiceID)
		}

		legStart := cursor
		legEnd := cursor.Add(time.Duration(duration) * time.Minute)

		free, err := resolver.FreeWithin(req.WorkerID, Interval{Start: legStart, End: legEnd}, loc)
		if err != nil {
			return nil, err
		}
		if !Contains(free, Interval{Start: legStart, End: legEnd}) {
			return nil, &WorkerUnavailableError{
				LegIndex: i,
				WorkerID: req.WorkerID,
				StartAt:  legStart,
				EndAt:    legEnd,
			}
		}

		legs = append(legs, PlannedLeg{
			ServiceID: req.ServiceID,
			WorkerID:  req.WorkerID,
			Duration:  duration,
			Price:     cs.EffectivePrice(),
			StartAt:   legStart,
			EndAt:     legEnd,
			Notes:     req.Notes,
		})
		cursor = legEnd
	}

	return legs, nil
}

// TotalPrice sums the planned leg prices.
func TotalPrice(legs []PlannedLeg) float64 {
	var total float64
	for _, leg := range legs {
		total += leg.Price
	}
	return total
}
