package schedule

import (
	"fmt"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"gorm.io/gorm"
)

// DayContext carries the three sources of truth for a worker's availability,
// fetched fresh per request. Rules are the worker's full weekly schedule;
// TimeOffs and Legs only need to cover the queried range plus the padding the
// resolver applies (±1 day).
type DayContext struct {
	Rules    []models.WeeklyAvailability
	TimeOffs []models.TimeOff
	Legs     []models.BookingLeg
}

// DayWindow is the natural [midnight, next midnight) span of day in loc,
// expressed in UTC.
func DayWindow(day time.Time, loc *time.Location) Interval {
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// FreeWindow computes the worker's free set inside window from pre-fetched
// data. Weekly rules are evaluated on every local calendar day the padded
// window touches, so rules that span midnight are not truncated at day
// boundaries; clipping to the window happens only after merging and
// subtracting. Pure, safe for concurrent use.
func FreeWindow(window Interval, loc *time.Location, data DayContext) []Interval {
	localStart := window.Start.In(loc)
	localEnd := window.End.In(loc)

	var base []Interval
	for d := dayOf(localStart, loc).AddDate(0, 0, -1); d.Before(localEnd.AddDate(0, 0, 1)); d = d.AddDate(0, 0, 1) {
		for _, rule := range data.Rules {
			if rule.DayOfWeek != int(d.Weekday()) {
				continue
			}
			iv, err := ruleInterval(rule, d, loc)
			if err != nil {
				continue
			}
			base = append(base, iv)
		}
	}
	base = Merge(base)

	var busy []Interval
	for _, off := range data.TimeOffs {
		busy = append(busy, Interval{Start: off.StartAt.UTC(), End: off.EndAt.UTC()})
	}
	for _, leg := range data.Legs {
		busy = append(busy, Interval{Start: leg.StartAt.UTC(), End: leg.EndAt.UTC()})
	}

	return Clip(Subtract(base, busy), window)
}

// FreeDay is FreeWindow over the natural boundaries of one calendar day.
func FreeDay(day time.Time, loc *time.Location, data DayContext) []Interval {
	return FreeWindow(DayWindow(day, loc), loc, data)
}

// Resolver fetches availability inputs and computes free sets. Read-only and
// stateless per request; no caching, every query recomputes from current data.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// DayData fetches the worker's weekly rules plus time-offs and active booking
// legs overlapping window padded by one day on each side.
func (r *Resolver) DayData(workerID uint, window Interval) (DayContext, error) {
	padStart := window.Start.Add(-24 * time.Hour)
	padEnd := window.End.Add(24 * time.Hour)

	var data DayContext
	if err := r.db.Where("user_id = ?", workerID).Find(&data.Rules).Error; err != nil {
		return data, fmt.Errorf("fetching weekly availability: %w", err)
	}
	if err := r.db.Where("user_id = ? AND start_at < ? AND end_at > ?",
		workerID, padEnd, padStart).Find(&data.TimeOffs).Error; err != nil {
		return data, fmt.Errorf("fetching time off: %w", err)
	}
	if err := r.db.Where("worker_id = ? AND status IN ? AND start_at < ? AND end_at > ?",
		workerID, models.ActiveStatuses, padEnd, padStart).Find(&data.Legs).Error; err != nil {
		return data, fmt.Errorf("fetching booking legs: %w", err)
	}
	return data, nil
}

// FreeSet returns the worker's free intervals for one calendar day.
func (r *Resolver) FreeSet(workerID uint, day time.Time, loc *time.Location) ([]Interval, error) {
	return r.FreeWithin(workerID, DayWindow(day, loc), loc)
}

// FreeWithin returns the worker's free intervals inside an arbitrary window.
// The scheduler uses this with a window spanning every day a leg touches, so
// legs crossing midnight validate against an unclipped span.
func (r *Resolver) FreeWithin(workerID uint, window Interval, loc *time.Location) ([]Interval, error) {
	data, err := r.DayData(workerID, window)
	if err != nil {
		return nil, err
	}
	return FreeWindow(window, loc, data), nil
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// ruleInterval places a weekly rule on a concrete local calendar day and
// converts it to UTC. An end at or before the start wraps to the next day.
func ruleInterval(rule models.WeeklyAvailability, day time.Time, loc *time.Location) (Interval, error) {
	sh, sm, err := parseClock(rule.StartTime)
	if err != nil {
		return Interval{}, err
	}
	eh, em, err := parseClock(rule.EndTime)
	if err != nil {
		return Interval{}, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), sh, sm, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), eh, em, 0, 0, loc)
	if !end.After(start) {
		end = time.Date(day.Year(), day.Month(), day.Day()+1, eh, em, 0, 0, loc)
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
