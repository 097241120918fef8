package schedule

import (
	"os"
	"sort"
	"strconv"
	"time"
)

// DefaultStepMinutes is the system-wide slot granularity.
const DefaultStepMinutes = 15

// Step returns the slot granularity, overridable via SLOT_STEP_MINUTES.
func Step() time.Duration {
	if v := os.Getenv("SLOT_STEP_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return DefaultStepMinutes * time.Minute
}

// Slot is a candidate booking window of exactly the requested total duration.
type Slot struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// Slots enumerates candidate starts at step granularity inside each free
// interval. A slot must fit entirely within a single free interval. Starts
// before notBefore are dropped (pass the zero time to disable the floor, e.g.
// for administrative backfill).
func Slots(free []Interval, duration, step time.Duration, notBefore time.Time) []Slot {
	if duration <= 0 || step <= 0 {
		return nil
	}

	var slots []Slot
	for _, iv := range free {
		for s := iv.Start; !s.Add(duration).After(iv.End); s = s.Add(step) {
			if s.Before(notBefore) {
				continue
			}
			slots = append(slots, Slot{StartAt: s, EndAt: s.Add(duration)})
		}
	}
	return slots
}

// UnionSlots merges per-worker slot lists into one ascending list without
// worker attribution, deduplicating identical windows.
func UnionSlots(lists ...[]Slot) []Slot {
	var all []Slot
	for _, list := range lists {
		all = append(all, list...)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartAt.Equal(all[j].StartAt) {
			return all[i].StartAt.Before(all[j].StartAt)
		}
		return all[i].EndAt.Before(all[j].EndAt)
	})

	var out []Slot
	for _, s := range all {
		if len(out) > 0 && out[len(out)-1].StartAt.Equal(s.StartAt) && out[len(out)-1].EndAt.Equal(s.EndAt) {
			continue
		}
		out = append(out, s)
	}
	return out
}
