package schedule

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End) on the UTC timeline.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) IsZero() bool {
	return !iv.End.After(iv.Start)
}

// Overlaps reports whether two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Merge sorts intervals by start and folds touching or overlapping ranges into
// a canonical ascending, non-overlapping sequence. Empty ranges are dropped.
// Idempotent: merging a merged set returns it unchanged.
func Merge(intervals []Interval) []Interval {
	var in []Interval
	for _, iv := range intervals {
		if !iv.IsZero() {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}

	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })

	out := []Interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Subtract removes every exclusion range from the base set, splitting base
// intervals around excluded portions. The base is expected to be canonical
// (output of Merge); the result is canonical again. The outcome does not
// depend on the order of exclusions.
func Subtract(base, exclusions []Interval) []Interval {
	result := base
	for _, ex := range exclusions {
		if ex.IsZero() {
			continue
		}
		var next []Interval
		for _, iv := range result {
			if !iv.Overlaps(ex) {
				next = append(next, iv)
				continue
			}
			if ex.Start.After(iv.Start) {
				next = append(next, Interval{Start: iv.Start, End: ex.Start})
			}
			if ex.End.Before(iv.End) {
				next = append(next, Interval{Start: ex.End, End: iv.End})
			}
		}
		result = next
	}
	return result
}

// Clip intersects a canonical set with a single window.
func Clip(set []Interval, window Interval) []Interval {
	var out []Interval
	for _, iv := range set {
		if !iv.Overlaps(window) {
			continue
		}
		clipped := iv
		if clipped.Start.Before(window.Start) {
			clipped.Start = window.Start
		}
		if clipped.End.After(window.End) {
			clipped.End = window.End
		}
		if !clipped.IsZero() {
			out = append(out, clipped)
		}
	}
	return out
}

// Contains reports whether the window fits entirely inside one interval of
// the set. Partial containment across two adjacent free intervals is not
// containment.
func Contains(set []Interval, window Interval) bool {
	if window.IsZero() {
		return false
	}
	for _, iv := range set {
		if !iv.Start.After(window.Start) && !window.End.After(iv.End) {
			return true
		}
	}
	return false
}
