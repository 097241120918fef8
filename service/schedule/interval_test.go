package schedule

import (
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func iv(startH, startM, endH, endM int) Interval {
	return Interval{Start: at(startH, startM), End: at(endH, endM)}
}

func equalSets(t *testing.T, got, want []Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d intervals, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("interval %d: expected %v-%v, got %v-%v",
				i, want[i].Start, want[i].End, got[i].Start, got[i].End)
		}
	}
}

func TestMerge_OverlappingAndTouching(t *testing.T) {
	got := Merge([]Interval{
		iv(13, 0, 14, 0),
		iv(9, 0, 11, 0),
		iv(10, 30, 12, 0),
		iv(12, 0, 12, 30),
	})
	equalSets(t, got, []Interval{
		iv(9, 0, 12, 30),
		iv(13, 0, 14, 0),
	})
}

func TestMerge_DropsEmptyAndInverted(t *testing.T) {
	got := Merge([]Interval{
		iv(9, 0, 9, 0),
		iv(11, 0, 10, 0),
		iv(14, 0, 15, 0),
	})
	equalSets(t, got, []Interval{iv(14, 0, 15, 0)})
}

func TestMerge_Idempotent(t *testing.T) {
	once := Merge([]Interval{iv(9, 0, 10, 0), iv(9, 30, 11, 0)})
	twice := Merge(once)
	equalSets(t, twice, once)
}

func TestSubtract_SplitsAroundExclusion(t *testing.T) {
	base := []Interval{iv(9, 0, 17, 0)}
	got := Subtract(base, []Interval{iv(12, 0, 13, 0)})
	equalSets(t, got, []Interval{
		iv(9, 0, 12, 0),
		iv(13, 0, 17, 0),
	})
}

func TestSubtract_ExclusionCoversInterval(t *testing.T) {
	base := []Interval{iv(10, 0, 11, 0), iv(14, 0, 15, 0)}
	got := Subtract(base, []Interval{iv(9, 0, 12, 0)})
	equalSets(t, got, []Interval{iv(14, 0, 15, 0)})
}

func TestSubtract_TouchingExclusionRemovesNothing(t *testing.T) {
	base := []Interval{iv(9, 0, 12, 0)}
	got := Subtract(base, []Interval{iv(12, 0, 13, 0)})
	equalSets(t, got, base)
}

func TestSubtract_OrderIndependent(t *testing.T) {
	base := []Interval{iv(9, 0, 17, 0)}
	exA := []Interval{iv(10, 0, 11, 0), iv(12, 0, 13, 0)}
	exB := []Interval{iv(12, 0, 13, 0), iv(10, 0, 11, 0)}
	equalSets(t, Subtract(base, exA), Subtract(base, exB))
}

func TestClip_TrimsToWindow(t *testing.T) {
	set := []Interval{iv(8, 0, 10, 0), iv(11, 0, 13, 0), iv(16, 0, 18, 0)}
	got := Clip(set, iv(9, 0, 17, 0))
	equalSets(t, got, []Interval{
		iv(9, 0, 10, 0),
		iv(11, 0, 13, 0),
		iv(16, 0, 17, 0),
	})
}

func TestContains(t *testing.T) {
	set := []Interval{iv(9, 0, 12, 0), iv(12, 0, 14, 0)}

	if !Contains(set, iv(10, 0, 11, 0)) {
		t.Fatal("expected window inside first interval to be contained")
	}
	if !Contains(set, iv(9, 0, 12, 0)) {
		t.Fatal("expected exact interval to be contained")
	}
	// The window straddles two adjacent free intervals; Contains requires a
	// single interval to hold the whole window.
	if Contains(set, iv(11, 0, 13, 0)) {
		t.Fatal("expected window spanning two intervals to not be contained")
	}
	if Contains(set, iv(10, 0, 10, 0)) {
		t.Fatal("expected empty window to not be contained")
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	if iv(9, 0, 10, 0).Overlaps(iv(10, 0, 11, 0)) {
		t.Fatal("touching intervals must not overlap")
	}
	if !iv(9, 0, 10, 1).Overlaps(iv(10, 0, 11, 0)) {
		t.Fatal("expected one-minute overlap to be detected")
	}
}
