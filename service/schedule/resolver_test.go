package schedule

import (
	"testing"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
)

func mondayRule(start, end string) models.WeeklyAvailability {
	return models.WeeklyAvailability{DayOfWeek: 1, StartTime: start, EndTime: end}
}

func TestFreeDay_ConvertsLocalRuleToUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	// 2026-03-02 is a Monday, before the DST switch: EST is UTC-5.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	data := DayContext{Rules: []models.WeeklyAvailability{mondayRule("09:00", "17:00")}}

	free := FreeDay(day, loc, data)

	equalSets(t, free, []Interval{{
		Start: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
	}})
}

func TestFreeDay_RuleWrappingMidnightIsClippedToDay(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	data := DayContext{Rules: []models.WeeklyAvailability{mondayRule("22:00", "02:00")}}

	free := FreeDay(day, time.UTC, data)

	equalSets(t, free, []Interval{{
		Start: time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	}})
}

func TestFreeDay_PreviousDaySpillover(t *testing.T) {
	// A Sunday shift running past midnight covers the early hours of Monday.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	data := DayContext{Rules: []models.WeeklyAvailability{
		{DayOfWeek: 0, StartTime: "20:00", EndTime: "04:00"},
	}}

	free := FreeDay(day, time.UTC, data)

	equalSets(t, free, []Interval{{
		Start: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC),
	}})
}

func TestFreeWindow_UnclippedAcrossMidnight(t *testing.T) {
	// The scheduler validates a late leg against a window spanning both days;
	// the wrapped rule must come back as one unbroken interval.
	window := Interval{
		Start: time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC),
	}
	data := DayContext{Rules: []models.WeeklyAvailability{mondayRule("22:00", "02:00")}}

	free := FreeWindow(window, time.UTC, data)

	if !Contains(free, window) {
		t.Fatalf("expected %v to fit the wrapped rule, free=%v", window, free)
	}
}

func TestFreeDay_TimeOffRemovesBlock(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	data := DayContext{
		Rules: []models.WeeklyAvailability{mondayRule("09:00", "17:00")},
		TimeOffs: []models.TimeOff{{
			StartAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
			EndAt:   time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
		}},
	}

	free := FreeDay(day, time.UTC, data)

	equalSets(t, free, []Interval{
		iv(9, 0, 12, 0),
		iv(13, 0, 17, 0),
	})
}

func TestFreeDay_FullDayTimeOff(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	data := DayContext{
		Rules: []models.WeeklyAvailability{mondayRule("09:00", "17:00")},
		TimeOffs: []models.TimeOff{{
			StartAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			EndAt:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		}},
	}

	if free := FreeDay(day, time.UTC, data); len(free) != 0 {
		t.Fatalf("expected no free intervals, got %v", free)
	}
}

func TestFreeDay_BookedLegsBlockTime(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	data := DayContext{
		Rules: []models.WeeklyAvailability{mondayRule("09:00", "12:00")},
		Legs: []models.BookingLeg{{
			StartAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			EndAt:   time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		}},
	}

	free := FreeDay(day, time.UTC, data)

	equalSets(t, free, []Interval{
		iv(9, 0, 10, 0),
		iv(10, 30, 12, 0),
	})
}

func TestFreeDay_NoRulesMeansClosed(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if free := FreeDay(day, time.UTC, DayContext{}); len(free) != 0 {
		t.Fatalf("expected no free intervals without rules, got %v", free)
	}
}

func TestFreeDay_SplitShift(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	data := DayContext{Rules: []models.WeeklyAvailability{
		mondayRule("09:00", "12:00"),
		mondayRule("14:00", "18:00"),
	}}

	free := FreeDay(day, time.UTC, data)

	equalSets(t, free, []Interval{
		iv(9, 0, 12, 0),
		iv(14, 0, 18, 0),
	})
}

func TestDayWindow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}

	window := DayWindow(time.Date(2026, 3, 2, 10, 0, 0, 0, loc), loc)

	// CET is UTC+1 in March before the switch.
	if !window.Start.Equal(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start %s", window.Start)
	}
	if !window.End.Equal(time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window end %s", window.End)
	}
}
