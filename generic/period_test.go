package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(year int, month time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(year, month, d)
}

func window(start, end generic.TimePoint) generic.FiscalWindow {
	return generic.FiscalWindow{TeamID: "team-1", CompanyID: "acme", Start: start, End: end}
}

// =============================================================================
// FISCAL PERIOD GENERATOR TESTS
// =============================================================================

func TestGenerateModMonths_WednesdayStart_FourWeeks(t *testing.T) {
	// GIVEN: A window starting Wednesday Jan 1 2025, ending Friday Jan 31
	//        (four weeks after the first Friday)
	// WHEN: Generating the hierarchy
	// THEN: Exactly 4 weeks, the first starting Saturday Dec 28 2024

	months, err := generic.GenerateModMonths(window(day(2025, time.January, 1), day(2025, time.January, 31)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	weeks := generic.Flatten(months)
	if len(weeks) != 4 {
		t.Fatalf("expected 4 weeks, got %d", len(weeks))
	}
	if !weeks[0].Start.Equal(day(2024, time.December, 28)) {
		t.Errorf("first week should start Sat 2024-12-28, got %s", weeks[0].Start)
	}
	if !weeks[0].End.Equal(day(2025, time.January, 3)) {
		t.Errorf("first week should end Fri 2025-01-03, got %s", weeks[0].End)
	}
	if len(months) != 1 || !months[0].Month.Equal(day(2025, time.January, 1)) {
		t.Errorf("expected a single January month, got %+v", months)
	}
}

func TestGenerateModMonths_EndBeforeStart_Fails(t *testing.T) {
	// GIVEN: A window whose end precedes its start
	// WHEN: Generating
	// THEN: ErrInvalidWindow

	_, err := generic.GenerateModMonths(window(day(2025, time.March, 10), day(2025, time.March, 1)))
	if !errors.Is(err, generic.ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestGenerateModMonths_GroupsWeeksByFridayMonth(t *testing.T) {
	// GIVEN: A window from Mon Jan 20 to Mon Mar 10 2025
	// WHEN: Generating
	// THEN: January holds the weeks ending Jan 24 and Jan 31, February four weeks,
	//       March only the week ending Mar 7

	months, err := generic.GenerateModMonths(window(day(2025, time.January, 20), day(2025, time.March, 10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(months))
	}

	jan, feb, mar := months[0], months[1], months[2]
	if got := jan.Weeks[len(jan.Weeks)-1].End; !got.Equal(day(2025, time.January, 31)) {
		t.Errorf("last January week should end Jan 31, got %s", got)
	}
	if len(feb.Weeks) != 4 {
		t.Errorf("expected 4 February weeks, got %d", len(feb.Weeks))
	}
	if !mar.Month.Equal(day(2025, time.March, 1)) || len(mar.Weeks) != 1 {
		t.Errorf("expected one March week, got %+v", mar)
	}
}

func TestGenerateModMonths_CrossMonthWeek_AssignedByFriday(t *testing.T) {
	// GIVEN: A window in which a week starts Sat Aug 30 and ends Fri Sep 5 2025
	// WHEN: Generating
	// THEN: That week sits in September

	months, err := generic.GenerateModMonths(window(day(2025, time.August, 25), day(2025, time.September, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var found bool
	for _, m := range months {
		for _, w := range m.Weeks {
			if w.Start.Equal(day(2025, time.August, 30)) {
				found = true
				if m.Month.Month() != time.September {
					t.Errorf("week starting Aug 30 should belong to September, got %s", m.Month)
				}
			}
		}
	}
	if !found {
		t.Error("expected a week starting Aug 30")
	}
}

func TestGenerateModMonths_WeeksAreContiguousSaturdayToFriday(t *testing.T) {
	// GIVEN: A range of irregular windows
	// WHEN: Generating each
	// THEN: Every week is Sat-Fri, 6 days long, and starts the day after the previous week ends

	windows := []generic.FiscalWindow{
		window(day(2024, time.December, 29), day(2025, time.February, 2)),
		window(day(2025, time.January, 3), day(2025, time.January, 3)),
		window(day(2025, time.February, 14), day(2025, time.June, 30)),
		window(day(2024, time.February, 26), day(2024, time.March, 29)), // leap year
		window(day(2025, time.October, 4), day(2026, time.September, 30)),
	}

	for _, w := range windows {
		months, err := generic.GenerateModMonths(w)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", w, err)
		}
		weeks := generic.Flatten(months)
		for i, wk := range weeks {
			if wk.Start.Weekday() != time.Saturday || wk.End.Weekday() != time.Friday {
				t.Errorf("%s: week %d is %s-%s", w, i, wk.Start.Weekday(), wk.End.Weekday())
			}
			if generic.DaysBetween(wk.Start, wk.End) != 6 {
				t.Errorf("%s: week %d spans %d days", w, i, generic.DaysBetween(wk.Start, wk.End))
			}
			if i > 0 && !wk.Start.Equal(weeks[i-1].End.AddDays(1)) {
				t.Errorf("%s: week %d does not follow week %d", w, i, i-1)
			}
		}
		for i := 1; i < len(months); i++ {
			if !months[i-1].Month.Before(months[i].Month) {
				t.Errorf("%s: months out of order at %d", w, i)
			}
		}
	}
}

func TestGenerateModMonths_NoFridayBeforeEnd_Empty(t *testing.T) {
	// GIVEN: A window from Saturday to the following Thursday
	// WHEN: Generating
	// THEN: No months at all

	months, err := generic.GenerateModMonths(window(day(2025, time.January, 4), day(2025, time.January, 9)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(months) != 0 {
		t.Errorf("expected no months, got %d", len(months))
	}
}

// =============================================================================
// LOOKUP HELPERS
// =============================================================================

func TestWeekContaining(t *testing.T) {
	months, _ := generic.GenerateModMonths(window(day(2025, time.January, 1), day(2025, time.February, 28)))
	weeks := generic.Flatten(months)

	idx, ok := generic.WeekContaining(weeks, day(2025, time.January, 15))
	if !ok {
		t.Fatal("Jan 15 should be covered")
	}
	if !weeks[idx].Start.Equal(day(2025, time.January, 11)) {
		t.Errorf("Jan 15 should fall in the week of Jan 11, got %s", weeks[idx].Start)
	}

	if _, ok := generic.WeekContaining(weeks, day(2025, time.June, 1)); ok {
		t.Error("June 1 should not be covered")
	}
	if _, ok := generic.WeekContaining(weeks, day(2024, time.December, 1)); ok {
		t.Error("Dec 1 should not be covered")
	}
}

func TestFindWindow(t *testing.T) {
	windows := []generic.FiscalWindow{
		window(day(2025, time.January, 1), day(2025, time.January, 31)),
		window(day(2025, time.February, 1), day(2025, time.March, 15)),
	}

	w, ok := generic.FindWindow(windows, day(2025, time.March, 15))
	if !ok || !w.Start.Equal(day(2025, time.February, 1)) {
		t.Errorf("Mar 15 should be in the second window, got %v %v", w, ok)
	}
	if _, ok := generic.FindWindow(windows, day(2025, time.March, 16)); ok {
		t.Error("Mar 16 should be in no window")
	}
}
