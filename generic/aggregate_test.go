package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/generic"
)

func hours(s string) generic.Hours {
	return generic.MustParseHours(s)
}

func workEntry(emp string, date generic.TimePoint, h string) generic.TimeEntry {
	return generic.TimeEntry{
		Date:         date,
		EmployeeID:   generic.EmployeeID(emp),
		ChargeNumber: "C-100",
		Extension:    "01",
		Hours:        hours(h),
		Code:         generic.WorkCode,
	}
}

func leaveEntry(emp string, date generic.TimePoint, code string, status generic.LeaveStatus, h string) generic.TimeEntry {
	return generic.TimeEntry{
		Date:       date,
		EmployeeID: generic.EmployeeID(emp),
		Hours:      hours(h),
		Code:       code,
		Status:     status,
	}
}

func januaryMonths(t *testing.T) []generic.ModMonth {
	t.Helper()
	// Weeks: Dec 28-Jan 3, Jan 4-10, Jan 11-17, Jan 18-24
	months, err := generic.GenerateModMonths(window(day(2025, time.January, 1), day(2025, time.January, 31)))
	require.NoError(t, err)
	return months
}

// =============================================================================
// AGGREGATOR TESTS
// =============================================================================

func TestAggregate_WeekTotalsSumEntriesInRange(t *testing.T) {
	// GIVEN: Work and leave entries spread over three weeks
	// WHEN: Aggregating
	// THEN: Each week totals exactly the entries dated inside it

	entries := []generic.TimeEntry{
		workEntry("emp-1", day(2025, time.January, 2), "8"),
		workEntry("emp-1", day(2025, time.January, 3), "7.5"),
		leaveEntry("emp-1", day(2025, time.January, 6), "V", generic.StatusApproved, "8"),
		workEntry("emp-1", day(2025, time.January, 10), "4"),
		workEntry("emp-1", day(2025, time.January, 11), "6.25"),
	}

	grid := generic.Aggregate(entries, januaryMonths(t))
	require.NoError(t, grid.Validate())

	row, ok := grid.Row("emp-1")
	require.True(t, ok)
	require.Len(t, row.Months, 1)
	weeks := row.Months[0].Weeks
	require.Len(t, weeks, 4)

	assert.True(t, weeks[0].Total.Equal(hours("15.5")), "week 1 got %s", weeks[0].Total)
	assert.True(t, weeks[1].Work.Equal(hours("4")))
	assert.True(t, weeks[1].Leave.Equal(hours("8")))
	assert.True(t, weeks[1].Total.Equal(hours("12")))
	assert.True(t, weeks[2].Total.Equal(hours("6.25")))
	assert.True(t, weeks[3].Total.IsZero())

	assert.True(t, weeks[0].HasActivity)
	assert.False(t, weeks[3].HasActivity)
	assert.True(t, row.Months[0].Total.Equal(hours("33.75")))
}

func TestAggregate_MonthTotalEqualsSumOfWeeks(t *testing.T) {
	// GIVEN: A two-month hierarchy and several employees
	// WHEN: Aggregating
	// THEN: For every month, total == sum of its week totals

	months, err := generic.GenerateModMonths(window(day(2025, time.January, 1), day(2025, time.March, 1)))
	require.NoError(t, err)

	var entries []generic.TimeEntry
	for d := day(2025, time.January, 1); d.Before(day(2025, time.March, 1)); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		entries = append(entries, workEntry("emp-1", d, "8"))
		if d.Day()%3 == 0 {
			entries = append(entries, workEntry("emp-2", d, "2.5"))
		}
	}

	grid := generic.Aggregate(entries, months)
	require.NoError(t, grid.Validate())
	require.Len(t, grid.Rows, 2)

	for _, row := range grid.Rows {
		for _, mc := range row.Months {
			sum := generic.ZeroHours()
			for _, wc := range mc.Weeks {
				sum = sum.Add(wc.Total)
			}
			assert.True(t, sum.Equal(mc.Total), "%s %s: %s != %s", row.EmployeeID, mc.Month, sum, mc.Total)
		}
	}
}

func TestAggregate_ExcludesEmployeesWithoutActivity(t *testing.T) {
	// GIVEN: emp-1 with hours in the window, emp-2 only outside it, emp-3 with zero-hour rows
	// WHEN: Aggregating
	// THEN: Only emp-1 appears

	entries := []generic.TimeEntry{
		workEntry("emp-1", day(2025, time.January, 7), "8"),
		workEntry("emp-2", day(2025, time.March, 7), "8"),
		workEntry("emp-3", day(2025, time.January, 7), "0"),
	}

	grid := generic.Aggregate(entries, januaryMonths(t))

	require.Len(t, grid.Rows, 1)
	assert.Equal(t, generic.EmployeeID("emp-1"), grid.Rows[0].EmployeeID)
	_, ok := grid.Row("emp-2")
	assert.False(t, ok)
}

func TestAggregate_RowsOrderedByEmployee(t *testing.T) {
	entries := []generic.TimeEntry{
		workEntry("emp-c", day(2025, time.January, 7), "1"),
		workEntry("emp-a", day(2025, time.January, 7), "1"),
		workEntry("emp-b", day(2025, time.January, 7), "1"),
	}

	grid := generic.Aggregate(entries, januaryMonths(t))

	require.Len(t, grid.Rows, 3)
	assert.Equal(t, generic.EmployeeID("emp-a"), grid.Rows[0].EmployeeID)
	assert.Equal(t, generic.EmployeeID("emp-b"), grid.Rows[1].EmployeeID)
	assert.Equal(t, generic.EmployeeID("emp-c"), grid.Rows[2].EmployeeID)
}

func TestAggregate_DoesNotMutateHierarchy(t *testing.T) {
	months := januaryMonths(t)
	before := generic.Flatten(months)

	generic.Aggregate([]generic.TimeEntry{workEntry("emp-1", day(2025, time.January, 7), "8")}, months)

	assert.Equal(t, before, generic.Flatten(months))
}

func TestGridValidate_DetectsBrokenMonthTotal(t *testing.T) {
	grid := generic.Aggregate([]generic.TimeEntry{workEntry("emp-1", day(2025, time.January, 7), "8")}, januaryMonths(t))
	grid.Rows[0].Months[0].Total = hours("9")

	assert.Error(t, grid.Validate())
}
