/*
aggregate.go - Work/leave aggregation into the mod period grid

PURPOSE:
  Folds time entries into the month -> week hierarchy produced by
  GenerateModMonths. This answers "how many hours did each employee log
  in each mod week and mod month?"

CELL COMPONENTS:
  Work:        Hours on entries coded WorkCode
  Leave:       Hours on every other entry
  Total:       Work + Leave
  HasActivity: Total is non-zero; drives highlighting, never the number

INVARIANTS:
  1. Week total = sum of the employee's entries dated in [Start, End]
  2. Month total = sum of that month's week totals (never recomputed from
     entries; Grid.Validate checks it)
  3. Employees with zero hours across the whole window are left out

CONCURRENCY:
  Each employee is aggregated in its own goroutine against the shared,
  read-only hierarchy. Each goroutine writes only its own result slot.

SEE ALSO:
  - period.go: The hierarchy
  - leave.go: Leave run consolidation for display
*/
package generic

import (
	"fmt"
	"sort"
	"sync"
)

// =============================================================================
// GRID TYPES
// =============================================================================

type WeekCell struct {
	Week        ModWeek `json:"week"`
	Work        Hours   `json:"work"`
	Leave       Hours   `json:"leave"`
	Total       Hours   `json:"total"`
	HasActivity bool    `json:"has_activity"`
}

type MonthCell struct {
	Month       TimePoint  `json:"month"`
	Weeks       []WeekCell `json:"weeks"`
	Work        Hours      `json:"work"`
	Leave       Hours      `json:"leave"`
	Total       Hours      `json:"total"`
	HasActivity bool       `json:"has_activity"`
}

type EmployeeRow struct {
	EmployeeID  EmployeeID  `json:"employee_id"`
	Months      []MonthCell `json:"months"`
	Total       Hours       `json:"total"`
	HasActivity bool        `json:"has_activity"`
}

// Grid is the aggregated report matrix. Derived data, never persisted.
type Grid struct {
	Rows []EmployeeRow `json:"rows"`
}

// Row returns the row for an employee, if present.
func (g Grid) Row(id EmployeeID) (EmployeeRow, bool) {
	for _, r := range g.Rows {
		if r.EmployeeID == id {
			return r, true
		}
	}
	return EmployeeRow{}, false
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregate folds entries into the hierarchy, one goroutine per employee.
// Entries outside the hierarchy's weeks are ignored.
func Aggregate(entries []TimeEntry, months []ModMonth) Grid {
	byEmployee := make(map[EmployeeID][]TimeEntry)
	for _, e := range entries {
		byEmployee[e.EmployeeID] = append(byEmployee[e.EmployeeID], e)
	}

	ids := make([]EmployeeID, 0, len(byEmployee))
	for id := range byEmployee {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	weeks := Flatten(months)
	rows := make([]EmployeeRow, len(ids))

	var wg sync.WaitGroup
	wg.Add(len(ids))
	for i, id := range ids {
		go func(slot int, id EmployeeID) {
			defer wg.Done()
			rows[slot] = aggregateEmployee(id, byEmployee[id], months, weeks)
		}(i, id)
	}
	wg.Wait()

	var grid Grid
	for _, row := range rows {
		if row.HasActivity {
			grid.Rows = append(grid.Rows, row)
		}
	}
	return grid
}

func aggregateEmployee(id EmployeeID, entries []TimeEntry, months []ModMonth, weeks []ModWeek) EmployeeRow {
	work := make([]Hours, len(weeks))
	leave := make([]Hours, len(weeks))
	for i := range weeks {
		work[i] = ZeroHours()
		leave[i] = ZeroHours()
	}

	for _, e := range entries {
		idx, ok := WeekContaining(weeks, e.Date)
		if !ok {
			continue
		}
		if e.IsWork() {
			work[idx] = work[idx].Add(e.Hours)
		} else {
			leave[idx] = leave[idx].Add(e.Hours)
		}
	}

	row := EmployeeRow{EmployeeID: id, Total: ZeroHours()}
	idx := 0
	for _, m := range months {
		mc := MonthCell{Month: m.Month, Work: ZeroHours(), Leave: ZeroHours(), Total: ZeroHours()}
		for _, w := range m.Weeks {
			total := work[idx].Add(leave[idx])
			mc.Weeks = append(mc.Weeks, WeekCell{
				Week:        w,
				Work:        work[idx],
				Leave:       leave[idx],
				Total:       total,
				HasActivity: !total.IsZero(),
			})
			mc.Work = mc.Work.Add(work[idx])
			mc.Leave = mc.Leave.Add(leave[idx])
			mc.Total = mc.Total.Add(total)
			idx++
		}
		mc.HasActivity = !mc.Total.IsZero()
		row.Months = append(row.Months, mc)
		row.Total = row.Total.Add(mc.Total)
	}
	row.HasActivity = !row.Total.IsZero()
	return row
}

// =============================================================================
// CONSISTENCY CHECK
// =============================================================================

// Validate checks that every month total equals the sum of its weeks and
// that activity flags agree with totals.
func (g Grid) Validate() error {
	for _, row := range g.Rows {
		rowTotal := ZeroHours()
		for _, mc := range row.Months {
			sum := ZeroHours()
			for _, wc := range mc.Weeks {
				if wc.HasActivity == wc.Total.IsZero() {
					return fmt.Errorf("employee %s week %s: activity flag disagrees with total %s",
						row.EmployeeID, wc.Week.Start, wc.Total)
				}
				sum = sum.Add(wc.Total)
			}
			if !sum.Equal(mc.Total) {
				return fmt.Errorf("employee %s month %s: total %s != sum of weeks %s",
					row.EmployeeID, mc.Month, mc.Total, sum)
			}
			rowTotal = rowTotal.Add(mc.Total)
		}
		if !rowTotal.Equal(row.Total) {
			return fmt.Errorf("employee %s: total %s != sum of months %s", row.EmployeeID, row.Total, rowTotal)
		}
	}
	return nil
}
