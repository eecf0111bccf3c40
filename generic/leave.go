package generic

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// =============================================================================
// LEAVE RUNS - Contiguous same-code, same-status leave shown as one period
// =============================================================================

type LeavePeriod struct {
	Code    string      `json:"code"`
	Start   TimePoint   `json:"start"`
	End     TimePoint   `json:"end"`
	Status  LeaveStatus `json:"status"`
	Entries []TimeEntry `json:"entries"`
}

// Hours sums the hours of the period's entries.
func (p LeavePeriod) Hours() Hours {
	total := ZeroHours()
	for _, e := range p.Entries {
		total = total.Add(e.Hours)
	}
	return total
}

type LeaveMonth struct {
	Month         TimePoint     `json:"month"`
	StandardHours Hours         `json:"standard_hours"`
	Periods       []LeavePeriod `json:"periods"`
}

func (m LeaveMonth) Hours() Hours {
	total := ZeroHours()
	for _, p := range m.Periods {
		total = total.Add(p.Hours())
	}
	return total
}

// TotalLeaveHours sums every period of every month.
func TotalLeaveHours(months []LeaveMonth) Hours {
	total := ZeroHours()
	for _, m := range months {
		total = total.Add(m.Hours())
	}
	return total
}

// StandardHours gives the expected full-day leave hours for a month.
type StandardHours func(month TimePoint) Hours

// FixedStandardHours uses the same daily standard for every month.
func FixedStandardHours(h Hours) StandardHours {
	return func(TimePoint) Hours { return h }
}

// =============================================================================
// CONSOLIDATOR
// =============================================================================

// ConsolidateLeave merges one employee's leave entries into runs.
//
// An entry extends the last period of its calendar month when its hours
// equal that month's standard, its code and status match (ignoring case),
// and it falls on the day after the period's end. Anything else seeds a new
// period, so partial days always stand alone. No entry is dropped.
func ConsolidateLeave(entries []TimeEntry, standard StandardHours) []LeaveMonth {
	ordered := make([]TimeEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	var months []LeaveMonth
	for _, e := range ordered {
		anchor := e.Date.FirstOfMonth()
		if len(months) == 0 || !months[len(months)-1].Month.Equal(anchor) {
			months = append(months, LeaveMonth{Month: anchor, StandardHours: standard(anchor)})
		}
		month := &months[len(months)-1]

		if n := len(month.Periods); n > 0 && extends(month.Periods[n-1], e, month.StandardHours) {
			p := &month.Periods[n-1]
			p.End = e.Date
			p.Entries = append(p.Entries, e)
			continue
		}

		month.Periods = append(month.Periods, LeavePeriod{
			Code:    e.Code,
			Start:   e.Date,
			End:     e.Date,
			Status:  e.Status,
			Entries: []TimeEntry{e},
		})
	}
	return months
}

func extends(p LeavePeriod, e TimeEntry, standard Hours) bool {
	return e.Hours.Equal(standard) &&
		strings.EqualFold(e.Code, p.Code) &&
		strings.EqualFold(string(e.Status), string(p.Status)) &&
		e.Date.Equal(p.End.AddDays(1))
}

// ConsolidateLeaveByEmployee groups leave entries per employee, then
// consolidates each group. Work entries are ignored.
func ConsolidateLeaveByEmployee(entries []TimeEntry, standard StandardHours) map[EmployeeID][]LeaveMonth {
	leave := lo.Filter(entries, func(e TimeEntry, _ int) bool { return e.IsLeave() })
	grouped := lo.GroupBy(leave, func(e TimeEntry) EmployeeID { return e.EmployeeID })

	out := make(map[EmployeeID][]LeaveMonth, len(grouped))
	for id, group := range grouped {
		out[id] = ConsolidateLeave(group, standard)
	}
	return out
}
