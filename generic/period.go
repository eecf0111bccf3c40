package generic

import (
	"sort"
	"time"
)

// =============================================================================
// FISCAL WINDOW - The company-specific "mod period"
// =============================================================================

// FiscalWindow is a company-specific reporting range. It may be any length
// and need not line up with calendar months.
type FiscalWindow struct {
	TeamID    TeamID    `json:"team_id"`
	CompanyID CompanyID `json:"company_id"`
	Start     TimePoint `json:"start"`
	End       TimePoint `json:"end"`
}

// Contains returns true if the day is within the window [Start, End].
func (w FiscalWindow) Contains(t TimePoint) bool {
	return t.AfterOrEqual(w.Start) && t.BeforeOrEqual(w.End)
}

func (w FiscalWindow) Validate() error {
	if w.End.Before(w.Start) {
		return ErrInvalidWindow
	}
	return nil
}

func (w FiscalWindow) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}

// FindWindow returns the first window containing the day.
func FindWindow(windows []FiscalWindow, at TimePoint) (FiscalWindow, bool) {
	for _, w := range windows {
		if w.Contains(at) {
			return w, true
		}
	}
	return FiscalWindow{}, false
}

// =============================================================================
// MOD WEEK / MOD MONTH
// =============================================================================

// ModWeek always runs Saturday through Friday.
type ModWeek struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// Contains returns true if the day falls in [Start, End].
func (w ModWeek) Contains(t TimePoint) bool {
	return t.AfterOrEqual(w.Start) && t.BeforeOrEqual(w.End)
}

// ModMonth groups the weeks whose Friday falls in Month's calendar month.
type ModMonth struct {
	Month TimePoint `json:"month"` // first day of the calendar month
	Weeks []ModWeek `json:"weeks"`
}

// Start is the first day of the month's first week.
func (m ModMonth) Start() TimePoint { return m.Weeks[0].Start }

// End is the last day of the month's last week.
func (m ModMonth) End() TimePoint { return m.Weeks[len(m.Weeks)-1].End }

// =============================================================================
// FISCAL PERIOD GENERATOR
// =============================================================================

// GenerateModMonths derives the month -> week hierarchy for a window.
//
// The first week-ending marker is the first Friday on or after Start. While
// the marker is before End, a Saturday-Friday week ending on the marker is
// appended to the month containing that Friday, so a week spanning two
// months belongs to the later one.
func GenerateModMonths(window FiscalWindow) ([]ModMonth, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	var (
		months  []ModMonth
		current *ModMonth
	)

	cursor := window.Start.NextOnOrAfter(time.Friday)
	for cursor.Before(window.End) {
		begin := cursor.PrevOnOrBefore(time.Saturday)

		if current == nil || !current.Month.SameMonth(cursor) {
			if current != nil && len(current.Weeks) > 0 {
				months = append(months, *current)
			}
			current = &ModMonth{Month: cursor.FirstOfMonth()}
		}

		current.Weeks = append(current.Weeks, ModWeek{Start: begin, End: cursor})
		cursor = cursor.AddDays(7)
	}

	if current != nil && len(current.Weeks) > 0 {
		months = append(months, *current)
	}
	return months, nil
}

// Flatten returns every week of the hierarchy in order.
func Flatten(months []ModMonth) []ModWeek {
	var weeks []ModWeek
	for _, m := range months {
		weeks = append(weeks, m.Weeks...)
	}
	return weeks
}

// WeekContaining finds the index of the week holding the day.
// weeks must be ordered and non-overlapping, as GenerateModMonths produces.
func WeekContaining(weeks []ModWeek, t TimePoint) (int, bool) {
	i := sort.Search(len(weeks), func(i int) bool {
		return weeks[i].End.AfterOrEqual(t)
	})
	if i < len(weeks) && weeks[i].Contains(t) {
		return i, true
	}
	return -1, false
}

// Span returns the first and last day covered by the hierarchy.
func Span(months []ModMonth) (TimePoint, TimePoint, bool) {
	if len(months) == 0 {
		return TimePoint{}, TimePoint{}, false
	}
	return months[0].Start(), months[len(months)-1].End(), true
}
