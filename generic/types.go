/*
Package generic provides the core timesheet engine.

PURPOSE:
  This package holds the types and algorithms that turn canonical time
  entries into mod-period reports. It knows nothing about spreadsheets,
  HTTP or SQL: the timesheet package feeds it entries, the store packages
  implement its directory interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: A decimal quantity of labor hours
  - TimeEntry: One canonical row of worked time or leave
  - ChargeCode / LaborCode: What an hour is billed against
  - LeaveCodeRule: Team configuration used to recognise leave cells

DESIGN PRINCIPLES:
  1. Immutability: TimeEntry values are never mutated after creation
  2. Precision: Hours use decimal.Decimal; 7.5 + 0.5 is exactly 8
  3. Type Safety: Distinct ID types keep employees, teams and companies apart
  4. Explicit absence: optional fields are pointers, nil means absent

SEE ALSO:
  - period.go: Fiscal windows and the mod week/month hierarchy
  - aggregate.go: Per-employee aggregation into that hierarchy
  - leave.go: Leave run consolidation
*/
package generic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Decimal quantity of labor time
// =============================================================================

type Hours struct {
	Value decimal.Decimal
}

func NewHours(value float64) Hours { return Hours{Value: decimal.NewFromFloat(value)} }
func NewHoursFromInt(value int) Hours {
	return Hours{Value: decimal.NewFromInt(int64(value))}
}

// ParseHours parses a decimal string such as "7.5".
func ParseHours(s string) (Hours, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Hours{}, err
	}
	return Hours{Value: d}, nil
}

func MustParseHours(s string) Hours {
	h, err := ParseHours(s)
	if err != nil {
		return Hours{}
	}
	return h
}

func ZeroHours() Hours { return Hours{Value: decimal.Zero} }

func (h Hours) Add(o Hours) Hours        { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours        { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) IsZero() bool             { return h.Value.IsZero() }
func (h Hours) IsNegative() bool         { return h.Value.IsNegative() }
func (h Hours) IsPositive() bool         { return h.Value.IsPositive() }
func (h Hours) Equal(o Hours) bool       { return h.Value.Equal(o.Value) }
func (h Hours) GreaterThan(o Hours) bool { return h.Value.GreaterThan(o.Value) }
func (h Hours) Float() float64           { f, _ := h.Value.Float64(); return f }
func (h Hours) String() string           { return h.Value.String() }

func (h Hours) MarshalJSON() ([]byte, error) {
	return h.Value.MarshalJSON()
}

func (h *Hours) UnmarshalJSON(b []byte) error {
	return h.Value.UnmarshalJSON(b)
}

// SumHours adds up a slice of hours.
func SumHours(values ...Hours) Hours {
	total := ZeroHours()
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type TeamID string
type SiteID string
type CompanyID string

// =============================================================================
// CHARGE CODES
// =============================================================================

// ChargeCode identifies what an hour of labor is billed against.
// It is only ever looked up from assignments and forecasts, never invented.
type ChargeCode struct {
	ChargeNumber string `json:"charge_number"`
	Extension    string `json:"extension"`
}

func (c ChargeCode) String() string {
	if c.Extension == "" {
		return c.ChargeNumber
	}
	return c.ChargeNumber + "/" + c.Extension
}

// Matches compares charge codes ignoring case and surrounding space.
func (c ChargeCode) Matches(o ChargeCode) bool {
	return strings.EqualFold(strings.TrimSpace(c.ChargeNumber), strings.TrimSpace(o.ChargeNumber)) &&
		strings.EqualFold(strings.TrimSpace(c.Extension), strings.TrimSpace(o.Extension))
}

// LaborCode is a charge code configured on an assignment or forecast.
type LaborCode = ChargeCode

// =============================================================================
// LEAVE CODE CONFIGURATION
// =============================================================================

// LeaveCodeRule is one entry of a team's ordered leave-recognition config.
// A cell is matched when Search occurs in it, ignoring case.
type LeaveCodeRule struct {
	Code    string `json:"code"`
	IsLeave bool   `json:"is_leave"`
	Search  string `json:"search"`
	// Hours overrides the team's standard daily hours for this code.
	Hours *Hours `json:"hours,omitempty"`
}

// HolidayCode is the leave code whose rows carry a holiday identifier.
const HolidayCode = "h"

// IsHoliday reports whether the rule's code is the holiday code.
func (r LeaveCodeRule) IsHoliday() bool {
	return strings.EqualFold(strings.TrimSpace(r.Code), HolidayCode)
}

// =============================================================================
// TIME ENTRY - Canonical parsed row
// =============================================================================

// WorkCode marks an entry as worked time rather than leave.
const WorkCode = "work"

type LeaveStatus string

const (
	StatusSubmitted LeaveStatus = "submitted"
	StatusApproved  LeaveStatus = "approved"
	StatusRejected  LeaveStatus = "rejected"
)

// TimeEntry is one canonical row of a timesheet. Immutable once created.
type TimeEntry struct {
	Date         TimePoint   `json:"date"`
	EmployeeID   EmployeeID  `json:"employee_id"`
	ChargeNumber string      `json:"charge_number"`
	Extension    string      `json:"extension"`
	Premium      string      `json:"premium"`
	Hours        Hours       `json:"hours"`
	Code         string      `json:"code"`
	Status       LeaveStatus `json:"status,omitempty"`
	Modified     bool        `json:"modified"`
	HolidayID    *string     `json:"holiday_id,omitempty"`
	Comment      *string     `json:"comment,omitempty"`
	Source       string      `json:"source,omitempty"`
}

// IsWork reports whether the entry is worked time.
func (e TimeEntry) IsWork() bool { return e.Code == WorkCode }

// IsLeave reports whether the entry is a leave event.
func (e TimeEntry) IsLeave() bool { return !e.IsWork() }

func (e TimeEntry) ChargeCode() ChargeCode {
	return ChargeCode{ChargeNumber: e.ChargeNumber, Extension: e.Extension}
}

// Key identifies an entry for recording. Work entries are unique per
// (employee, date, charge number, premium, extension); leave entries per
// (employee, date), so a corrected leave code replaces the earlier one.
func (e TimeEntry) Key() string {
	if e.IsWork() {
		return fmt.Sprintf("%s|%s|%s|%s|%s", e.EmployeeID, e.Date, e.ChargeNumber, e.Premium, e.Extension)
	}
	return fmt.Sprintf("%s|%s|leave", e.EmployeeID, e.Date)
}

// SameContent reports whether two entries with the same key carry the same data.
func (e TimeEntry) SameContent(o TimeEntry) bool {
	return e.Hours.Equal(o.Hours) &&
		e.Premium == o.Premium &&
		strings.EqualFold(e.Code, o.Code) &&
		strings.EqualFold(string(e.Status), string(o.Status)) &&
		optionalEqual(e.HolidayID, o.HolidayID)
}

func optionalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SortEntries returns a new slice ordered by (employee, date, charge number,
// extension, premium, code). The input is left untouched.
func SortEntries(entries []TimeEntry) []TimeEntry {
	out := make([]TimeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ChargeNumber != b.ChargeNumber {
			return a.ChargeNumber < b.ChargeNumber
		}
		if a.Extension != b.Extension {
			return a.Extension < b.Extension
		}
		if a.Premium != b.Premium {
			return a.Premium < b.Premium
		}
		return a.Code < b.Code
	})
	return out
}
