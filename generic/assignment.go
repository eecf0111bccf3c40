/*
assignment.go - Employee assignments and charge-code resolution

PURPOSE:
  A timesheet row names a charge number, but the billable charge code must
  come from what the employee is actually assigned to AND what the company
  forecast makes available that day. This file handles:
  1. Linking employees to labor codes over a date range (Assignment)
  2. Intersecting assignment codes with the day's forecast (ChargeCodeResolver)

RESOLUTION ORDER:
  Codes are taken from active assignments in assignment order, kept only if
  the forecast for (company, date) also lists them. Among those:
  - an exact (charge number, extension) match with the row wins
  - otherwise the first code with the row's charge number
  - otherwise the first code in the intersection
  No intersection means the row cannot be billed and is dropped.

EXAMPLE:
  resolver := &ChargeCodeResolver{Assignments: dir, Forecasts: dir}
  code, ok, err := resolver.Resolve(ctx, "emp-1", "acme", day, hint)

SEE ALSO:
  - store.go: AssignmentDirectory and ForecastDirectory
  - timesheet/parser.go: the only caller during ingestion
*/
package generic

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// =============================================================================
// ASSIGNMENT - Links employee to labor codes over time
// =============================================================================

type Assignment struct {
	ID         string      `json:"id"`
	EmployeeID EmployeeID  `json:"employee_id"`
	CompanyID  CompanyID   `json:"company_id"`
	LaborCodes []LaborCode `json:"labor_codes"`

	// When this assignment is effective
	EffectiveFrom TimePoint  `json:"effective_from"`
	EffectiveTo   *TimePoint `json:"effective_to,omitempty"` // nil = still active
}

// Covers returns true if the assignment is active on the given day.
func (a Assignment) Covers(at TimePoint) bool {
	if at.Before(a.EffectiveFrom) {
		return false
	}
	if a.EffectiveTo != nil && at.After(*a.EffectiveTo) {
		return false
	}
	return true
}

// =============================================================================
// CHARGE-CODE RESOLVER
// =============================================================================

type ChargeCodeResolver struct {
	Assignments AssignmentDirectory
	Forecasts   ForecastDirectory
}

// Resolve finds the charge code an employee's hours on a day are billed to.
// The bool is false when nothing is both assigned and forecast.
func (r *ChargeCodeResolver) Resolve(
	ctx context.Context,
	employeeID EmployeeID,
	companyID CompanyID,
	at TimePoint,
	hint ChargeCode,
) (ChargeCode, bool, error) {
	assignments, err := r.Assignments.ActiveAssignments(ctx, employeeID, at)
	if err != nil {
		return ChargeCode{}, false, fmt.Errorf("load assignments for %s: %w", employeeID, err)
	}

	forecast, err := r.Forecasts.Forecast(ctx, companyID, at)
	if err != nil {
		return ChargeCode{}, false, fmt.Errorf("load forecast for %s on %s: %w", companyID, at, err)
	}

	code, ok := pickChargeCode(assignments, forecast, at, hint)
	return code, ok, nil
}

func pickChargeCode(assignments []Assignment, forecast []LaborCode, at TimePoint, hint ChargeCode) (ChargeCode, bool) {
	var candidates []LaborCode
	for _, a := range assignments {
		if !a.Covers(at) {
			continue
		}
		for _, lc := range a.LaborCodes {
			if forecastHas(forecast, lc) {
				candidates = append(candidates, lc)
			}
		}
	}
	if len(candidates) == 0 {
		return ChargeCode{}, false
	}

	for _, c := range candidates {
		if c.Matches(hint) {
			return c, true
		}
	}
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.ChargeNumber), strings.TrimSpace(hint.ChargeNumber)) {
			return c, true
		}
	}
	return candidates[0], true
}

func forecastHas(forecast []LaborCode, code LaborCode) bool {
	for _, f := range forecast {
		if f.Matches(code) {
			return true
		}
	}
	return false
}

// =============================================================================
// SNAPSHOT RESOLVER - Memoizes directory lookups within one parse
// =============================================================================

// SnapshotResolver caches assignment and forecast lookups so a sheet with
// hundreds of rows for the same people and days hits the directories once
// per (employee, day) and (company, day). Safe for concurrent use.
type SnapshotResolver struct {
	Inner ChargeCodeResolver

	mu          sync.Mutex
	assignments map[assignmentKey][]Assignment
	forecasts   map[forecastKey][]LaborCode
}

type assignmentKey struct {
	EmployeeID EmployeeID
	Day        string
}

type forecastKey struct {
	CompanyID CompanyID
	Day       string
}

func NewSnapshotResolver(assignments AssignmentDirectory, forecasts ForecastDirectory) *SnapshotResolver {
	return &SnapshotResolver{
		Inner:       ChargeCodeResolver{Assignments: assignments, Forecasts: forecasts},
		assignments: make(map[assignmentKey][]Assignment),
		forecasts:   make(map[forecastKey][]LaborCode),
	}
}

func (s *SnapshotResolver) Resolve(
	ctx context.Context,
	employeeID EmployeeID,
	companyID CompanyID,
	at TimePoint,
	hint ChargeCode,
) (ChargeCode, bool, error) {
	assignments, err := s.activeAssignments(ctx, employeeID, at)
	if err != nil {
		return ChargeCode{}, false, err
	}
	forecast, err := s.forecast(ctx, companyID, at)
	if err != nil {
		return ChargeCode{}, false, err
	}
	code, ok := pickChargeCode(assignments, forecast, at, hint)
	return code, ok, nil
}

func (s *SnapshotResolver) activeAssignments(ctx context.Context, employeeID EmployeeID, at TimePoint) ([]Assignment, error) {
	k := assignmentKey{EmployeeID: employeeID, Day: at.String()}
	s.mu.Lock()
	cached, ok := s.assignments[k]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	loaded, err := s.Inner.Assignments.ActiveAssignments(ctx, employeeID, at)
	if err != nil {
		return nil, fmt.Errorf("load assignments for %s: %w", employeeID, err)
	}
	s.mu.Lock()
	s.assignments[k] = loaded
	s.mu.Unlock()
	return loaded, nil
}

func (s *SnapshotResolver) forecast(ctx context.Context, companyID CompanyID, at TimePoint) ([]LaborCode, error) {
	k := forecastKey{CompanyID: companyID, Day: at.String()}
	s.mu.Lock()
	cached, ok := s.forecasts[k]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	loaded, err := s.Inner.Forecasts.Forecast(ctx, companyID, at)
	if err != nil {
		return nil, fmt.Errorf("load forecast for %s on %s: %w", companyID, at, err)
	}
	s.mu.Lock()
	s.forecasts[k] = loaded
	s.mu.Unlock()
	return loaded, nil
}

// Resolver is satisfied by ChargeCodeResolver and SnapshotResolver.
type Resolver interface {
	Resolve(ctx context.Context, employeeID EmployeeID, companyID CompanyID, at TimePoint, hint ChargeCode) (ChargeCode, bool, error)
}

var (
	_ Resolver = (*ChargeCodeResolver)(nil)
	_ Resolver = (*SnapshotResolver)(nil)
)
