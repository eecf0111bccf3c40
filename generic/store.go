/*
store.go - Directory interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the engine and whatever holds employees,
  assignments, forecasts and team configuration. The engine never opens a
  connection itself; callers inject implementations of these interfaces.

KEY INTERFACES:
  AssignmentDirectory:   Active assignments for (employee, day)
  ForecastDirectory:     Labor codes forecast for (company, day)
  LeaveCodeDirectory:    Ordered leave-code rules + standard hours per team
  FiscalWindowDirectory: Configured mod periods per (team, company)
  EmployeeDirectory:     Employee lookup, site roster and tagged updates

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for tests and dry runs

SEE ALSO:
  - ledger.go: EntryLedger, the one write-heavy interface
*/
package generic

import "context"

// =============================================================================
// DIRECTORIES - Read-mostly collaborators
// =============================================================================

type AssignmentDirectory interface {
	// ActiveAssignments returns the employee's assignments covering the day.
	ActiveAssignments(ctx context.Context, employeeID EmployeeID, at TimePoint) ([]Assignment, error)
}

type ForecastDirectory interface {
	// Forecast returns the labor codes available to the company on the day.
	Forecast(ctx context.Context, companyID CompanyID, at TimePoint) ([]LaborCode, error)
}

// TeamLeaveConfig is a team's leave recognition setup.
type TeamLeaveConfig struct {
	TeamID        TeamID          `json:"team_id"`
	StandardHours Hours           `json:"standard_hours"`
	Rules         []LeaveCodeRule `json:"rules"` // order matters: first match wins
}

type LeaveCodeDirectory interface {
	// LeaveCodes returns ErrTeamNotFound when the team has no configuration.
	LeaveCodes(ctx context.Context, teamID TeamID) (TeamLeaveConfig, error)
}

type FiscalWindowDirectory interface {
	Windows(ctx context.Context, teamID TeamID, companyID CompanyID) ([]FiscalWindow, error)
}

type EmployeeDirectory interface {
	// GetEmployee returns ErrEmployeeNotFound for unknown IDs.
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)
	EmployeesAtSite(ctx context.Context, teamID TeamID, siteID SiteID) ([]Employee, error)
	UpdateEmployee(ctx context.Context, id EmployeeID, update EmployeeUpdate) (Employee, error)
}

// Directory bundles every lookup the ingestion and report services need.
type Directory interface {
	AssignmentDirectory
	ForecastDirectory
	LeaveCodeDirectory
	FiscalWindowDirectory
	EmployeeDirectory
}
