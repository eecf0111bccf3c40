/*
report.go - Mod-period report assembly

PURPOSE:
  Answers "what did everyone at this site log during the current mod
  period?" by wiring the engine together:

  1. Validate identifiers (team, site, company)
  2. Pick the fiscal window containing AsOf
  3. Generate the month -> week hierarchy once
  4. Load the site's entries for the hierarchy's span
  5. Aggregate into the grid, consolidate leave into runs

  Steps 1 and 2 fail with a *generic.ConfigError; nothing is built without
  a window.
*/
package timesheet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"

	"github.com/warp/timesheet-engine/generic"
)

type ReportService struct {
	Directory generic.Directory
	Ledger    generic.EntryLedger
	Logger    *slog.Logger
}

func NewReportService(dir generic.Directory, ledger generic.EntryLedger, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{Directory: dir, Ledger: ledger, Logger: logger}
}

type ReportRequest struct {
	TeamID    generic.TeamID
	SiteID    generic.SiteID
	CompanyID generic.CompanyID
	// AsOf selects the window; zero means today.
	AsOf generic.TimePoint
}

type Report struct {
	TeamID    generic.TeamID                              `json:"team_id"`
	SiteID    generic.SiteID                              `json:"site_id"`
	CompanyID generic.CompanyID                           `json:"company_id"`
	Window    generic.FiscalWindow                        `json:"window"`
	Months    []generic.ModMonth                          `json:"months"`
	Employees []generic.Employee                          `json:"employees"`
	Grid      generic.Grid                                `json:"grid"`
	Leave     map[generic.EmployeeID][]generic.LeaveMonth `json:"leave"`
}

// Build assembles the report for the window containing req.AsOf.
func (s *ReportService) Build(ctx context.Context, req ReportRequest) (*Report, error) {
	switch {
	case req.TeamID == "":
		return nil, &generic.ConfigError{Field: "team_id", Err: generic.ErrMissingIdentifier}
	case req.SiteID == "":
		return nil, &generic.ConfigError{Field: "site_id", Err: generic.ErrMissingIdentifier}
	case req.CompanyID == "":
		return nil, &generic.ConfigError{Field: "company_id", Err: generic.ErrMissingIdentifier}
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = generic.Today()
	}

	windows, err := s.Directory.Windows(ctx, req.TeamID, req.CompanyID)
	if err != nil {
		return nil, err
	}
	window, ok := generic.FindWindow(windows, asOf)
	if !ok {
		return nil, &generic.ConfigError{Field: "fiscal_window", Err: generic.ErrNoFiscalWindow}
	}

	months, err := generic.GenerateModMonths(window)
	if err != nil {
		return nil, &generic.ConfigError{Field: "fiscal_window", Err: err}
	}

	employees, err := s.Directory.EmployeesAtSite(ctx, req.TeamID, req.SiteID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TeamID:    req.TeamID,
		SiteID:    req.SiteID,
		CompanyID: req.CompanyID,
		Window:    window,
		Months:    months,
		Employees: employees,
		Leave:     map[generic.EmployeeID][]generic.LeaveMonth{},
	}

	from, to, ok := generic.Span(months)
	if !ok || len(employees) == 0 {
		return report, nil
	}

	// An empty ID list means "everyone" to the ledger, so it is never passed.
	ids := lo.Map(employees, func(e generic.Employee, _ int) generic.EmployeeID { return e.ID })
	entries, err := s.Ledger.EntriesInRange(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	report.Grid = generic.Aggregate(entries, months)
	report.Leave = generic.ConsolidateLeaveByEmployee(entries, s.standardHours(ctx, req.TeamID))

	s.Logger.Info("report built",
		"team_id", req.TeamID,
		"site_id", req.SiteID,
		"window", window.String(),
		"weeks", len(generic.Flatten(months)),
		"rows", len(report.Grid.Rows))
	return report, nil
}

// LeaveFor consolidates one employee's leave in [from, to] using the
// standard hours of the employee's team.
func (s *ReportService) LeaveFor(ctx context.Context, employeeID generic.EmployeeID, from, to generic.TimePoint) ([]generic.LeaveMonth, error) {
	if to.Before(from) {
		return nil, generic.ErrInvalidWindow
	}
	emp, err := s.Directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	entries, err := s.Ledger.EntriesInRange(ctx, []generic.EmployeeID{emp.ID}, from, to)
	if err != nil {
		return nil, err
	}
	leave := lo.Filter(entries, func(e generic.TimeEntry, _ int) bool { return e.IsLeave() })
	return generic.ConsolidateLeave(leave, s.standardHours(ctx, emp.TeamID)), nil
}

func (s *ReportService) standardHours(ctx context.Context, teamID generic.TeamID) generic.StandardHours {
	cfg, err := s.Directory.LeaveCodes(ctx, teamID)
	if err != nil || cfg.StandardHours.IsZero() {
		if err != nil && !errors.Is(err, generic.ErrTeamNotFound) {
			s.Logger.Warn("leave config unavailable, using default standard hours", "team_id", teamID, "error", err)
		}
		return generic.FixedStandardHours(DefaultStandardHours)
	}
	return generic.FixedStandardHours(cfg.StandardHours)
}
