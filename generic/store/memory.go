// Package store provides in-memory directory and entry store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	employees   map[generic.EmployeeID]generic.Employee
	assignments map[generic.EmployeeID][]generic.Assignment
	forecasts   map[forecastKey][]generic.LaborCode
	leaveCodes  map[generic.TeamID]generic.TeamLeaveConfig
	windows     map[windowKey][]generic.FiscalWindow
	entries     map[string]generic.TimeEntry
}

type forecastKey struct {
	CompanyID generic.CompanyID
	Day       string
}

type windowKey struct {
	TeamID    generic.TeamID
	CompanyID generic.CompanyID
}

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[generic.EmployeeID]generic.Employee),
		assignments: make(map[generic.EmployeeID][]generic.Assignment),
		forecasts:   make(map[forecastKey][]generic.LaborCode),
		leaveCodes:  make(map[generic.TeamID]generic.TeamLeaveConfig),
		windows:     make(map[windowKey][]generic.FiscalWindow),
		entries:     make(map[string]generic.TimeEntry),
	}
}

var (
	_ generic.Directory  = (*Memory)(nil)
	_ generic.EntryStore = (*Memory)(nil)
)

// =============================================================================
// SEEDING
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) SaveAssignment(_ context.Context, a generic.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.assignments[a.EmployeeID]
	for i, existing := range list {
		if existing.ID == a.ID && a.ID != "" {
			list[i] = a
			return nil
		}
	}
	m.assignments[a.EmployeeID] = append(list, a)
	return nil
}

// SaveForecast replaces the labor codes forecast for a company on a day.
func (m *Memory) SaveForecast(_ context.Context, companyID generic.CompanyID, day generic.TimePoint, codes []generic.LaborCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecasts[forecastKey{CompanyID: companyID, Day: day.String()}] = append([]generic.LaborCode(nil), codes...)
	return nil
}

// SaveForecastRange applies the same forecast to every day in [from, to].
func (m *Memory) SaveForecastRange(ctx context.Context, companyID generic.CompanyID, from, to generic.TimePoint, codes []generic.LaborCode) error {
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if err := m.SaveForecast(ctx, companyID, d, codes); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) SaveLeaveCodes(_ context.Context, cfg generic.TeamLeaveConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.Rules = append([]generic.LeaveCodeRule(nil), cfg.Rules...)
	m.leaveCodes[cfg.TeamID] = cfg
	return nil
}

func (m *Memory) SaveWindow(_ context.Context, w generic.FiscalWindow) error {
	if err := w.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := windowKey{TeamID: w.TeamID, CompanyID: w.CompanyID}
	m.windows[k] = append(m.windows[k], w)
	return nil
}

// ReplaceWindows drops every window the team has and stores the given ones.
func (m *Memory) ReplaceWindows(_ context.Context, teamID generic.TeamID, windows []generic.FiscalWindow) error {
	for _, w := range windows {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.windows {
		if k.TeamID == teamID {
			delete(m.windows, k)
		}
	}
	for _, w := range windows {
		w.TeamID = teamID
		k := windowKey{TeamID: teamID, CompanyID: w.CompanyID}
		m.windows[k] = append(m.windows[k], w)
	}
	return nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees = make(map[generic.EmployeeID]generic.Employee)
	m.assignments = make(map[generic.EmployeeID][]generic.Assignment)
	m.forecasts = make(map[forecastKey][]generic.LaborCode)
	m.leaveCodes = make(map[generic.TeamID]generic.TeamLeaveConfig)
	m.windows = make(map[windowKey][]generic.FiscalWindow)
	m.entries = make(map[string]generic.TimeEntry)
	return nil
}

// =============================================================================
// DIRECTORIES
// =============================================================================

func (m *Memory) ActiveAssignments(_ context.Context, employeeID generic.EmployeeID, at generic.TimePoint) ([]generic.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.Assignment
	for _, a := range m.assignments[employeeID] {
		if a.Covers(at) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) Forecast(_ context.Context, companyID generic.CompanyID, at generic.TimePoint) ([]generic.LaborCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codes := m.forecasts[forecastKey{CompanyID: companyID, Day: at.String()}]
	return append([]generic.LaborCode(nil), codes...), nil
}

func (m *Memory) LeaveCodes(_ context.Context, teamID generic.TeamID) (generic.TeamLeaveConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.leaveCodes[teamID]
	if !ok {
		return generic.TeamLeaveConfig{}, generic.ErrTeamNotFound
	}
	cfg.Rules = append([]generic.LeaveCodeRule(nil), cfg.Rules...)
	return cfg, nil
}

func (m *Memory) Windows(_ context.Context, teamID generic.TeamID, companyID generic.CompanyID) ([]generic.FiscalWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	windows := append([]generic.FiscalWindow(nil), m.windows[windowKey{TeamID: teamID, CompanyID: companyID}]...)
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start.Before(windows[j].Start) })
	return windows, nil
}

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	return e, nil
}

func (m *Memory) EmployeesAtSite(_ context.Context, teamID generic.TeamID, siteID generic.SiteID) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.Employee
	for _, e := range m.employees {
		if e.TeamID == teamID && e.SiteID == siteID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]generic.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateEmployee(_ context.Context, id generic.EmployeeID, update generic.EmployeeUpdate) (generic.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	updated, err := e.Apply(update)
	if err != nil {
		return generic.Employee{}, err
	}
	m.employees[id] = updated
	return updated, nil
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func (m *Memory) EntriesByKey(_ context.Context, keys []string) (map[string]generic.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]generic.TimeEntry)
	for _, k := range keys {
		if e, ok := m.entries[k]; ok {
			out[k] = e
		}
	}
	return out, nil
}

// PutEntries writes all entries under one lock, so readers never see half a batch.
func (m *Memory) PutEntries(_ context.Context, entries []generic.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.Key()] = e
	}
	return nil
}

func (m *Memory) LoadEntries(_ context.Context, employees []generic.EmployeeID, from, to generic.TimePoint) ([]generic.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[generic.EmployeeID]bool, len(employees))
	for _, id := range employees {
		wanted[id] = true
	}

	var out []generic.TimeEntry
	for _, e := range m.entries {
		if len(wanted) > 0 && !wanted[e.EmployeeID] {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return generic.SortEntries(out), nil
}
