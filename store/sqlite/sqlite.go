/*
Package sqlite provides a SQLite-backed implementation of the directory and
entry store interfaces.

PURPOSE:
  Persists employees, assignments, forecasts, team leave configuration,
  fiscal windows and recorded time entries. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  generic.Directory:  Assignments, forecasts, leave codes, windows, employees
  generic.EntryStore: Recorded time entries keyed by TimeEntry.Key()

KEY TABLES:
  employees:       Roster with team, site and company
  assignments:     Employee-to-labor-code links (codes stored as JSON)
  forecasts:       Labor codes forecast per (company, day)
  team_config:     Standard daily hours per team
  leave_codes:     Ordered leave-code rules per team (position = priority)
  fiscal_windows:  Mod periods per (team, company)
  time_entries:    Recorded entries, one row per entry key

INDEXES:
  - idx_time_entries_employee_date: Report range scans (hot path)
  - idx_assignments_employee:       Charge code resolution
  - idx_forecasts_company_day:      Charge code resolution

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/timesheets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := generic.NewLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - generic/store.go: Directory interfaces
  - generic/ledger.go: Recording rules on top of EntryStore
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/timesheet-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ generic.Directory  = (*Store)(nil)
	_ generic.EntryStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		team_id TEXT NOT NULL DEFAULT '',
		site_id TEXT NOT NULL DEFAULT '',
		company_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_team_site
		ON employees(team_id, site_id);

	-- Assignments (labor codes an employee may charge)
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		labor_codes_json TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_employee
		ON assignments(employee_id, effective_from);

	-- Forecasts (labor codes open to a company on a day)
	CREATE TABLE IF NOT EXISTS forecasts (
		company_id TEXT NOT NULL,
		day TEXT NOT NULL,
		position INTEGER NOT NULL,
		charge_number TEXT NOT NULL,
		extension TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (company_id, day, position)
	);

	CREATE INDEX IF NOT EXISTS idx_forecasts_company_day
		ON forecasts(company_id, day);

	-- Team configuration
	CREATE TABLE IF NOT EXISTS team_config (
		team_id TEXT PRIMARY KEY,
		standard_hours TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Leave codes (ordered; first match wins)
	CREATE TABLE IF NOT EXISTS leave_codes (
		team_id TEXT NOT NULL REFERENCES team_config(team_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		code TEXT NOT NULL,
		is_leave BOOLEAN NOT NULL DEFAULT TRUE,
		search TEXT NOT NULL,
		hours TEXT,
		PRIMARY KEY (team_id, position)
	);

	-- Fiscal windows (mod periods)
	CREATE TABLE IF NOT EXISTS fiscal_windows (
		team_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		start_day TEXT NOT NULL,
		end_day TEXT NOT NULL,
		PRIMARY KEY (team_id, company_id, start_day)
	);

	-- Time entries (one row per entry key)
	CREATE TABLE IF NOT EXISTS time_entries (
		entry_key TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		day TEXT NOT NULL,
		charge_number TEXT NOT NULL DEFAULT '',
		extension TEXT NOT NULL DEFAULT '',
		premium TEXT NOT NULL DEFAULT '',
		hours TEXT NOT NULL,
		code TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		modified BOOLEAN NOT NULL DEFAULT FALSE,
		holiday_id TEXT,
		comment TEXT,
		source TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_date
		ON time_entries(employee_id, day);
	CREATE INDEX IF NOT EXISTS idx_time_entries_date
		ON time_entries(day);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn inside a database transaction. Caller holds s.mu.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// EMPLOYEE DIRECTORY (generic.EmployeeDirectory interface)
// =============================================================================

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveEmployee(ctx, s.db, emp)
}

func (s *Store) saveEmployee(ctx context.Context, db execer, emp generic.Employee) error {
	query := `
		INSERT INTO employees (id, name, team_id, site_id, company_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			team_id = excluded.team_id,
			site_id = excluded.site_id,
			company_id = excluded.company_id,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.TeamID, emp.SiteID, emp.CompanyID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getEmployee(ctx, id)
}

func (s *Store) getEmployee(ctx context.Context, id generic.EmployeeID) (generic.Employee, error) {
	var emp generic.Employee
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, team_id, site_id, company_id FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &emp.TeamID, &emp.SiteID, &emp.CompanyID)

	if errors.Is(err, sql.ErrNoRows) {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	if err != nil {
		return generic.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployees(ctx,
		"SELECT id, name, team_id, site_id, company_id FROM employees ORDER BY id",
	)
}

// EmployeesAtSite returns the team's employees at a site, ordered by ID.
func (s *Store) EmployeesAtSite(ctx context.Context, teamID generic.TeamID, siteID generic.SiteID) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployees(ctx, `
		SELECT id, name, team_id, site_id, company_id FROM employees
		WHERE team_id = ? AND site_id = ?
		ORDER BY id
	`, teamID, siteID)
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]generic.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []generic.Employee
	for rows.Next() {
		var emp generic.Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.TeamID, &emp.SiteID, &emp.CompanyID); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// UpdateEmployee applies one tagged field update and returns the result.
func (s *Store) UpdateEmployee(ctx context.Context, id generic.EmployeeID, update generic.EmployeeUpdate) (generic.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, err := s.getEmployee(ctx, id)
	if err != nil {
		return generic.Employee{}, err
	}
	updated, err := emp.Apply(update)
	if err != nil {
		return generic.Employee{}, err
	}
	if err := s.saveEmployee(ctx, s.db, updated); err != nil {
		return generic.Employee{}, err
	}
	return updated, nil
}

// =============================================================================
// ASSIGNMENT DIRECTORY (generic.AssignmentDirectory interface)
// =============================================================================

// SaveAssignment inserts or replaces an assignment by ID.
func (s *Store) SaveAssignment(ctx context.Context, a generic.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codesJSON, err := json.Marshal(a.LaborCodes)
	if err != nil {
		return fmt.Errorf("failed to encode labor codes: %w", err)
	}

	var effectiveTo sql.NullString
	if a.EffectiveTo != nil {
		effectiveTo = nullString(a.EffectiveTo.String())
	}

	query := `
		INSERT INTO assignments
		(id, employee_id, company_id, labor_codes_json, effective_from, effective_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			company_id = excluded.company_id,
			labor_codes_json = excluded.labor_codes_json,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to
	`

	_, err = s.db.ExecContext(ctx, query,
		a.ID, a.EmployeeID, a.CompanyID, string(codesJSON),
		a.EffectiveFrom.String(), effectiveTo,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

// ActiveAssignments returns the employee's assignments covering the day.
func (s *Store) ActiveAssignments(ctx context.Context, employeeID generic.EmployeeID, at generic.TimePoint) ([]generic.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// ISO days compare correctly as text.
	query := `
		SELECT id, employee_id, company_id, labor_codes_json, effective_from, effective_to
		FROM assignments
		WHERE employee_id = ?
		  AND effective_from <= ?
		  AND (effective_to IS NULL OR effective_to >= ?)
		ORDER BY effective_from ASC, created_at ASC
	`

	day := at.String()
	rows, err := s.db.QueryContext(ctx, query, employeeID, day, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []generic.Assignment
	for rows.Next() {
		var (
			a             generic.Assignment
			codesJSON     string
			effectiveFrom string
			effectiveTo   sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.CompanyID, &codesJSON, &effectiveFrom, &effectiveTo); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if err := json.Unmarshal([]byte(codesJSON), &a.LaborCodes); err != nil {
			return nil, fmt.Errorf("assignment %s: bad labor codes: %w", a.ID, err)
		}
		if a.EffectiveFrom, err = generic.ParseDay(effectiveFrom); err != nil {
			return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		if effectiveTo.Valid {
			to, err := generic.ParseDay(effectiveTo.String)
			if err != nil {
				return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
			}
			a.EffectiveTo = &to
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// =============================================================================
// FORECAST DIRECTORY (generic.ForecastDirectory interface)
// =============================================================================

// SaveForecast replaces the labor codes forecast for a company on a day.
func (s *Store) SaveForecast(ctx context.Context, companyID generic.CompanyID, day generic.TimePoint, codes []generic.LaborCode) error {
	return s.SaveForecastRange(ctx, companyID, day, day, codes)
}

// SaveForecastRange applies the same forecast to every day in [from, to].
func (s *Store) SaveForecastRange(ctx context.Context, companyID generic.CompanyID, from, to generic.TimePoint, codes []generic.LaborCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM forecasts WHERE company_id = ? AND day = ?",
				companyID, d.String(),
			); err != nil {
				return fmt.Errorf("failed to clear forecast: %w", err)
			}
			for i, c := range codes {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO forecasts (company_id, day, position, charge_number, extension)
					VALUES (?, ?, ?, ?, ?)
				`, companyID, d.String(), i, c.ChargeNumber, c.Extension); err != nil {
					return fmt.Errorf("failed to save forecast: %w", err)
				}
			}
		}
		return nil
	})
}

// Forecast returns the labor codes available to the company on the day.
func (s *Store) Forecast(ctx context.Context, companyID generic.CompanyID, at generic.TimePoint) ([]generic.LaborCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT charge_number, extension FROM forecasts
		WHERE company_id = ? AND day = ?
		ORDER BY position ASC
	`, companyID, at.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast: %w", err)
	}
	defer rows.Close()

	var codes []generic.LaborCode
	for rows.Next() {
		var c generic.LaborCode
		if err := rows.Scan(&c.ChargeNumber, &c.Extension); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// =============================================================================
// LEAVE CODE DIRECTORY (generic.LeaveCodeDirectory interface)
// =============================================================================

// SaveLeaveCodes replaces a team's standard hours and ordered rules.
func (s *Store) SaveLeaveCodes(ctx context.Context, cfg generic.TeamLeaveConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO team_config (team_id, standard_hours, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(team_id) DO UPDATE SET
				standard_hours = excluded.standard_hours,
				updated_at = excluded.updated_at
		`, cfg.TeamID, cfg.StandardHours.String(), time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to save team config: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM leave_codes WHERE team_id = ?", cfg.TeamID); err != nil {
			return fmt.Errorf("failed to clear leave codes: %w", err)
		}
		for i, r := range cfg.Rules {
			var hours sql.NullString
			if r.Hours != nil {
				hours = nullString(r.Hours.String())
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO leave_codes (team_id, position, code, is_leave, search, hours)
				VALUES (?, ?, ?, ?, ?, ?)
			`, cfg.TeamID, i, r.Code, r.IsLeave, r.Search, hours); err != nil {
				return fmt.Errorf("failed to save leave code %q: %w", r.Code, err)
			}
		}
		return nil
	})
}

// LeaveCodes returns ErrTeamNotFound when the team has no configuration.
func (s *Store) LeaveCodes(ctx context.Context, teamID generic.TeamID) (generic.TeamLeaveConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := generic.TeamLeaveConfig{TeamID: teamID}

	var standard string
	err := s.db.QueryRowContext(ctx,
		"SELECT standard_hours FROM team_config WHERE team_id = ?", teamID,
	).Scan(&standard)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, generic.ErrTeamNotFound
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to get team config: %w", err)
	}
	if cfg.StandardHours, err = generic.ParseHours(standard); err != nil {
		return cfg, fmt.Errorf("team %s: bad standard hours: %w", teamID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, is_leave, search, hours FROM leave_codes
		WHERE team_id = ?
		ORDER BY position ASC
	`, teamID)
	if err != nil {
		return cfg, fmt.Errorf("failed to query leave codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r     generic.LeaveCodeRule
			hours sql.NullString
		)
		if err := rows.Scan(&r.Code, &r.IsLeave, &r.Search, &hours); err != nil {
			return cfg, fmt.Errorf("failed to scan leave code: %w", err)
		}
		if hours.Valid {
			h, err := generic.ParseHours(hours.String)
			if err != nil {
				return cfg, fmt.Errorf("leave code %q: bad hours: %w", r.Code, err)
			}
			r.Hours = &h
		}
		cfg.Rules = append(cfg.Rules, r)
	}
	return cfg, rows.Err()
}

// =============================================================================
// FISCAL WINDOW DIRECTORY (generic.FiscalWindowDirectory interface)
// =============================================================================

// SaveWindow adds or replaces a window keyed by (team, company, start).
func (s *Store) SaveWindow(ctx context.Context, w generic.FiscalWindow) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveWindow(ctx, s.db, w)
}

func (s *Store) saveWindow(ctx context.Context, db execer, w generic.FiscalWindow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO fiscal_windows (team_id, company_id, start_day, end_day)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(team_id, company_id, start_day) DO UPDATE SET
			end_day = excluded.end_day
	`, w.TeamID, w.CompanyID, w.Start.String(), w.End.String())
	if err != nil {
		return fmt.Errorf("failed to save fiscal window: %w", err)
	}
	return nil
}

// ReplaceWindows drops every window the team has and stores the given ones.
func (s *Store) ReplaceWindows(ctx context.Context, teamID generic.TeamID, windows []generic.FiscalWindow) error {
	for _, w := range windows {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fiscal_windows WHERE team_id = ?", teamID); err != nil {
			return fmt.Errorf("failed to clear fiscal windows: %w", err)
		}
		for _, w := range windows {
			w.TeamID = teamID
			if err := s.saveWindow(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// Windows returns the team's windows for a company, ordered by start.
func (s *Store) Windows(ctx context.Context, teamID generic.TeamID, companyID generic.CompanyID) ([]generic.FiscalWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT start_day, end_day FROM fiscal_windows
		WHERE team_id = ? AND company_id = ?
		ORDER BY start_day ASC
	`, teamID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fiscal windows: %w", err)
	}
	defer rows.Close()

	var windows []generic.FiscalWindow
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan fiscal window: %w", err)
		}
		w := generic.FiscalWindow{TeamID: teamID, CompanyID: companyID}
		if w.Start, err = generic.ParseDay(start); err != nil {
			return nil, err
		}
		if w.End, err = generic.ParseDay(end); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// =============================================================================
// ENTRY STORE (generic.EntryStore interface)
// =============================================================================

const entryColumns = `
	entry_key, employee_id, day, charge_number, extension, premium, hours,
	code, status, modified, holiday_id, comment, source
`

// EntriesByKey returns stored entries for the given keys.
func (s *Store) EntriesByKey(ctx context.Context, keys []string) (map[string]generic.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]generic.TimeEntry, len(keys))
	// Stay well under SQLite's bound parameter limit.
	const batch = 500
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		chunk := keys[start:end]

		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		query := "SELECT " + entryColumns + " FROM time_entries WHERE entry_key IN (" + placeholders(len(chunk)) + ")"

		entries, err := s.queryEntries(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for k, e := range entries {
			out[k] = e
		}
	}
	return out, nil
}

// PutEntries inserts or replaces entries in a single transaction.
func (s *Store) PutEntries(ctx context.Context, entries []generic.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO time_entries (` + entryColumns + `, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_key) DO UPDATE SET
			charge_number = excluded.charge_number,
			extension = excluded.extension,
			premium = excluded.premium,
			hours = excluded.hours,
			code = excluded.code,
			status = excluded.status,
			modified = excluded.modified,
			holiday_id = excluded.holiday_id,
			comment = excluded.comment,
			source = excluded.source,
			recorded_at = excluded.recorded_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare entry insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			_, err := stmt.ExecContext(ctx,
				e.Key(), e.EmployeeID, e.Date.String(), e.ChargeNumber, e.Extension,
				e.Premium, e.Hours.String(), e.Code, string(e.Status), e.Modified,
				optionalString(e.HolidayID), optionalString(e.Comment), e.Source,
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to put entry %s: %w", e.Key(), err)
			}
		}
		return nil
	})
}

// LoadEntries returns entries for the employees in [from, to], sorted.
// An empty employee list means all employees.
func (s *Store) LoadEntries(ctx context.Context, employees []generic.EmployeeID, from, to generic.TimePoint) ([]generic.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + entryColumns + " FROM time_entries WHERE day >= ? AND day <= ?"
	args := []any{from.String(), to.String()}
	if len(employees) > 0 {
		query += " AND employee_id IN (" + placeholders(len(employees)) + ")"
		for _, id := range employees {
			args = append(args, id)
		}
	}

	byKey, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	entries := make([]generic.TimeEntry, 0, len(byKey))
	for _, e := range byKey {
		entries = append(entries, e)
	}
	return generic.SortEntries(entries), nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) (map[string]generic.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]generic.TimeEntry)
	for rows.Next() {
		key, e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out[key] = e
	}
	return out, rows.Err()
}

func scanEntry(rows *sql.Rows) (string, generic.TimeEntry, error) {
	var (
		e         generic.TimeEntry
		key       string
		day       string
		hours     string
		status    string
		holidayID sql.NullString
		comment   sql.NullString
	)

	err := rows.Scan(
		&key, &e.EmployeeID, &day, &e.ChargeNumber, &e.Extension, &e.Premium,
		&hours, &e.Code, &status, &e.Modified, &holidayID, &comment, &e.Source,
	)
	if err != nil {
		return "", e, fmt.Errorf("failed to scan entry: %w", err)
	}

	if e.Date, err = generic.ParseDay(day); err != nil {
		return "", e, fmt.Errorf("entry %s: %w", key, err)
	}
	if e.Hours, err = generic.ParseHours(hours); err != nil {
		return "", e, fmt.Errorf("entry %s: bad hours: %w", key, err)
	}
	e.Status = generic.LeaveStatus(status)
	if holidayID.Valid {
		e.HolidayID = &holidayID.String
	}
	if comment.Valid {
		e.Comment = &comment.String
	}
	return key, e, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for demo/testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"time_entries", "fiscal_windows", "leave_codes", "team_config",
		"forecasts", "assignments", "employees",
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func optionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
