/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built scenarios that populate the store with a realistic
	team, its directory data and a month of uploaded timesheets. Each
	scenario exercises a specific part of the engine.

AVAILABLE SCENARIOS:
	january-close:    One site, Wednesday-start window, vacation run + holiday
	corrected-upload: january-close, then a corrected file for one employee
	mixed-formats:    CSV and HTML exports plus one unreadable file

HOW SCENARIOS WORK:
 1. Reset store (clear all data)
 2. Save team leave codes + fiscal windows via factory
 3. Create employees, assignments and forecasts
 4. Generate spreadsheets in memory
 5. Ingest them exactly as an upload would

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "january-close"}

	GET /api/reports?team_id=ops&site_id=north&company_id=acme&as_of=2025-01-15

NOTE:
	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Ingestion and report handlers
  - factory/team.go: Team configuration JSON
*/
package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "january-close",
		Name:        "January Close",
		Description: "Three employees at one site, window starting on a Wednesday, vacation run and New Year holiday",
	},
	{
		ID:          "corrected-upload",
		Name:        "Corrected Upload",
		Description: "January close, then a corrected timesheet that replaces one employee's entries",
	},
	{
		ID:          "mixed-formats",
		Name:        "Mixed Formats",
		Description: "CSV and HTML exports ingested together with an unreadable file that fails alone",
	},
}

var errUnknownScenario = errors.New("unknown scenario")

const (
	demoTeam    generic.TeamID    = "ops"
	demoSite    generic.SiteID    = "north"
	demoCompany generic.CompanyID = "acme"
)

var demoTeamConfig = `{
	"team_id": "ops",
	"standard_hours": 8,
	"fiscal_windows": [
		{"company_id": "acme", "start": "2025-01-01", "end": "2025-01-31"},
		{"company_id": "acme", "start": "2025-02-01", "end": "2025-02-28"}
	]
}`

var demoHeader = []string{
	"Date", "Personnel ID", "Charge Number", "Premium", "Extension", "Hours", "Description", "Explanation", "Status",
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, map[string]any{"scenario": s})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
}

// LoadScenario resets the store and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	results, err := h.RunScenario(r.Context(), req.ScenarioID)
	if err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusNotFound, "Scenario not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	uploads := make([]IngestResponse, len(results))
	for i, res := range results {
		uploads[i] = toIngestResponse(res, false)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"scenario": req.ScenarioID,
		"uploads":  uploads,
	})
}

// RunScenario resets the store, seeds it and ingests the scenario's files.
// It returns one result per simulated upload.
func (h *Handler) RunScenario(ctx context.Context, id string) ([]*timesheet.IngestResult, error) {
	var batches [][]timesheet.SourceFile
	switch id {
	case "january-close":
		batches = [][]timesheet.SourceFile{januaryFiles()}
	case "corrected-upload":
		batches = [][]timesheet.SourceFile{januaryFiles(), correctedFiles()}
	case "mixed-formats":
		batches = [][]timesheet.SourceFile{mixedFormatFiles()}
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownScenario, id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}
	if err := h.seedDemoDirectory(ctx); err != nil {
		return nil, err
	}

	var results []*timesheet.IngestResult
	for _, files := range batches {
		res, err := h.Ingest.Ingest(ctx, timesheet.IngestRequest{
			TeamID:    demoTeam,
			CompanyID: demoCompany,
			Files:     files,
		})
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", "scenario", id, "uploads", len(results))
	return results, nil
}

// =============================================================================
// DIRECTORY SEED
// =============================================================================

func (h *Handler) seedDemoDirectory(ctx context.Context) error {
	cfg, err := h.Teams.ParseTeamConfig(demoTeamConfig)
	if err != nil {
		return fmt.Errorf("demo team config: %w", err)
	}
	if err := h.saveTeamConfig(ctx, *cfg); err != nil {
		return err
	}

	employees := []generic.Employee{
		{ID: "E100", Name: "Avery Stone", TeamID: demoTeam, SiteID: demoSite, CompanyID: demoCompany},
		{ID: "E200", Name: "Jordan Blake", TeamID: demoTeam, SiteID: demoSite, CompanyID: demoCompany},
		{ID: "E300", Name: "Riley Chen", TeamID: demoTeam, SiteID: demoSite, CompanyID: demoCompany},
		{ID: "E400", Name: "Sam Ortiz", TeamID: demoTeam, SiteID: "south", CompanyID: demoCompany},
	}
	start := generic.NewTimePoint(2024, time.December, 1)
	for _, e := range employees {
		if err := h.Store.SaveEmployee(ctx, e); err != nil {
			return err
		}
		if err := h.Store.SaveAssignment(ctx, generic.Assignment{
			ID:         "demo-" + string(e.ID),
			EmployeeID: e.ID,
			CompanyID:  demoCompany,
			LaborCodes: []generic.LaborCode{
				{ChargeNumber: "4100-OPS", Extension: "010"},
				{ChargeNumber: "4100-OPS", Extension: "020"},
			},
			EffectiveFrom: start,
		}); err != nil {
			return err
		}
	}

	return h.Store.SaveForecastRange(ctx, demoCompany, start, generic.NewTimePoint(2025, time.March, 31),
		[]generic.LaborCode{
			{ChargeNumber: "4100-OPS", Extension: "020"},
			{ChargeNumber: "4100-OPS", Extension: "010"},
		})
}

// =============================================================================
// GENERATED TIMESHEETS
// =============================================================================

// januaryFiles builds one workbook per employee for January 2025.
func januaryFiles() []timesheet.SourceFile {
	var files []timesheet.SourceFile
	for _, emp := range []string{"E100", "E200", "E300"} {
		var rows [][]string
		for d := generic.NewTimePoint(2025, time.January, 1); d.Month() == time.January; d = d.AddDays(1) {
			if d.IsWeekend() {
				continue
			}
			rows = append(rows, januaryRow(emp, d))
		}
		rows = append(rows, []string{"", emp, "", "", "", "", "", "Monthly total", ""})
		files = append(files, demoWorkbook(fmt.Sprintf("%s-2025-01.xlsx", emp), rows))
	}
	return files
}

func januaryRow(emp string, d generic.TimePoint) []string {
	date := d.String()
	switch {
	case d.Day() == 1:
		return []string{date, emp, "4100-OPS", "", "010", "Holiday", "New Year", "New Year's Day f1", "approved"}
	case emp == "E100" && d.Day() >= 13 && d.Day() <= 17:
		return []string{date, emp, "4100-OPS", "", "010", "Vacation", "PTO", "Ski trip", "approved"}
	case emp == "E200" && d.Day() == 21:
		return []string{date, emp, "4100-OPS", "", "010", "Half", "PTO", "Appointment", ""}
	case emp == "E200" && d.Day() == 22:
		return []string{date, emp, "4100-OPS", "", "010", "Sick", "Out", "Flu", ""}
	case emp == "E300" && d.Day() == 30:
		// Extension 999 is not forecast; resolves to a sibling extension.
		return []string{date, emp, "4100-OPS", "", "999", "8", "Support", "Misfiled", ""}
	}
	ext := "010"
	if d.Weekday() == time.Friday {
		ext = "020"
	}
	return []string{date, emp, "4100-OPS", "", ext, "8", "Support", "Queue work", ""}
}

// correctedFiles resubmits E200's third week with different hours.
func correctedFiles() []timesheet.SourceFile {
	var rows [][]string
	for d := generic.NewTimePoint(2025, time.January, 13); d.Day() <= 17; d = d.AddDays(1) {
		rows = append(rows, []string{d.String(), "E200", "4100-OPS", "", "010", "6", "Support", "Corrected", ""})
	}
	return []timesheet.SourceFile{demoWorkbook("E200-2025-01-corrected.xlsx", rows)}
}

// mixedFormatFiles exercises the CSV and HTML readers next to a broken file.
func mixedFormatFiles() []timesheet.SourceFile {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(demoHeader)
	for d := 6; d <= 10; d++ {
		_ = w.Write([]string{fmt.Sprintf("01/%02d/2025", d), "E100", "4100-OPS", "", "010", "8", "Support", "CSV export", ""})
	}
	w.Flush()

	var sb strings.Builder
	sb.WriteString("<html><body><table><tr>")
	for _, h := range demoHeader {
		sb.WriteString("<th>" + html.EscapeString(h) + "</th>")
	}
	sb.WriteString("</tr>")
	for d := 6; d <= 10; d++ {
		cells := []string{fmt.Sprintf("2025-01-%02d", d), "E200", "4100-OPS", "", "020", "7.5", "Support", "HTML export", ""}
		sb.WriteString("<tr>")
		for _, c := range cells {
			sb.WriteString("<td>" + html.EscapeString(c) + "</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table></body></html>")

	return []timesheet.SourceFile{
		timesheet.FileFromBytes("E100-week2.csv", buf.Bytes()),
		timesheet.FileFromBytes("E200-week2.html", []byte(sb.String())),
		timesheet.FileFromBytes("E300-week2.xlsx", []byte("not a workbook")),
	}
}

func demoWorkbook(name string, rows [][]string) timesheet.SourceFile {
	f := excelize.NewFile()
	defer f.Close()

	all := append([][]string{demoHeader}, rows...)
	for i, r := range all {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := make([]interface{}, len(r))
		for j, v := range r {
			values[j] = v
		}
		_ = f.SetSheetRow("Sheet1", cell, &values)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return timesheet.FileFromBytes(name, nil)
	}
	return timesheet.FileFromBytes(name, buf.Bytes())
}
