/*
handlers.go - HTTP API handlers for timesheet ingestion and reporting

PURPOSE:
  Exposes the timesheet engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the ingestion and report services.

ENDPOINTS:
  Timesheets:
    POST   /api/timesheets                 Upload spreadsheets (multipart "files")
                                           ?team_id=&company_id=&dry_run=

  Reports:
    GET    /api/reports                    Mod-period grid + leave runs
                                           ?team_id=&site_id=&company_id=&as_of=

  Employees:
    GET    /api/employees                  List all employees
    POST   /api/employees                  Create employee
    GET    /api/employees/{id}             Get employee details
    PATCH  /api/employees/{id}             Update one field
    GET    /api/employees/{id}/leave       Leave runs ?from=&to=

  Directory:
    POST   /api/assignments                Link employee to labor codes
    POST   /api/forecasts                  Labor codes open per company/day
    GET    /api/teams/{id}/config          Leave codes + standard hours
    PUT    /api/teams/{id}/config          Replace team configuration

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Reset and load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, validation failures, unknown fields
  - 404: Employee or team not found
  - 422: Request is well-formed but configuration is missing
         (no fiscal window, team without leave codes)
  - 500: Storage failures

  Unreadable files inside an upload are not errors: they are listed in the
  response's failures and the rest of the upload is recorded.

SECURITY NOTE:
  Currently NO authentication or authorization. Uploads are rate limited
  per client (see ratelimit.go).

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/warp/timesheet-engine/factory"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API reads and writes. Both store/sqlite.Store and
// generic/store.Memory satisfy it.
type Store interface {
	generic.Directory
	generic.EntryStore

	SaveEmployee(ctx context.Context, e generic.Employee) error
	ListEmployees(ctx context.Context) ([]generic.Employee, error)
	SaveAssignment(ctx context.Context, a generic.Assignment) error
	SaveForecastRange(ctx context.Context, companyID generic.CompanyID, from, to generic.TimePoint, codes []generic.LaborCode) error
	SaveLeaveCodes(ctx context.Context, cfg generic.TeamLeaveConfig) error
	ReplaceWindows(ctx context.Context, teamID generic.TeamID, windows []generic.FiscalWindow) error
	Reset(ctx context.Context) error
}

const (
	maxUploadBytes  = 32 << 20
	maxForecastDays = 366
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Ingest  *timesheet.IngestService
	Reports *timesheet.ReportService
	Teams   *factory.TeamFactory
	Logger  *slog.Logger

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ledger := generic.NewLedger(store)
	return &Handler{
		Store:    store,
		Ingest:   timesheet.NewIngestService(store, ledger, logger),
		Reports:  timesheet.NewReportService(store, ledger, logger),
		Teams:    factory.NewTeamFactory(),
		Logger:   logger,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// TIMESHEET ENDPOINTS
// =============================================================================

// UploadTimesheets parses and records the uploaded spreadsheets.
func (h *Handler) UploadTimesheets(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart upload", err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "At least one file is required in field \"files\"", nil)
		return
	}

	files := lo.Map(headers, func(fh *multipart.FileHeader, _ int) timesheet.SourceFile { return uploadedFile(fh) })

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	result, err := h.Ingest.Ingest(r.Context(), timesheet.IngestRequest{
		TeamID:    generic.TeamID(r.URL.Query().Get("team_id")),
		CompanyID: generic.CompanyID(r.URL.Query().Get("company_id")),
		Files:     files,
		DryRun:    dryRun,
	})
	if err != nil {
		writeDomainError(w, "Failed to ingest timesheets", err)
		return
	}

	writeJSON(w, http.StatusOK, toIngestResponse(result, dryRun))
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetReport builds the mod-period report for a site.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var asOf generic.TimePoint
	if s := q.Get("as_of"); s != "" {
		var err error
		if asOf, err = generic.ParseDay(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
	}

	report, err := h.Reports.Build(r.Context(), timesheet.ReportRequest{
		TeamID:    generic.TeamID(q.Get("team_id")),
		SiteID:    generic.SiteID(q.Get("site_id")),
		CompanyID: generic.CompanyID(q.Get("company_id")),
		AsOf:      asOf,
	})
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetEmployeeLeave returns an employee's consolidated leave in [from, to].
func (h *Handler) GetEmployeeLeave(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))

	from, err := generic.ParseDay(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := generic.ParseDay(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from", nil)
		return
	}

	months, err := h.Reports.LeaveFor(r.Context(), id, from, to)
	if err != nil {
		writeDomainError(w, "Failed to load leave", err)
		return
	}
	if months == nil {
		months = []generic.LeaveMonth{}
	}

	writeJSON(w, http.StatusOK, LeaveResponse{
		EmployeeID: string(id),
		From:       from,
		To:         to,
		TotalHours: generic.TotalLeaveHours(months),
		Months:     months,
	})
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates or replaces an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	emp := generic.Employee{
		ID:        generic.EmployeeID(strings.TrimSpace(req.ID)),
		Name:      strings.TrimSpace(req.Name),
		TeamID:    generic.TeamID(strings.TrimSpace(req.TeamID)),
		SiteID:    generic.SiteID(strings.TrimSpace(req.SiteID)),
		CompanyID: generic.CompanyID(strings.TrimSpace(req.CompanyID)),
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// UpdateEmployee changes one field of an employee.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	field, err := generic.ParseEmployeeField(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown employee field", err)
		return
	}

	emp, err := h.Store.UpdateEmployee(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")),
		generic.EmployeeUpdate{Field: field, Value: req.Value})
	if err != nil {
		writeDomainError(w, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// =============================================================================
// DIRECTORY ENDPOINTS
// =============================================================================

// CreateAssignment links an employee to labor codes.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	effectiveFrom, _ := generic.ParseDay(req.EffectiveFrom)
	a := generic.Assignment{
		ID:            req.ID,
		EmployeeID:    generic.EmployeeID(req.EmployeeID),
		CompanyID:     generic.CompanyID(req.CompanyID),
		LaborCodes:    toLaborCodes(req.LaborCodes),
		EffectiveFrom: effectiveFrom,
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if req.EffectiveTo != "" {
		to, _ := generic.ParseDay(req.EffectiveTo)
		if to.Before(effectiveFrom) {
			writeError(w, http.StatusBadRequest, "effective_to must not be before effective_from", nil)
			return
		}
		a.EffectiveTo = &to
	}

	if _, err := h.Store.GetEmployee(r.Context(), a.EmployeeID); err != nil {
		writeDomainError(w, "Failed to create assignment", err)
		return
	}
	if err := h.Store.SaveAssignment(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create assignment", err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// SaveForecast sets the labor codes open to a company over a date range.
func (h *Handler) SaveForecast(w http.ResponseWriter, r *http.Request) {
	var req SaveForecastRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	from, _ := generic.ParseDay(req.From)
	to, _ := generic.ParseDay(req.To)
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from", nil)
		return
	}
	if days := generic.DaysBetween(from, to) + 1; days > maxForecastDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Forecast range too long (%d days, max %d)", days, maxForecastDays), nil)
		return
	}

	codes := toLaborCodes(req.LaborCodes)
	if err := h.Store.SaveForecastRange(r.Context(), generic.CompanyID(req.CompanyID), from, to, codes); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save forecast", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"company_id":  req.CompanyID,
		"from":        from,
		"to":          to,
		"labor_codes": codes,
	})
}

// GetTeamConfig returns a team's leave codes and standard hours.
func (h *Handler) GetTeamConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.LeaveCodes(r.Context(), generic.TeamID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get team configuration", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Teams.ToJSON(factory.TeamConfig{Leave: cfg}))
}

// PutTeamConfig replaces a team's leave codes, standard hours and windows.
func (h *Handler) PutTeamConfig(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "id")

	var tj factory.TeamConfigJSON
	if err := json.NewDecoder(r.Body).Decode(&tj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if tj.TeamID == "" {
		tj.TeamID = teamID
	}
	if tj.TeamID != teamID {
		writeError(w, http.StatusBadRequest, "team_id does not match URL", nil)
		return
	}

	cfg, err := h.Teams.FromJSON(tj)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if err := h.saveTeamConfig(r.Context(), *cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save team configuration", err)
		return
	}

	writeJSON(w, http.StatusOK, h.Teams.ToJSON(*cfg))
}

// uploadedFile reads one multipart part. A part that cannot be read is
// reported as that file's failure; the rest of the upload still runs.
func uploadedFile(fh *multipart.FileHeader) timesheet.SourceFile {
	f, err := fh.Open()
	if err != nil {
		return timesheet.FileFromError(fh.Filename, fmt.Errorf("failed to open upload: %w", err))
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return timesheet.FileFromError(fh.Filename, fmt.Errorf("failed to read upload: %w", err))
	}
	return timesheet.FileFromBytes(fh.Filename, data)
}

func (h *Handler) saveTeamConfig(ctx context.Context, cfg factory.TeamConfig) error {
	if err := h.Store.SaveLeaveCodes(ctx, cfg.Leave); err != nil {
		return err
	}
	return h.Store.ReplaceWindows(ctx, cfg.Leave.TeamID, cfg.Windows)
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeBody decodes and validates a JSON body, writing a 400 on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeValidationError reports the first failing field as a 400.
func writeValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: "Validation failed", Details: err.Error()}

	var errs validator.ValidationErrors
	var ce *generic.ConfigError
	switch {
	case errors.As(err, &errs) && len(errs) > 0:
		ns := errs[0].Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		resp.Field = ns
		resp.Details = fmt.Sprintf("failed %q validation", errs[0].Tag())
	case errors.As(err, &ce):
		resp.Field = ce.Field
		resp.Details = ce.Err.Error()
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// writeDomainError maps engine errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var ce *generic.ConfigError
	resp := ErrorResponse{Error: message, Details: err.Error()}
	if errors.As(err, &ce) {
		resp.Field = ce.Field
	}

	switch {
	case errors.Is(err, generic.ErrMissingIdentifier), errors.Is(err, generic.ErrUnknownField):
		writeJSON(w, http.StatusBadRequest, resp)
	case generic.IsConfigError(err):
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case generic.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}
