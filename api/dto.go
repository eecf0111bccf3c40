/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Employee:    EmployeeDTO, CreateEmployeeRequest, UpdateEmployeeRequest
  Directory:   CreateAssignmentRequest, SaveForecastRequest, LaborCodeDTO
  Ingestion:   IngestResponse, FileFailureDTO
  Leave:       LeaveResponse
  Scenarios:   ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry go-playground/validator tags; handlers call
  h.decodeBody before touching the store. Dates are checked for format
  here and parsed in the handler.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/team.go: TeamConfigJSON, accepted as-is by PUT /api/teams/{id}/config
*/
package api

import (
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TeamID    string `json:"team_id"`
	SiteID    string `json:"site_id"`
	CompanyID string `json:"company_id"`
}

func toEmployeeDTO(e generic.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		TeamID:    string(e.TeamID),
		SiteID:    string(e.SiteID),
		CompanyID: string(e.CompanyID),
	}
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name"`
	TeamID    string `json:"team_id" validate:"required"`
	SiteID    string `json:"site_id" validate:"required"`
	CompanyID string `json:"company_id" validate:"required"`
}

// UpdateEmployeeRequest changes one field, e.g. {"field": "site_id", "value": "south"}.
type UpdateEmployeeRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// =============================================================================
// ASSIGNMENTS & FORECASTS
// =============================================================================

type LaborCodeDTO struct {
	ChargeNumber string `json:"charge_number" validate:"required"`
	Extension    string `json:"extension"`
}

func toLaborCodes(dtos []LaborCodeDTO) []generic.LaborCode {
	codes := make([]generic.LaborCode, len(dtos))
	for i, d := range dtos {
		codes[i] = generic.LaborCode{ChargeNumber: d.ChargeNumber, Extension: d.Extension}
	}
	return codes
}

// CreateAssignmentRequest links an employee to labor codes. An empty ID
// gets a generated one.
type CreateAssignmentRequest struct {
	ID            string         `json:"id"`
	EmployeeID    string         `json:"employee_id" validate:"required"`
	CompanyID     string         `json:"company_id" validate:"required"`
	LaborCodes    []LaborCodeDTO `json:"labor_codes" validate:"required,min=1,dive"`
	EffectiveFrom string         `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo   string         `json:"effective_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// SaveForecastRequest sets the labor codes open to a company on every day
// of [from, to].
type SaveForecastRequest struct {
	CompanyID  string         `json:"company_id" validate:"required"`
	From       string         `json:"from" validate:"required,datetime=2006-01-02"`
	To         string         `json:"to" validate:"required,datetime=2006-01-02"`
	LaborCodes []LaborCodeDTO `json:"labor_codes" validate:"dive"`
}

// =============================================================================
// INGESTION
// =============================================================================

type FileFailureDTO struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// IngestResponse reports one upload. Files that could not be read are
// listed in Failures; the rest of the upload is still recorded.
type IngestResponse struct {
	RunID       string                      `json:"run_id"`
	Files       int                         `json:"files"`
	Entries     int                         `json:"entries"`
	DryRun      bool                        `json:"dry_run"`
	Recorded    generic.RecordSummary       `json:"recorded"`
	Failures    []FileFailureDTO            `json:"failures"`
	Issues      []timesheet.RowIssue        `json:"issues"`
	IssueCounts map[timesheet.IssueKind]int `json:"issue_counts"`
	DurationMS  int64                       `json:"duration_ms"`
}

func toIngestResponse(r *timesheet.IngestResult, dryRun bool) IngestResponse {
	resp := IngestResponse{
		RunID:       r.RunID,
		Files:       r.Files,
		Entries:     r.Entries,
		DryRun:      dryRun,
		Recorded:    r.Recorded,
		Failures:    make([]FileFailureDTO, 0, len(r.Failures)),
		Issues:      r.Issues,
		IssueCounts: timesheet.Result{Issues: r.Issues}.IssueCounts(),
		DurationMS:  r.Duration.Milliseconds(),
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, FileFailureDTO{File: f.File, Error: f.Err.Error()})
	}
	if resp.Issues == nil {
		resp.Issues = []timesheet.RowIssue{}
	}
	return resp
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveResponse struct {
	EmployeeID string               `json:"employee_id"`
	From       generic.TimePoint    `json:"from"`
	To         generic.TimePoint    `json:"to"`
	TotalHours generic.Hours        `json:"total_hours"`
	Months     []generic.LeaveMonth `json:"months"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
