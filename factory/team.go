/*
Package factory provides JSON to Go team configuration conversion.

PURPOSE:
  Converts a team's JSON configuration into the leave-code rules, standard
  hours and fiscal windows the engine consumes. Teams are onboarded and
  re-tuned without code changes: the JSON is stored as-is and parsed here.

JSON SCHEMA:
  {
    "team_id": "ops",
    "standard_hours": 8,
    "leave_codes": [
      {"code": "h", "is_leave": true, "search": "hol"},
      {"code": "HV", "is_leave": true, "search": "half", "hours": 4},
      {"code": "V", "is_leave": true, "search": "vac"}
    ],
    "fiscal_windows": [
      {"company_id": "acme", "start": "2025-01-01", "end": "2025-01-31"}
    ]
  }

DEFAULTS:
  - leave_codes omitted: timesheet.DefaultLeaveCodes()
  - standard_hours omitted: timesheet.DefaultStandardHours

VALIDATION:
  Struct tags are checked with go-playground/validator. Every failure is a
  *generic.ConfigError naming the JSON field, so callers can show it as-is.

USAGE:
  f := factory.NewTeamFactory()
  cfg, err := f.ParseTeamConfig(jsonString)
  store.SaveLeaveCodes(ctx, cfg.Leave)
  store.ReplaceWindows(ctx, cfg.Leave.TeamID, cfg.Windows)

SEE ALSO:
  - timesheet/leavecodes.go: preset rules
  - generic/store.go: LeaveCodeDirectory, FiscalWindowDirectory
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TeamConfigJSON is the JSON representation of a team configuration.
type TeamConfigJSON struct {
	TeamID        string             `json:"team_id" validate:"required"`
	StandardHours *float64           `json:"standard_hours,omitempty" validate:"omitempty,gt=0,lte=24"`
	LeaveCodes    []LeaveCodeJSON    `json:"leave_codes,omitempty" validate:"dive"`
	FiscalWindows []FiscalWindowJSON `json:"fiscal_windows,omitempty" validate:"dive"`
}

// LeaveCodeJSON represents one ordered leave recognition rule.
type LeaveCodeJSON struct {
	Code    string   `json:"code" validate:"required"`
	IsLeave bool     `json:"is_leave"`
	Search  string   `json:"search" validate:"required,min=2"`
	Hours   *float64 `json:"hours,omitempty" validate:"omitempty,gt=0,lte=24"`
}

// FiscalWindowJSON represents a mod period for one company.
type FiscalWindowJSON struct {
	CompanyID string `json:"company_id" validate:"required"`
	Start     string `json:"start" validate:"required,datetime=2006-01-02"`
	End       string `json:"end" validate:"required,datetime=2006-01-02"`
}

// TeamConfig is the parsed, validated configuration.
type TeamConfig struct {
	Leave   generic.TeamLeaveConfig
	Windows []generic.FiscalWindow
}

// =============================================================================
// TEAM FACTORY
// =============================================================================

// TeamFactory converts JSON team configuration to Go structs.
type TeamFactory struct {
	validate *validator.Validate
}

// NewTeamFactory creates a factory whose validation errors use JSON field names.
func NewTeamFactory() *TeamFactory {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &TeamFactory{validate: v}
}

// ParseTeamConfig parses a JSON string into a TeamConfig.
func (f *TeamFactory) ParseTeamConfig(jsonStr string) (*TeamConfig, error) {
	var tj TeamConfigJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return nil, &generic.ConfigError{Field: "team_config", Err: fmt.Errorf("failed to parse JSON: %w", err)}
	}
	return f.FromJSON(tj)
}

// FromJSON validates TeamConfigJSON and converts it.
func (f *TeamFactory) FromJSON(tj TeamConfigJSON) (*TeamConfig, error) {
	if err := f.validate.Struct(tj); err != nil {
		return nil, mapValidationError(err)
	}

	teamID := generic.TeamID(strings.TrimSpace(tj.TeamID))
	cfg := &TeamConfig{
		Leave: generic.TeamLeaveConfig{
			TeamID:        teamID,
			StandardHours: timesheet.DefaultStandardHours,
		},
	}
	if tj.StandardHours != nil {
		cfg.Leave.StandardHours = generic.NewHours(*tj.StandardHours)
	}

	if len(tj.LeaveCodes) == 0 {
		cfg.Leave.Rules = timesheet.DefaultLeaveCodes()
	}
	for _, lc := range tj.LeaveCodes {
		rule := generic.LeaveCodeRule{
			Code:    strings.TrimSpace(lc.Code),
			IsLeave: lc.IsLeave,
			Search:  strings.TrimSpace(lc.Search),
		}
		if lc.Hours != nil {
			h := generic.NewHours(*lc.Hours)
			rule.Hours = &h
		}
		cfg.Leave.Rules = append(cfg.Leave.Rules, rule)
	}

	for i, wj := range tj.FiscalWindows {
		w, err := parseWindow(teamID, wj)
		if err != nil {
			return nil, &generic.ConfigError{Field: fmt.Sprintf("fiscal_windows[%d]", i), Err: err}
		}
		cfg.Windows = append(cfg.Windows, w)
	}
	return cfg, nil
}

func parseWindow(teamID generic.TeamID, wj FiscalWindowJSON) (generic.FiscalWindow, error) {
	start, err := generic.ParseDay(wj.Start)
	if err != nil {
		return generic.FiscalWindow{}, err
	}
	end, err := generic.ParseDay(wj.End)
	if err != nil {
		return generic.FiscalWindow{}, err
	}
	w := generic.FiscalWindow{
		TeamID:    teamID,
		CompanyID: generic.CompanyID(strings.TrimSpace(wj.CompanyID)),
		Start:     start,
		End:       end,
	}
	return w, w.Validate()
}

// ToJSON converts a TeamConfig back to its JSON form.
func (f *TeamFactory) ToJSON(cfg TeamConfig) TeamConfigJSON {
	std := cfg.Leave.StandardHours.Float()
	tj := TeamConfigJSON{
		TeamID:        string(cfg.Leave.TeamID),
		StandardHours: &std,
	}
	for _, r := range cfg.Leave.Rules {
		lc := LeaveCodeJSON{Code: r.Code, IsLeave: r.IsLeave, Search: r.Search}
		if r.Hours != nil {
			h := r.Hours.Float()
			lc.Hours = &h
		}
		tj.LeaveCodes = append(tj.LeaveCodes, lc)
	}
	for _, w := range cfg.Windows {
		tj.FiscalWindows = append(tj.FiscalWindows, FiscalWindowJSON{
			CompanyID: string(w.CompanyID),
			Start:     w.Start.String(),
			End:       w.End.String(),
		})
	}
	return tj
}

// mapValidationError reports the first failing field.
func mapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		e := errs[0]
		field := strings.TrimPrefix(e.Namespace(), "TeamConfigJSON.")
		switch e.Tag() {
		case "required":
			return &generic.ConfigError{Field: field, Err: errors.New("is required")}
		default:
			return &generic.ConfigError{Field: field, Err: fmt.Errorf("failed %q validation", e.Tag())}
		}
	}
	return &generic.ConfigError{Field: "team_config", Err: err}
}
