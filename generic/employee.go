package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID        EmployeeID `json:"id"`
	Name      string     `json:"name"`
	TeamID    TeamID     `json:"team_id"`
	SiteID    SiteID     `json:"site_id"`
	CompanyID CompanyID  `json:"company_id"`
}

// =============================================================================
// TAGGED UPDATES - Closed set of updatable fields
// =============================================================================

// EmployeeField enumerates the employee attributes that may be changed
// after creation. Anything else is rejected with ErrUnknownField.
type EmployeeField int

const (
	FieldName EmployeeField = iota + 1
	FieldTeam
	FieldSite
	FieldCompany
)

var employeeFieldNames = map[EmployeeField]string{
	FieldName:    "name",
	FieldTeam:    "team_id",
	FieldSite:    "site_id",
	FieldCompany: "company_id",
}

func (f EmployeeField) String() string {
	if name, ok := employeeFieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("EmployeeField(%d)", int(f))
}

// ParseEmployeeField maps a wire name such as "team_id" to its field.
func ParseEmployeeField(name string) (EmployeeField, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for f, n := range employeeFieldNames {
		if n == key {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// EmployeeUpdate sets one field to a new value.
type EmployeeUpdate struct {
	Field EmployeeField
	Value string
}

// Apply returns a copy of the employee with the update applied.
func (e Employee) Apply(u EmployeeUpdate) (Employee, error) {
	value := strings.TrimSpace(u.Value)
	switch u.Field {
	case FieldName:
		e.Name = value
	case FieldTeam:
		e.TeamID = TeamID(value)
	case FieldSite:
		e.SiteID = SiteID(value)
	case FieldCompany:
		e.CompanyID = CompanyID(value)
	default:
		return e, fmt.Errorf("%w: %s", ErrUnknownField, u.Field)
	}
	return e, nil
}
