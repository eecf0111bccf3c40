/*
errors.go - Centralized error types for the timesheet engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The timesheet and store packages wrap these with additional context.

ERROR CATEGORIES:
  1. Structural errors - a whole source file is unusable (missing header,
     unreadable bytes). Fatal for that file only.
  2. Data-quality issues - a single row is dropped. Never an error value;
     recorded as timesheet.RowIssue instead.
  3. Configuration errors - no period hierarchy can be built (missing
     identifiers, no fiscal window). Fatal for the whole request.

USAGE:
    if errors.Is(err, generic.ErrNoFiscalWindow) {
        // ask the caller for a different as-of date
    }

SEE ALSO:
  - period.go: ErrInvalidWindow
  - timesheet/parser.go: turns structural errors into per-file failures
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidWindow is returned when a fiscal window ends before it starts.
	ErrInvalidWindow = errors.New("invalid fiscal window: end before start")

	// ErrMissingHeader is returned when a required column header is absent.
	ErrMissingHeader = errors.New("required header missing")

	// ErrUnreadableFile is returned when source bytes cannot be decoded.
	ErrUnreadableFile = errors.New("unreadable spreadsheet")

	// ErrUnsupportedFormat is returned for file extensions with no reader.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

	// ErrMissingIdentifier is returned when team, site or company is empty.
	ErrMissingIdentifier = errors.New("missing identifier")

	// ErrNoFiscalWindow is returned when no configured window contains the date.
	ErrNoFiscalWindow = errors.New("no fiscal window contains date")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrTeamNotFound is returned when a team has no leave-code configuration.
	ErrTeamNotFound = errors.New("team not configured")

	// ErrUnknownField is returned for an employee update naming no known field.
	ErrUnknownField = errors.New("unknown field")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingHeaderError lists the required headers a sheet did not provide.
type MissingHeaderError struct {
	Missing []string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("required header missing: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingHeaderError) Unwrap() error {
	return ErrMissingHeader
}

// FileError ties a structural failure to the source file it came from.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ConfigError is a configuration failure for a whole aggregation request.
type ConfigError struct {
	Field string // e.g. "team_id", "fiscal_window"
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError returns true if the request cannot proceed without new config.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) ||
		errors.Is(err, ErrMissingIdentifier) ||
		errors.Is(err, ErrNoFiscalWindow) ||
		errors.Is(err, ErrInvalidWindow)
}

// IsStructural returns true if a source file as a whole is unusable.
func IsStructural(err error) bool {
	return errors.Is(err, ErrMissingHeader) ||
		errors.Is(err, ErrUnreadableFile) ||
		errors.Is(err, ErrUnsupportedFormat)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrTeamNotFound)
}
