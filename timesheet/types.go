/*
Package timesheet turns vendor timesheet exports into canonical time entries
and builds mod-period reports from them.

FLOW:
  files -> ReadRows (xlsx, xls, csv, html) -> Parser (Classifier + Resolver)
        -> []generic.TimeEntry -> EntryLedger
  request -> ReportService -> GenerateModMonths -> Aggregate + ConsolidateLeave

FAILURE MODEL:
  Structural:    a file is unusable; becomes a FileFailure, siblings continue
  Data quality:  a row is dropped; becomes a RowIssue
  Configuration: the request cannot run; returned as an error

SEE ALSO:
  - generic/: the engine types and algorithms
  - leavecodes.go: leave-code presets for new teams
*/
package timesheet

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// COLUMN HEADERS - fixed by the export format, matched ignoring case
// =============================================================================

const (
	HeaderDate         = "date"
	HeaderPersonnelID  = "personnel id"
	HeaderChargeNumber = "charge number"
	HeaderPremium      = "premium"
	HeaderExtension    = "extension"
	HeaderHours        = "hours"
	HeaderDescription  = "description"
	HeaderExplanation  = "explanation"

	// HeaderStatus is optional. Leave rows default to submitted without it.
	HeaderStatus = "status"
)

// RequiredHeaders lists every header a sheet must carry.
var RequiredHeaders = []string{
	HeaderDate,
	HeaderPersonnelID,
	HeaderChargeNumber,
	HeaderPremium,
	HeaderExtension,
	HeaderHours,
	HeaderDescription,
	HeaderExplanation,
}

// =============================================================================
// SOURCE FILES
// =============================================================================

// SourceFile is one spreadsheet to parse. Open is called once, from the
// goroutine that parses the file.
type SourceFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

func FileFromPath(path string) SourceFile {
	return SourceFile{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileFromError stands in for a file that could not be received; parsing
// it reports err as that file's failure.
func FileFromError(name string, err error) SourceFile {
	return SourceFile{
		Name: name,
		Open: func() (io.ReadCloser, error) { return nil, err },
	}
}

func FileFromBytes(name string, data []byte) SourceFile {
	return SourceFile{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// =============================================================================
// RESULTS
// =============================================================================

type IssueKind string

const (
	IssueBadDate          IssueKind = "bad_date"
	IssueMissingEmployee  IssueKind = "missing_employee"
	IssueUnrecognized     IssueKind = "unrecognized"
	IssueUnresolvedCharge IssueKind = "unresolved_charge"
)

// RowIssue records a dropped row. Row is the 1-based sheet row.
type RowIssue struct {
	File   string    `json:"file"`
	Row    int       `json:"row"`
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (i RowIssue) String() string {
	return fmt.Sprintf("%s:%d %s: %s", i.File, i.Row, i.Kind, i.Detail)
}

// FileFailure records a file that could not be parsed at all.
type FileFailure struct {
	File string `json:"file"`
	Err  error  `json:"-"`
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.File, f.Err)
}

func (f FileFailure) Unwrap() error { return f.Err }

// Result is the merged outcome of a parse. Entries are sorted; failures are
// ordered by file, issues by file then row.
type Result struct {
	Entries  []generic.TimeEntry `json:"entries"`
	Failures []FileFailure       `json:"failures"`
	Issues   []RowIssue          `json:"issues"`
}

// IssueCounts tallies dropped rows by kind.
func (r Result) IssueCounts() map[IssueKind]int {
	counts := make(map[IssueKind]int)
	for _, i := range r.Issues {
		counts[i.Kind]++
	}
	return counts
}
