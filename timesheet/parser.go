/*
parser.go - Concurrent timesheet parser

PURPOSE:
  Turns spreadsheet rows into canonical TimeEntry values. Each source file is
  an independent unit of work running in its own goroutine.

PER FILE:
  1. Open and read bytes, decode rows (reader.go)
  2. Discover columns from row 1, rejecting the file if a required header is
     missing
  3. Admit data rows: explanation present and not a "total" line
  4. Classify the hours cell; resolve the charge code for worked hours
  5. Emit an entry, or record a RowIssue and drop the row

ISOLATION:
  A failing file (unreadable, missing header, directory error, even a
  reader panic) becomes a FileFailure. Siblings always run to completion and
  the merge happens only after every goroutine has settled.

DETERMINISM:
  The merged entries are sorted by (employee, date, charge number,
  extension, premium, code), so completion order never shows in the output.
*/
package timesheet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// PARSER
// =============================================================================

type Parser struct {
	Classifier *Classifier
	Resolver   generic.Resolver
	CompanyID  generic.CompanyID
	Logger     *slog.Logger

	// OnFile, if set, is called from the file's goroutine once it settles,
	// with the failure or nil. It must be safe for concurrent use.
	OnFile func(name string, err error)
}

func NewParser(classifier *Classifier, resolver generic.Resolver, companyID generic.CompanyID, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		Classifier: classifier,
		Resolver:   resolver,
		CompanyID:  companyID,
		Logger:     logger,
	}
}

type fileOutcome struct {
	entries []generic.TimeEntry
	issues  []RowIssue
	failure *FileFailure
}

// Parse processes every file concurrently and merges the results.
func (p *Parser) Parse(ctx context.Context, files []SourceFile) Result {
	outcomes := make([]fileOutcome, len(files))

	var wg sync.WaitGroup
	wg.Add(len(files))
	for i, f := range files {
		go func(slot int, f SourceFile) {
			defer wg.Done()
			outcomes[slot] = p.parseFile(ctx, f)
			if p.OnFile != nil {
				var err error
				if o := outcomes[slot]; o.failure != nil {
					err = o.failure
				}
				p.OnFile(f.Name, err)
			}
		}(i, f)
	}
	wg.Wait()

	result := Result{
		Entries: generic.SortEntries(lo.FlatMap(outcomes, func(o fileOutcome, _ int) []generic.TimeEntry { return o.entries })),
		Issues:  lo.FlatMap(outcomes, func(o fileOutcome, _ int) []RowIssue { return o.issues }),
	}
	for _, o := range outcomes {
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
		}
	}

	sort.SliceStable(result.Failures, func(i, j int) bool { return result.Failures[i].File < result.Failures[j].File })
	sort.SliceStable(result.Issues, func(i, j int) bool {
		a, b := result.Issues[i], result.Issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Row < b.Row
	})

	p.Logger.Info("timesheets parsed",
		"files", len(files),
		"failed", len(result.Failures),
		"entries", len(result.Entries),
		"dropped_rows", len(result.Issues))
	return result
}

func (p *Parser) parseFile(ctx context.Context, f SourceFile) (out fileOutcome) {
	log := p.Logger.With("file", f.Name)

	fail := func(err error) fileOutcome {
		log.Warn("timesheet rejected", "error", err)
		return fileOutcome{failure: &FileFailure{File: f.Name, Err: &generic.FileError{File: f.Name, Err: err}}}
	}

	// Third-party readers can panic on corrupt workbooks.
	defer func() {
		if r := recover(); r != nil {
			out = fail(fmt.Errorf("%w: %v", generic.ErrUnreadableFile, r))
		}
	}()

	rc, err := f.Open()
	if err != nil {
		return fail(fmt.Errorf("%w: %w", generic.ErrUnreadableFile, err))
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return fail(fmt.Errorf("%w: %w", generic.ErrUnreadableFile, err))
	}

	rows, err := ReadRows(f.Name, data)
	if err != nil {
		return fail(err)
	}

	entries, issues, err := p.ParseRows(ctx, f.Name, rows)
	if err != nil {
		return fail(err)
	}
	log.Debug("timesheet parsed", "rows", len(rows)-1, "entries", len(entries), "dropped", len(issues))
	return fileOutcome{entries: entries, issues: issues}
}

// ParseRows parses already-decoded rows. The first row holds the headers.
// Only structural and directory errors are returned; bad rows become issues.
func (p *Parser) ParseRows(ctx context.Context, name string, rows [][]string) ([]generic.TimeEntry, []RowIssue, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: worksheet is empty", generic.ErrUnreadableFile)
	}
	cols, err := discoverColumns(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var (
		entries []generic.TimeEntry
		issues  []RowIssue
	)
	drop := func(row int, kind IssueKind, detail string) {
		issues = append(issues, RowIssue{File: name, Row: row, Kind: kind, Detail: detail})
		p.Logger.Debug("row dropped", "file", name, "row", row, "kind", kind, "detail", detail)
	}

	for i, raw := range rows[1:] {
		rowNum := i + 2
		r := cols.read(raw)

		if r.explanation == "" || strings.Contains(strings.ToLower(r.explanation), "total") {
			continue
		}
		if r.hours == "" {
			continue
		}

		date, err := ParseDate(r.date)
		if err != nil {
			drop(rowNum, IssueBadDate, err.Error())
			continue
		}
		if r.personnelID == "" {
			drop(rowNum, IssueMissingEmployee, "personnel id is empty")
			continue
		}

		c := p.Classifier.Classify(r.hours, r.explanation, r.description)
		switch c.Kind {
		case KindEmpty:
			continue

		case KindUnrecognized:
			drop(rowNum, IssueUnrecognized, fmt.Sprintf("no leave code matches %q", r.hours))

		case KindLeave:
			entries = append(entries, generic.TimeEntry{
				Date:         date,
				EmployeeID:   generic.EmployeeID(r.personnelID),
				ChargeNumber: r.chargeNumber,
				Extension:    r.extension,
				Premium:      r.premium,
				Hours:        c.Hours,
				Code:         c.Code,
				Status:       leaveStatus(r.status),
				HolidayID:    c.HolidayID,
				Comment:      generic.StringPtr(r.explanation),
				Source:       name,
			})

		case KindHours:
			hint := generic.ChargeCode{ChargeNumber: r.chargeNumber, Extension: r.extension}
			code, ok, err := p.Resolver.Resolve(ctx, generic.EmployeeID(r.personnelID), p.CompanyID, date, hint)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				drop(rowNum, IssueUnresolvedCharge, fmt.Sprintf("%s has no assigned, forecast code for %s on %s", r.personnelID, hint, date))
				continue
			}
			entries = append(entries, generic.TimeEntry{
				Date:         date,
				EmployeeID:   generic.EmployeeID(r.personnelID),
				ChargeNumber: code.ChargeNumber,
				Extension:    code.Extension,
				Premium:      r.premium,
				Hours:        c.Hours,
				Code:         generic.WorkCode,
				Comment:      generic.StringPtr(r.explanation),
				Source:       name,
			})
		}
	}
	return entries, issues, nil
}

func leaveStatus(raw string) generic.LeaveStatus {
	switch s := generic.LeaveStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case generic.StatusApproved, generic.StatusRejected, generic.StatusSubmitted:
		return s
	default:
		return generic.StatusSubmitted
	}
}

// =============================================================================
// COLUMN DISCOVERY
// =============================================================================

type columns map[string]int

type rawRow struct {
	date, personnelID, chargeNumber, premium, extension string
	hours, description, explanation, status             string
}

func discoverColumns(header []string) (columns, error) {
	cols := make(columns)
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := cols[key]; !seen && key != "" {
			cols[key] = i
		}
	}

	var missing []string
	for _, h := range RequiredHeaders {
		if _, ok := cols[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, &generic.MissingHeaderError{Missing: missing}
	}
	return cols, nil
}

func (c columns) read(row []string) rawRow {
	get := func(header string) string {
		idx, ok := c[header]
		if !ok {
			return ""
		}
		return cellValue(row, idx)
	}
	return rawRow{
		date:         get(HeaderDate),
		personnelID:  get(HeaderPersonnelID),
		chargeNumber: get(HeaderChargeNumber),
		premium:      get(HeaderPremium),
		extension:    get(HeaderExtension),
		hours:        get(HeaderHours),
		description:  get(HeaderDescription),
		explanation:  get(HeaderExplanation),
		status:       get(HeaderStatus),
	}
}

func normalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(header)), " ")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
