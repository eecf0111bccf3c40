package timesheet_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/generic/store"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var header = []interface{}{
	"Date", "Personnel ID", "Charge Number", "Premium", "Extension", "Hours", "Description", "Explanation", "Status",
}

func day(year int, month time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(year, month, d)
}

// newDirectory seeds emp-1 and emp-2 on charge C-100/01, forecast all of Q1 2025.
func newDirectory(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	for _, id := range []generic.EmployeeID{"emp-1", "emp-2"} {
		require.NoError(t, mem.SaveEmployee(ctx, generic.Employee{ID: id, Name: string(id), TeamID: "team-1", SiteID: "site-1", CompanyID: "acme"}))
		require.NoError(t, mem.SaveAssignment(ctx, generic.Assignment{
			ID:            "a-" + string(id),
			EmployeeID:    id,
			CompanyID:     "acme",
			LaborCodes:    []generic.LaborCode{{ChargeNumber: "C-100", Extension: "01"}},
			EffectiveFrom: day(2025, time.January, 1),
		}))
	}
	require.NoError(t, mem.SaveForecastRange(ctx, "acme", day(2025, time.January, 1), day(2025, time.March, 31),
		[]generic.LaborCode{{ChargeNumber: "C-100", Extension: "01"}}))
	require.NoError(t, mem.SaveLeaveCodes(ctx, timesheet.DefaultTeamLeaveConfig("team-1")))
	require.NoError(t, mem.SaveWindow(ctx, generic.FiscalWindow{
		TeamID: "team-1", CompanyID: "acme", Start: day(2025, time.January, 1), End: day(2025, time.January, 31),
	}))
	return mem
}

func newParser(dir *store.Memory) *timesheet.Parser {
	return timesheet.NewParser(
		timesheet.NewClassifier(timesheet.DefaultTeamLeaveConfig("team-1")),
		generic.NewSnapshotResolver(dir, dir),
		"acme",
		nil,
	)
}

func xlsxFile(t *testing.T, name string, rows ...[]interface{}) timesheet.SourceFile {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return timesheet.FileFromBytes(name, buf.Bytes())
}

func row(date interface{}, emp, charge, ext, hours, explanation string) []interface{} {
	return []interface{}{date, emp, charge, "", ext, hours, "support", explanation, ""}
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestParse_XLSX_EmitsWorkAndLeave_DropsBadRows(t *testing.T) {
	// GIVEN: A sheet with work, leave, subtotal, blank-explanation and bad rows
	// WHEN: Parsing
	// THEN: Only admitted, classified, resolved rows become entries; the rest are issues

	dir := newDirectory(t)
	file := xlsxFile(t, "week1.xlsx",
		header,
		row("2025-01-06", "emp-1", "C-100", "01", "8", "Ticket 42"),
		row(45664, "emp-1", "c-100", "01", "7.5", "Ticket 43"), // 2025-01-07 as a serial
		row("01/08/2025", "emp-1", "C-100", "01", "Vacation", "Family trip"),
		row("2025-01-09", "emp-1", "C-100", "01", "40", "Weekly TOTAL"),
		row("2025-01-09", "emp-1", "C-100", "01", "8", ""),
		row("2025-01-10", "emp-9", "C-100", "01", "8", "Stale row"),
		row("2025-01-10", "emp-2", "C-100", "01", "XYZ", "Mystery"),
		row("not a date", "emp-2", "C-100", "01", "8", "Ticket"),
		row("2025-01-10", "", "C-100", "01", "8", "Ticket"),
	)

	result := newParser(dir).Parse(context.Background(), []timesheet.SourceFile{file})

	require.Empty(t, result.Failures)
	require.Len(t, result.Entries, 3)

	work := result.Entries[0]
	assert.True(t, work.Date.Equal(day(2025, time.January, 6)))
	assert.Equal(t, generic.WorkCode, work.Code)
	assert.Equal(t, "C-100", work.ChargeNumber)
	assert.True(t, work.Hours.Equal(generic.NewHoursFromInt(8)))

	assert.True(t, result.Entries[1].Date.Equal(day(2025, time.January, 7)))
	assert.Equal(t, "C-100", result.Entries[1].ChargeNumber, "charge code comes from the assignment")

	leave := result.Entries[2]
	assert.Equal(t, "V", leave.Code)
	assert.Equal(t, generic.StatusSubmitted, leave.Status)
	assert.True(t, leave.Hours.Equal(generic.NewHoursFromInt(8)))

	counts := result.IssueCounts()
	assert.Equal(t, 1, counts[timesheet.IssueUnresolvedCharge])
	assert.Equal(t, 1, counts[timesheet.IssueUnrecognized])
	assert.Equal(t, 1, counts[timesheet.IssueBadDate])
	assert.Equal(t, 1, counts[timesheet.IssueMissingEmployee])
	assert.Equal(t, 7, result.Issues[0].Row, "issues carry 1-based sheet rows")
}

func TestParse_MissingExplanationHeader_FailsOnlyThatFile(t *testing.T) {
	// GIVEN: One good file and one without an Explanation column
	// WHEN: Parsing both
	// THEN: The bad file is a structural failure, the good file's entries survive

	dir := newDirectory(t)
	good := xlsxFile(t, "good.xlsx", header, row("2025-01-06", "emp-1", "C-100", "01", "8", "Ticket"))
	bad := xlsxFile(t, "bad.xlsx",
		[]interface{}{"Date", "Personnel ID", "Charge Number", "Premium", "Extension", "Hours", "Description"},
		[]interface{}{"2025-01-06", "emp-1", "C-100", "", "01", "8", "support"},
	)

	result := newParser(dir).Parse(context.Background(), []timesheet.SourceFile{bad, good})

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad.xlsx", result.Failures[0].File)
	assert.True(t, errors.Is(result.Failures[0], generic.ErrMissingHeader))
	var mh *generic.MissingHeaderError
	require.ErrorAs(t, result.Failures[0], &mh)
	assert.Equal(t, []string{timesheet.HeaderExplanation}, mh.Missing)

	assert.Len(t, result.Entries, 1)
}

func TestParse_UnreadableAndUnsupportedFiles(t *testing.T) {
	dir := newDirectory(t)
	files := []timesheet.SourceFile{
		timesheet.FileFromBytes("corrupt.xlsx", []byte("not a zip")),
		timesheet.FileFromBytes("notes.pdf", []byte("%PDF")),
		{Name: "gone.xlsx", Open: timesheet.FileFromPath("/does/not/exist.xlsx").Open},
		xlsxFile(t, "ok.xlsx", header, row("2025-01-06", "emp-1", "C-100", "01", "8", "Ticket")),
	}

	result := newParser(dir).Parse(context.Background(), files)

	require.Len(t, result.Failures, 3)
	assert.Equal(t, []string{"corrupt.xlsx", "gone.xlsx", "notes.pdf"},
		[]string{result.Failures[0].File, result.Failures[1].File, result.Failures[2].File})
	assert.ErrorIs(t, result.Failures[0], generic.ErrUnreadableFile)
	assert.ErrorIs(t, result.Failures[2], generic.ErrUnsupportedFormat)
	for _, f := range result.Failures {
		assert.True(t, generic.IsStructural(f))
	}
	assert.Len(t, result.Entries, 1)
}

func TestParse_FileThatCouldNotBeReceived_FailsAlone(t *testing.T) {
	// GIVEN: A file that could not be received next to a good one
	// WHEN: Parsing both with a per-file callback
	// THEN: Only the bad file fails, and the callback sees each file once

	dir := newDirectory(t)
	lost := errors.New("connection reset")
	files := []timesheet.SourceFile{
		timesheet.FileFromError("bad.csv", lost),
		xlsxFile(t, "good.xlsx", header, row("2025-01-06", "emp-1", "C-100", "01", "8", "Ticket")),
	}

	var mu sync.Mutex
	settled := map[string]error{}
	parser := newParser(dir)
	parser.OnFile = func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		settled[name] = err
	}

	result := parser.Parse(context.Background(), files)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad.csv", result.Failures[0].File)
	assert.ErrorIs(t, result.Failures[0], generic.ErrUnreadableFile)
	assert.ErrorIs(t, result.Failures[0], lost)
	assert.Len(t, result.Entries, 1)

	require.Len(t, settled, 2)
	assert.Error(t, settled["bad.csv"])
	assert.NoError(t, settled["good.xlsx"])
}

func TestParse_CSV_UTF16WithBOM(t *testing.T) {
	// GIVEN: A tab-separated UTF-16LE export with a BOM
	// WHEN: Parsing
	// THEN: Decoded like any UTF-8 sheet

	dir := newDirectory(t)
	text := strings.Join([]string{
		"Date\tPersonnel ID\tCharge Number\tPremium\tExtension\tHours\tDescription\tExplanation",
		"2025-01-06\temp-2\tC-100\t\t01\t6\tsupport\tTicket 7",
		"2025-01-06\temp-2\tC-100\t\t01\t6\tsupport\tDaily total",
	}, "\r\n")
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(text)
	require.NoError(t, err)

	result := newParser(dir).Parse(context.Background(), []timesheet.SourceFile{
		timesheet.FileFromBytes("export.csv", []byte(encoded)),
	})

	require.Empty(t, result.Failures)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, generic.EmployeeID("emp-2"), result.Entries[0].EmployeeID)
	assert.True(t, result.Entries[0].Hours.Equal(generic.NewHoursFromInt(6)))
}

func TestParse_HTMLTable(t *testing.T) {
	dir := newDirectory(t)
	html := `<html><body><table>
<tr><th>Date</th><th>Personnel ID</th><th>Charge Number</th><th>Premium</th><th>Extension</th><th>Hours</th><th>Description</th><th>Explanation</th><th>Status</th></tr>
<tr><td>2025-01-08</td><td>emp-1</td><td>C-100</td><td></td><td>01</td><td>Sick</td><td>flu</td><td>Doctor note</td><td>Approved</td></tr>
</table></body></html>`

	result := newParser(dir).Parse(context.Background(), []timesheet.SourceFile{
		timesheet.FileFromBytes("timesheet.html", []byte(html)),
	})

	require.Empty(t, result.Failures)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "S", result.Entries[0].Code)
	assert.Equal(t, generic.StatusApproved, result.Entries[0].Status)
}

func TestParse_HolidayRowCarriesHolidayID(t *testing.T) {
	dir := newDirectory(t)
	file := xlsxFile(t, "hol.xlsx", header, row("2025-01-20", "emp-1", "C-100", "01", "Holiday", "MLK day H3"))

	result := newParser(dir).Parse(context.Background(), []timesheet.SourceFile{file})

	require.Len(t, result.Entries, 1)
	require.NotNil(t, result.Entries[0].HolidayID)
	assert.Equal(t, "H3", *result.Entries[0].HolidayID)
}

func TestParse_DeterministicAcrossFileOrder(t *testing.T) {
	// GIVEN: Several files with interleaved employees and dates
	// WHEN: Parsing them in two different orders, repeatedly
	// THEN: Output is identical every time and sorted by (employee, date, charge, extension)

	dir := newDirectory(t)
	var files []timesheet.SourceFile
	for i := 0; i < 6; i++ {
		emp := fmt.Sprintf("emp-%d", 1+i%2)
		files = append(files, xlsxFile(t, fmt.Sprintf("f%d.xlsx", i), header,
			row(fmt.Sprintf("2025-01-%02d", 20-i), emp, "C-100", "01", "8", "Ticket"),
			row(fmt.Sprintf("2025-01-%02d", 2+i), emp, "C-100", "01", "2.5", "Ticket"),
		))
	}
	reversed := make([]timesheet.SourceFile, len(files))
	for i := range files {
		reversed[len(files)-1-i] = files[i]
	}

	p := newParser(dir)
	first := p.Parse(context.Background(), files)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first.Entries, p.Parse(context.Background(), reversed).Entries)
	}

	require.Len(t, first.Entries, 12)
	for i := 1; i < len(first.Entries); i++ {
		a, b := first.Entries[i-1], first.Entries[i]
		assert.True(t, a.EmployeeID < b.EmployeeID || (a.EmployeeID == b.EmployeeID && !b.Date.Before(a.Date)))
	}
}

type brokenAssignments struct{ *store.Memory }

func (brokenAssignments) ActiveAssignments(context.Context, generic.EmployeeID, generic.TimePoint) ([]generic.Assignment, error) {
	return nil, errors.New("directory offline")
}

func TestParse_DirectoryErrorFailsFile(t *testing.T) {
	dir := newDirectory(t)
	p := timesheet.NewParser(
		timesheet.NewClassifier(timesheet.DefaultTeamLeaveConfig("team-1")),
		&generic.ChargeCodeResolver{Assignments: brokenAssignments{dir}, Forecasts: dir},
		"acme",
		nil,
	)

	result := p.Parse(context.Background(), []timesheet.SourceFile{
		xlsxFile(t, "a.xlsx", header, row("2025-01-06", "emp-1", "C-100", "01", "8", "Ticket")),
	})

	require.Len(t, result.Failures, 1)
	assert.ErrorContains(t, result.Failures[0], "directory offline")
	assert.Empty(t, result.Entries)
}

// =============================================================================
// DATE PARSING
// =============================================================================

func TestParseDate_Formats(t *testing.T) {
	want := day(2025, time.January, 6)
	for _, in := range []string{"2025-01-06", "1/6/2025", "01/06/2025", "01-06-25", "45663", "6-Jan-2025", "Jan 6, 2025", "20250106", "2025-01-06 00:00:00"} {
		got, err := timesheet.ParseDate(in)
		if assert.NoError(t, err, in) {
			assert.True(t, got.Equal(want), "%s parsed as %s", in, got)
		}
	}

	_, err := timesheet.ParseDate("someday")
	assert.Error(t, err)
	_, err = timesheet.ParseDate("")
	assert.Error(t, err)
}
