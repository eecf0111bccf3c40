package timesheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/generic/store"
	"github.com/warp/timesheet-engine/timesheet"
)

func ingestJanuary(t *testing.T, dir *store.Memory) *timesheet.IngestResult {
	t.Helper()
	svc := timesheet.NewIngestService(dir, generic.NewLedger(dir), nil)
	result, err := svc.Ingest(context.Background(), timesheet.IngestRequest{
		TeamID:    "team-1",
		CompanyID: "acme",
		Files: []timesheet.SourceFile{
			xlsxFile(t, "emp1.xlsx", header,
				row("2025-01-06", "emp-1", "C-100", "01", "8", "Ticket"),
				row("2025-01-07", "emp-1", "C-100", "01", "8", "Ticket"),
				row("2025-01-08", "emp-1", "C-100", "01", "Vacation", "Trip"),
				row("2025-01-09", "emp-1", "C-100", "01", "Vacation", "Trip"),
			),
			xlsxFile(t, "emp2.xlsx", header,
				row("2025-01-13", "emp-2", "C-100", "01", "4", "Ticket"),
			),
		},
	})
	require.NoError(t, err)
	return result
}

// =============================================================================
// INGESTION TESTS
// =============================================================================

func TestIngest_RecordsEntries(t *testing.T) {
	dir := newDirectory(t)

	result := ingestJanuary(t, dir)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 5, result.Entries)
	assert.Equal(t, 5, result.Recorded.Inserted)
	assert.Empty(t, result.Failures)
}

func TestIngest_ReuploadIsIdempotent(t *testing.T) {
	dir := newDirectory(t)
	ingestJanuary(t, dir)

	again := ingestJanuary(t, dir)

	assert.Equal(t, 0, again.Recorded.Inserted)
	assert.Equal(t, 5, again.Recorded.Unchanged)
}

func TestIngest_DryRunRecordsNothing(t *testing.T) {
	dir := newDirectory(t)
	svc := timesheet.NewIngestService(dir, generic.NewLedger(dir), nil)

	result, err := svc.Ingest(context.Background(), timesheet.IngestRequest{
		TeamID:    "team-1",
		CompanyID: "acme",
		DryRun:    true,
		Files:     []timesheet.SourceFile{xlsxFile(t, "a.xlsx", header, row("2025-01-06", "emp-1", "C-100", "01", "8", "Ticket"))},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Entries)

	stored, err := dir.LoadEntries(context.Background(), nil, day(2025, time.January, 1), day(2025, time.January, 31))
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestIngest_UnknownTeam_ConfigError(t *testing.T) {
	dir := newDirectory(t)
	svc := timesheet.NewIngestService(dir, generic.NewLedger(dir), nil)

	_, err := svc.Ingest(context.Background(), timesheet.IngestRequest{TeamID: "team-x", CompanyID: "acme"})

	assert.True(t, generic.IsConfigError(err))
	assert.ErrorIs(t, err, generic.ErrTeamNotFound)

	_, err = svc.Ingest(context.Background(), timesheet.IngestRequest{TeamID: "team-1"})
	assert.ErrorIs(t, err, generic.ErrMissingIdentifier)
}

// =============================================================================
// REPORT TESTS
// =============================================================================

func TestReport_BuildsGridAndLeaveRuns(t *testing.T) {
	// GIVEN: January entries for two employees and a January window
	// WHEN: Building the report as of mid-January
	// THEN: Weeks and months add up, and the two vacation days form one run

	dir := newDirectory(t)
	ingestJanuary(t, dir)
	svc := timesheet.NewReportService(dir, generic.NewLedger(dir), nil)

	report, err := svc.Build(context.Background(), timesheet.ReportRequest{
		TeamID: "team-1", SiteID: "site-1", CompanyID: "acme", AsOf: day(2025, time.January, 15),
	})
	require.NoError(t, err)
	require.NoError(t, report.Grid.Validate())

	assert.Len(t, generic.Flatten(report.Months), 4)
	require.Len(t, report.Grid.Rows, 2)

	emp1, ok := report.Grid.Row("emp-1")
	require.True(t, ok)
	assert.True(t, emp1.Total.Equal(generic.NewHoursFromInt(32)))
	week := emp1.Months[0].Weeks[1] // Jan 4 - Jan 10
	assert.True(t, week.Work.Equal(generic.NewHoursFromInt(16)))
	assert.True(t, week.Leave.Equal(generic.NewHoursFromInt(16)))

	runs := report.Leave["emp-1"]
	require.Len(t, runs, 1)
	require.Len(t, runs[0].Periods, 1)
	assert.True(t, runs[0].Periods[0].End.Equal(day(2025, time.January, 9)))
}

func TestReport_ConfigurationFailures(t *testing.T) {
	dir := newDirectory(t)
	svc := timesheet.NewReportService(dir, generic.NewLedger(dir), nil)
	ctx := context.Background()

	_, err := svc.Build(ctx, timesheet.ReportRequest{TeamID: "team-1", CompanyID: "acme", AsOf: day(2025, time.January, 15)})
	assert.ErrorIs(t, err, generic.ErrMissingIdentifier)
	assert.True(t, generic.IsConfigError(err))

	_, err = svc.Build(ctx, timesheet.ReportRequest{TeamID: "team-1", SiteID: "site-1", CompanyID: "acme", AsOf: day(2025, time.June, 1)})
	assert.ErrorIs(t, err, generic.ErrNoFiscalWindow)
}

func TestReport_SiteWithoutEmployees_Empty(t *testing.T) {
	dir := newDirectory(t)
	ingestJanuary(t, dir)
	svc := timesheet.NewReportService(dir, generic.NewLedger(dir), nil)

	report, err := svc.Build(context.Background(), timesheet.ReportRequest{
		TeamID: "team-1", SiteID: "site-empty", CompanyID: "acme", AsOf: day(2025, time.January, 15),
	})

	require.NoError(t, err)
	assert.Empty(t, report.Grid.Rows)
	assert.NotEmpty(t, report.Months)
}

func TestLeaveFor_Employee(t *testing.T) {
	dir := newDirectory(t)
	ingestJanuary(t, dir)
	svc := timesheet.NewReportService(dir, generic.NewLedger(dir), nil)

	months, err := svc.LeaveFor(context.Background(), "emp-1", day(2025, time.January, 1), day(2025, time.January, 31))
	require.NoError(t, err)
	assert.True(t, generic.TotalLeaveHours(months).Equal(generic.NewHoursFromInt(16)))

	_, err = svc.LeaveFor(context.Background(), "ghost", day(2025, time.January, 1), day(2025, time.January, 31))
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}
