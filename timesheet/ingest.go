package timesheet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// INGESTION SERVICE - parse files, record entries
// =============================================================================

type IngestService struct {
	Directory generic.Directory
	Ledger    generic.EntryLedger
	Logger    *slog.Logger
}

func NewIngestService(dir generic.Directory, ledger generic.EntryLedger, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{Directory: dir, Ledger: ledger, Logger: logger}
}

type IngestRequest struct {
	TeamID    generic.TeamID
	CompanyID generic.CompanyID
	Files     []SourceFile
	// DryRun parses without recording.
	DryRun bool
	// OnFile is handed to the parser; see Parser.OnFile.
	OnFile func(name string, err error)
}

type IngestResult struct {
	RunID    string                `json:"run_id"`
	Files    int                   `json:"files"`
	Entries  int                   `json:"entries"`
	Recorded generic.RecordSummary `json:"recorded"`
	Failures []FileFailure         `json:"-"`
	Issues   []RowIssue            `json:"issues"`
	Duration time.Duration         `json:"duration"`
}

// FailedFiles lists the names of files that could not be parsed.
func (r *IngestResult) FailedFiles() []string {
	names := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		names[i] = f.File
	}
	return names
}

// Ingest parses the files with the team's leave rules and records the
// entries. Per-file and per-row problems are reported in the result; only
// configuration and storage failures are returned as errors.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	started := time.Now()
	if req.TeamID == "" {
		return nil, &generic.ConfigError{Field: "team_id", Err: generic.ErrMissingIdentifier}
	}
	if req.CompanyID == "" {
		return nil, &generic.ConfigError{Field: "company_id", Err: generic.ErrMissingIdentifier}
	}

	cfg, err := s.Directory.LeaveCodes(ctx, req.TeamID)
	if err != nil {
		if errors.Is(err, generic.ErrTeamNotFound) {
			return nil, &generic.ConfigError{Field: "team_id", Err: err}
		}
		return nil, err
	}

	runID := uuid.NewString()
	log := s.Logger.With("run_id", runID, "team_id", req.TeamID, "company_id", req.CompanyID)

	parser := NewParser(
		NewClassifier(cfg),
		generic.NewSnapshotResolver(s.Directory, s.Directory),
		req.CompanyID,
		log,
	)
	parser.OnFile = req.OnFile
	parsed := parser.Parse(ctx, req.Files)

	result := &IngestResult{
		RunID:    runID,
		Files:    len(req.Files),
		Entries:  len(parsed.Entries),
		Failures: parsed.Failures,
		Issues:   parsed.Issues,
	}

	if !req.DryRun {
		summary, err := s.Ledger.Record(ctx, parsed.Entries)
		if err != nil {
			return nil, err
		}
		result.Recorded = summary
	}
	result.Duration = time.Since(started)

	log.Info("ingestion finished",
		"entries", result.Entries,
		"inserted", result.Recorded.Inserted,
		"modified", result.Recorded.Modified,
		"unchanged", result.Recorded.Unchanged,
		"merged", result.Recorded.Merged,
		"failed_files", len(result.Failures),
		"dry_run", req.DryRun,
		"duration", result.Duration)
	return result, nil
}
