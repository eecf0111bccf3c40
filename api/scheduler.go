/*
scheduler.go - Inbox polling scheduler

PURPOSE:
  Periodically picks up timesheet exports dropped into an inbox directory
  and ingests them, so vendors that can only deliver files (SFTP drops,
  shared folders) need no manual upload.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Ingests every supported file in the inbox as one upload
  - Moves each file to processed/ or failed/ afterwards
  - Configuration errors (unknown team) leave files in place for the next
    tick; nothing is moved until the team is configured

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 minute)
  - MinAge:        Skip files modified more recently (default: 5 seconds),
                   so half-copied files are not read
  - Enabled:       Whether scheduler is active (default: true)

USAGE:
  scheduler := NewInboxScheduler(handler.Ingest, "./inbox", "ops", "acme", logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: UploadTimesheets endpoint (manual upload)
  - timesheet/ingest.go: IngestService
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// InboxScheduler ingests files dropped into a directory.
type InboxScheduler struct {
	Ingest        *timesheet.IngestService
	Dir           string
	TeamID        generic.TeamID
	CompanyID     generic.CompanyID
	CheckInterval time.Duration
	MinAge        time.Duration
	Enabled       bool
	Logger        *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// InboxRun summarizes one pass over the inbox.
type InboxRun struct {
	Result    *timesheet.IngestResult
	Processed []string
	Failed    []string
}

// NewInboxScheduler creates a new scheduler.
func NewInboxScheduler(ingest *timesheet.IngestService, dir string, teamID generic.TeamID, companyID generic.CompanyID, logger *slog.Logger) *InboxScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InboxScheduler{
		Ingest:        ingest,
		Dir:           dir,
		TeamID:        teamID,
		CompanyID:     companyID,
		CheckInterval: time.Minute,
		MinAge:        5 * time.Second,
		Enabled:       true,
		Logger:        logger.With("component", "inbox"),
	}
}

// Start begins the scheduler.
func (s *InboxScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("inbox scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run()

	s.Logger.Info("inbox scheduler started", "dir", s.Dir, "interval", s.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (s *InboxScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Logger.Info("inbox scheduler stopped")
	}
}

func (s *InboxScheduler) run() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stop
		cancel()
	}()

	// Run immediately on start
	s.tick(ctx)

	for {
		select {
		case <-s.ticker.C:
			s.tick(ctx)
		case <-s.stop:
			return
		}
	}
}

func (s *InboxScheduler) tick(ctx context.Context) {
	if _, err := s.ProcessInbox(ctx); err != nil {
		s.Logger.Warn("inbox pass failed", "error", err)
	}
}

// ProcessInbox ingests every ready file in the inbox once. It returns a nil
// run when there was nothing to do.
func (s *InboxScheduler) ProcessInbox(ctx context.Context) (*InboxRun, error) {
	paths, err := s.readyFiles()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	files := lo.Map(paths, func(p string, _ int) timesheet.SourceFile { return timesheet.FileFromPath(p) })
	result, err := s.Ingest.Ingest(ctx, timesheet.IngestRequest{
		TeamID:    s.TeamID,
		CompanyID: s.CompanyID,
		Files:     files,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest inbox: %w", err)
	}

	failed := lo.SliceToMap(result.FailedFiles(), func(name string) (string, bool) { return name, true })
	run := &InboxRun{Result: result}
	for _, p := range paths {
		name := filepath.Base(p)
		target := processedDir
		if failed[name] {
			target = failedDir
		}
		if err := moveInto(p, filepath.Join(s.Dir, target)); err != nil {
			s.Logger.Warn("failed to move inbox file", "file", name, "target", target, "error", err)
			continue
		}
		if target == failedDir {
			run.Failed = append(run.Failed, name)
		} else {
			run.Processed = append(run.Processed, name)
		}
	}

	s.Logger.Info("inbox processed",
		"run_id", result.RunID,
		"processed", len(run.Processed),
		"failed", len(run.Failed),
		"entries", result.Entries)
	return run, nil
}

// readyFiles lists supported, settled files directly inside the inbox.
func (s *InboxScheduler) readyFiles() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	cutoff := time.Now().Add(-s.MinAge)
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !timesheet.IsSupported(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if s.MinAge > 0 && info.ModTime().After(cutoff) {
			continue
		}
		paths = append(paths, filepath.Join(s.Dir, name))
	}
	return paths, nil
}

// moveInto renames the file into dir, adding a timestamp if the name is taken.
func moveInto(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(dir, time.Now().UTC().Format("20060102T150405.000000000")+"-"+filepath.Base(path))
	}
	return os.Rename(path, dest)
}
