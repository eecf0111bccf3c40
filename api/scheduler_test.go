package api

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/warp/timesheet-engine/timesheet"
)

func writeInboxFile(t *testing.T, dir string, f timesheet.SourceFile) {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("Failed to open %s: %v", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", f.Name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, f.Name), data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", f.Name, err)
	}
}

func newInbox(t *testing.T, teamID string) (*InboxScheduler, string) {
	t.Helper()
	h, router := newTestServer(t, DefaultRouterConfig())
	if teamID == "ops" {
		seedTeam(t, router)
	}
	dir := t.TempDir()
	s := NewInboxScheduler(h.Ingest, dir, "ops", "acme", nil)
	s.MinAge = 0
	return s, dir
}

func TestProcessInbox_MovesFiles(t *testing.T) {
	// GIVEN: A good workbook, a broken one and an unrelated file in the inbox
	s, dir := newInbox(t, "ops")
	writeInboxFile(t, dir, weekFile("E100.xlsx"))
	writeInboxFile(t, dir, timesheet.FileFromBytes("broken.xlsx", []byte("not a workbook")))
	writeInboxFile(t, dir, timesheet.FileFromBytes("notes.pdf", []byte("%PDF")))

	// WHEN: Processing the inbox once
	run, err := s.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox failed: %v", err)
	}

	// THEN: The good file is processed and the broken one quarantined
	if run == nil {
		t.Fatal("Expected a run")
	}
	if run.Result.Recorded.Inserted != 4 {
		t.Errorf("Expected 4 inserted, got %d", run.Result.Recorded.Inserted)
	}
	if len(run.Processed) != 1 || run.Processed[0] != "E100.xlsx" {
		t.Errorf("Expected E100.xlsx processed, got %v", run.Processed)
	}
	if len(run.Failed) != 1 || run.Failed[0] != "broken.xlsx" {
		t.Errorf("Expected broken.xlsx failed, got %v", run.Failed)
	}
	if _, err := os.Stat(filepath.Join(dir, processedDir, "E100.xlsx")); err != nil {
		t.Errorf("E100.xlsx not in processed/: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, failedDir, "broken.xlsx")); err != nil {
		t.Errorf("broken.xlsx not in failed/: %v", err)
	}

	// AND: Unsupported files are left alone
	if _, err := os.Stat(filepath.Join(dir, "notes.pdf")); err != nil {
		t.Errorf("notes.pdf should stay in the inbox: %v", err)
	}

	// AND: A second pass has nothing to do
	run, err = s.ProcessInbox(context.Background())
	if err != nil || run != nil {
		t.Errorf("Expected empty pass, got run=%v err=%v", run, err)
	}
}

func TestProcessInbox_UnconfiguredTeamLeavesFiles(t *testing.T) {
	// GIVEN: An inbox for a team that has no configuration yet
	s, dir := newInbox(t, "")
	writeInboxFile(t, dir, weekFile("E100.xlsx"))

	// WHEN: Processing
	_, err := s.ProcessInbox(context.Background())

	// THEN: The pass fails and the file waits for the next tick
	if err == nil {
		t.Fatal("Expected an error for an unconfigured team")
	}
	if _, err := os.Stat(filepath.Join(dir, "E100.xlsx")); err != nil {
		t.Errorf("E100.xlsx should stay in the inbox: %v", err)
	}
}

func TestProcessInbox_SkipsUnsettledFiles(t *testing.T) {
	s, dir := newInbox(t, "ops")
	s.MinAge = time.Hour
	writeInboxFile(t, dir, weekFile("E100.xlsx"))

	run, err := s.ProcessInbox(context.Background())
	if err != nil || run != nil {
		t.Errorf("Expected a fresh file to be skipped, got run=%v err=%v", run, err)
	}
}

func TestMoveInto_NameCollision(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, processedDir)
	for i := 0; i < 2; i++ {
		path := filepath.Join(dir, "E100.xlsx")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
		if err := moveInto(path, target); err != nil {
			t.Fatalf("moveInto failed: %v", err)
		}
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatalf("Failed to read target: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected both files kept, got %d", len(entries))
	}
}

func TestInboxScheduler_StartStop(t *testing.T) {
	s, _ := newInbox(t, "ops")
	s.CheckInterval = 10 * time.Millisecond

	s.Start()
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop()

	s.Enabled = false
	s.Start()
	if s.ticker != nil {
		t.Error("Disabled scheduler should not start")
	}
}
