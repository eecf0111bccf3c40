/*
ledger.go - Recorded time entries

PURPOSE:
  Parsed entries are recorded so reports can be built later without
  re-reading spreadsheets. The ledger decides what a re-upload means.

RECORDING RULES (keyed by TimeEntry.Key()):
  1. New key:                       inserted as-is
  2. Same key, same content:        left alone (idempotent re-upload)
  3. Same key, different content:   replaced, stored with Modified = true

  Rule 3 is how a corrected file supersedes an earlier one. The TimeEntry
  value handed in is never mutated; the stored copy carries the flag.

  A day holds at most one leave entry, so changing V to S on re-upload
  is a modification. A day that turns from leave into work (or back) is
  a different key; the old entry stays until it is corrected.

DUPLICATES WITHIN ONE BATCH:
  Work rows sharing a key add up (two 4h rows on one code are 8h).
  Leave rows sharing a day keep the later row. Every merge is counted in
  RecordSummary.Merged so it reaches the upload response.

SEE ALSO:
  - store.go: Directory interfaces
  - store/sqlite/sqlite.go, generic/store/memory.go: EntryStore implementations
*/
package generic

import "context"

// =============================================================================
// ENTRY STORE - Low-level persistence
// =============================================================================

type EntryStore interface {
	// EntriesByKey returns stored entries for the given keys.
	EntriesByKey(ctx context.Context, keys []string) (map[string]TimeEntry, error)

	// PutEntries inserts or replaces entries atomically.
	PutEntries(ctx context.Context, entries []TimeEntry) error

	// LoadEntries returns entries for the employees in [from, to], sorted.
	// An empty employee list means all employees.
	LoadEntries(ctx context.Context, employees []EmployeeID, from, to TimePoint) ([]TimeEntry, error)
}

// =============================================================================
// ENTRY LEDGER
// =============================================================================

type RecordSummary struct {
	Inserted  int `json:"inserted"`
	Unchanged int `json:"unchanged"`
	Modified  int `json:"modified"`
	// Merged counts batch rows folded into another row with the same key.
	Merged int `json:"merged"`
}

type EntryLedger interface {
	Record(ctx context.Context, entries []TimeEntry) (RecordSummary, error)
	EntriesInRange(ctx context.Context, employees []EmployeeID, from, to TimePoint) ([]TimeEntry, error)
}

type DefaultLedger struct {
	Store EntryStore
}

func NewLedger(store EntryStore) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Record(ctx context.Context, entries []TimeEntry) (RecordSummary, error) {
	var summary RecordSummary
	if len(entries) == 0 {
		return summary, nil
	}

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key()
	}
	existing, err := l.Store.EntriesByKey(ctx, keys)
	if err != nil {
		return summary, err
	}

	pending := make(map[string]TimeEntry, len(entries))
	var order []string
	for _, e := range entries {
		k := e.Key()
		prev, seen := pending[k]
		if !seen {
			order = append(order, k)
			pending[k] = e
			continue
		}
		summary.Merged++
		if e.IsWork() && prev.IsWork() {
			e.Hours = prev.Hours.Add(e.Hours)
		}
		pending[k] = e
	}

	var writes []TimeEntry
	for _, k := range order {
		incoming := pending[k]
		prior, ok := existing[k]
		switch {
		case !ok:
			summary.Inserted++
			writes = append(writes, incoming)
		case prior.SameContent(incoming):
			summary.Unchanged++
		default:
			summary.Modified++
			incoming.Modified = true
			writes = append(writes, incoming)
		}
	}

	if len(writes) == 0 {
		return summary, nil
	}
	if err := l.Store.PutEntries(ctx, writes); err != nil {
		return RecordSummary{}, err
	}
	return summary, nil
}

func (l *DefaultLedger) EntriesInRange(ctx context.Context, employees []EmployeeID, from, to TimePoint) ([]TimeEntry, error) {
	return l.Store.LoadEntries(ctx, employees, from, to)
}
