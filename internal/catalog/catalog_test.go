package catalog

import (
	"path/filepath"
	"testing"
	"time"
)

func testRecording(id string, startedAt time.Time) Recording {
	return Recording{
		ID:             id,
		Path:           "rec_" + id + ".iq",
		GainsPath:      "rec_" + id + ".gains",
		StartedAt:      startedAt,
		StoppedAt:      startedAt.Add(10 * time.Second),
		Channels:       2,
		TotalSamples:   20_000_000,
		DroppedSamples: 12,
		OutputSamples:  9_999_988,
		DataSize:       79_999_904,
		Digest:         "deadbeef",
		Status:         "done",
	}
}

func TestCatalog_add_and_list(t *testing.T) {
	cat, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cat.Close()

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	if err := cat.Add(testRecording("one", base)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cat.Add(testRecording("two", base.Add(time.Hour))); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := cat.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(got))
	}
	// Most recent first.
	if got[0].ID != "two" || got[1].ID != "one" {
		t.Errorf("expected order [two one], got [%s %s]", got[0].ID, got[1].ID)
	}

	r := got[1]
	if r.Path != "rec_one.iq" || r.GainsPath != "rec_one.gains" {
		t.Errorf("unexpected paths: %q %q", r.Path, r.GainsPath)
	}
	if r.Channels != 2 || r.TotalSamples != 20_000_000 || r.DroppedSamples != 12 {
		t.Errorf("unexpected totals: %+v", r)
	}
	if r.DataSize != 79_999_904 || r.Digest != "deadbeef" || r.Status != "done" {
		t.Errorf("unexpected row: %+v", r)
	}
	if !r.StartedAt.Equal(base) {
		t.Errorf("expected started_at %v, got %v", base, r.StartedAt)
	}
}

func TestCatalog_duplicate_id_rejected(t *testing.T) {
	cat, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cat.Close()

	base := time.Now()
	if err := cat.Add(testRecording("dup", base)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cat.Add(testRecording("dup", base)); err == nil {
		t.Error("expected primary key violation on duplicate id")
	}
}

func TestCatalog_persists_to_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	cat, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := cat.Add(testRecording("persisted", time.Now())); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cat.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != "persisted" {
		t.Errorf("expected persisted row, got %+v", got)
	}
}
