package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/feedwatch/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func TestIsNewMarkSeen(t *testing.T) {
	tr := New(10, testLogger())

	if !tr.IsNew("feed-a", "item-1") {
		t.Error("unseen item should be new")
	}
	tr.MarkSeen("feed-a", "item-1")
	if tr.IsNew("feed-a", "item-1") {
		t.Error("seen item should not be new")
	}
	if !tr.IsNew("feed-b", "item-1") {
		t.Error("seen sets must be per-source")
	}
}

func TestEmptyIdentifierNeverNew(t *testing.T) {
	tr := New(10, testLogger())

	if tr.IsNew("feed-a", "") {
		t.Error("empty identifier must never be new")
	}
	tr.MarkSeen("feed-a", "")
	if tr.SeenCount("feed-a") != 0 {
		t.Error("empty identifier must not enter the seen set")
	}
}

func TestFIFOEviction(t *testing.T) {
	tr := New(3, testLogger())

	for _, id := range []string{"a", "b", "c", "d"} {
		tr.MarkSeen("feed", id)
	}

	if got := tr.SeenCount("feed"); got != 3 {
		t.Fatalf("SeenCount = %d, want 3", got)
	}
	if !tr.IsNew("feed", "a") {
		t.Error("oldest identifier should have been evicted")
	}
	for _, id := range []string{"b", "c", "d"} {
		if tr.IsNew("feed", id) {
			t.Errorf("identifier %q should still be tracked", id)
		}
	}
}

func TestMarkSeenIdempotent(t *testing.T) {
	tr := New(3, testLogger())

	tr.MarkSeen("feed", "a")
	tr.MarkSeen("feed", "a")
	tr.MarkSeen("feed", "b")

	if got := tr.SeenCount("feed"); got != 2 {
		t.Errorf("SeenCount = %d, want 2 (duplicates must not grow the set)", got)
	}
}

func TestRecordCheck(t *testing.T) {
	tr := New(10, testLogger())

	if _, ok := tr.LastCheck("feed"); ok {
		t.Error("unchecked source should report no last check")
	}

	tr.RecordCheck("feed", false, "timeout")
	tr.RecordCheck("feed", false, "dns failure")

	if got := tr.ErrorCount("feed"); got != 2 {
		t.Errorf("ErrorCount = %d, want 2", got)
	}
	if got := tr.LastError("feed"); got != "dns failure" {
		t.Errorf("LastError = %q, want %q", got, "dns failure")
	}

	tr.RecordCheck("feed", true, "")

	if got := tr.ErrorCount("feed"); got != 0 {
		t.Errorf("ErrorCount after success = %d, want 0", got)
	}
	if got := tr.LastError("feed"); got != "" {
		t.Errorf("LastError after success = %q, want empty", got)
	}
	if _, ok := tr.LastCheck("feed"); !ok {
		t.Error("checked source should report a last check time")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "tracker.json")

	tr := New(10, testLogger())
	tr.MarkSeen("feed-a", "x")
	tr.MarkSeen("feed-a", "y")
	tr.RecordCheck("feed-a", false, "boom")
	tr.MarkSeen("feed-b", "z")

	if err := tr.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := Load(path, 10, testLogger())
	if loaded.IsNew("feed-a", "x") || loaded.IsNew("feed-a", "y") || loaded.IsNew("feed-b", "z") {
		t.Error("loaded tracker lost seen identifiers")
	}
	if got := loaded.ErrorCount("feed-a"); got != 1 {
		t.Errorf("loaded ErrorCount = %d, want 1", got)
	}
	if got := loaded.LastError("feed-a"); got != "boom" {
		t.Errorf("loaded LastError = %q, want %q", got, "boom")
	}
}

func TestLoadCorruptStateStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.json")

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := Load(path, 10, testLogger())
	if !tr.IsNew("feed", "anything") {
		t.Error("corrupt state must load as empty state")
	}
}

func TestLoadMissingFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	tr := Load(path, 10, testLogger())
	if tr.SeenCount("feed") != 0 {
		t.Error("missing state file must load as empty state")
	}
}

func TestLoadReappliesCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.json")

	tr := New(10, testLogger())
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		tr.MarkSeen("feed", id)
	}
	if err := tr.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded := Load(path, 2, testLogger())
	if got := loaded.SeenCount("feed"); got != 2 {
		t.Fatalf("SeenCount = %d, want 2 after cap shrank", got)
	}
	if !loaded.IsNew("feed", "a") {
		t.Error("restore should keep the newest identifiers, not the oldest")
	}
	if loaded.IsNew("feed", "e") {
		t.Error("newest identifier should survive a cap shrink")
	}
}
