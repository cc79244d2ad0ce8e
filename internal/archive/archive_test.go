package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func sampleReport(date time.Time) *models.DailyReport {
	report := models.NewDailyReport(date, "Daily Content Digest - "+date.Format("2006-01-02"))
	report.AddItem(&models.ContentItem{
		Title:           "AI breakthrough",
		URL:             "https://example.com/ai",
		Source:          models.SourceVideo,
		Category:        models.CategoryTechnology,
		ImportanceScore: 0.9,
	})
	report.AddItem(&models.ContentItem{
		Title:           "Travel diary",
		URL:             "https://example.com/travel",
		Source:          models.SourceRSS,
		Category:        models.CategoryLifestyle,
		ImportanceScore: 0.4,
	})
	return report
}

func TestArchiveAndGet(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	date := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	meta, err := store.Archive(sampleReport(date))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if meta.ArchiveID != "20250601" {
		t.Errorf("ArchiveID = %q, want %q", meta.ArchiveID, "20250601")
	}
	if meta.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", meta.TotalItems)
	}

	loaded, err := store.Get("20250601")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Get returned nil for an archived report")
	}
	if loaded.TotalItems != 2 || len(loaded.Sections) != 2 {
		t.Errorf("loaded report has %d items in %d sections, want 2 in 2", loaded.TotalItems, len(loaded.Sections))
	}
	if loaded.SourceCounts[models.SourceVideo] != 1 {
		t.Errorf("SourceCounts = %v", loaded.SourceCounts)
	}
}

func TestArchiveMetadataIndependentOfReport(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	report := sampleReport(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	meta, err := store.Archive(report)
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the report after archiving must not reach the index entry.
	report.SourceCounts[models.SourceVideo] = 99
	if got := meta.SourceCounts[models.SourceVideo]; got != 1 {
		t.Errorf("metadata SourceCounts[video] = %d after report mutation, want 1", got)
	}
}

func TestArchiveIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	date := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	first, err := store.Archive(sampleReport(date))
	if err != nil {
		t.Fatal(err)
	}

	// Same date, later in the day: must be a no-op, not an overwrite.
	second, err := store.Archive(sampleReport(date.Add(5 * time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if second.ArchiveID != first.ArchiveID {
		t.Errorf("second ArchiveID = %q, want %q", second.ArchiveID, first.ArchiveID)
	}
	if got := store.List(nil, nil, 0); len(got) != 1 {
		t.Errorf("index holds %d entries after double archive, want 1", len(got))
	}
}

func TestArchivedCopyIsIndependent(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	report := sampleReport(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if _, err := store.Archive(report); err != nil {
		t.Fatal(err)
	}

	// Mutating the original after archival must not affect the archive.
	report.Sections[0].Items[0].Title = "mutated"

	loaded, err := store.Get("20250601")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Sections[0].Items[0].Title != "AI breakthrough" {
		t.Error("archived payload shares mutable state with the caller's report")
	}
}

func TestListNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	dates := []time.Time{
		time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		if _, err := store.Archive(sampleReport(d)); err != nil {
			t.Fatal(err)
		}
	}

	got := store.List(nil, nil, 0)
	want := []string{"20250602", "20250601", "20250530"}
	if len(got) != len(want) {
		t.Fatalf("List returned %d entries, want %d", len(got), len(want))
	}
	for i, meta := range got {
		if meta.ArchiveID != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, meta.ArchiveID, want[i])
		}
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	filtered := store.List(&start, nil, 1)
	if len(filtered) != 1 || filtered[0].ArchiveID != "20250602" {
		t.Errorf("filtered List = %v", filtered)
	}
}

func TestDelete(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	meta, err := store.Archive(sampleReport(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatal(err)
	}

	ok, err := store.Delete("20250601")
	if err != nil || !ok {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", ok, err)
	}
	if _, err := os.Stat(meta.FilePath); !os.IsNotExist(err) {
		t.Error("payload file should be gone after delete")
	}
	if store.Contains("20250601") {
		t.Error("index entry should be gone after delete")
	}

	ok, err = store.Delete("20250601")
	if err != nil || ok {
		t.Errorf("second Delete = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestDeleteMissingPayloadStillClearsIndex(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	meta, err := store.Archive(sampleReport(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(meta.FilePath); err != nil {
		t.Fatal(err)
	}

	ok, err := store.Delete("20250601")
	if err != nil || !ok {
		t.Fatalf("Delete with missing payload = (%v, %v), want (true, nil)", ok, err)
	}
	if store.Contains("20250601") {
		t.Error("index entry must be cleared even when the payload was already gone")
	}
}

func TestCleanupOlderThan(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	old := time.Now().AddDate(0, 0, -120)
	recent := time.Now().AddDate(0, 0, -3)
	if _, err := store.Archive(sampleReport(old)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Archive(sampleReport(recent)); err != nil {
		t.Fatal(err)
	}

	deleted, err := store.CleanupOlderThan(90)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if got := store.List(nil, nil, 0); len(got) != 1 || got[0].ArchiveID != ArchiveID(recent) {
		t.Errorf("remaining archives = %v", got)
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Archive(sampleReport(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Contains("20250601") {
		t.Error("reopened store lost the index")
	}
}

func TestCorruptIndexStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFileName), []byte("corrupt{"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewStore must tolerate a corrupt index: %v", err)
	}
	if got := store.List(nil, nil, 0); len(got) != 0 {
		t.Errorf("corrupt index should load empty, got %d entries", len(got))
	}
}
