// Package archive persists finalized daily reports as date-keyed JSON
// files with a shared index for fast listing.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/pkg/logger"
)

const indexFileName = "index.json"

// Metadata describes one archived report without opening its payload
type Metadata struct {
	ArchiveID    string                `json:"archive_id"`
	ReportDate   time.Time             `json:"report_date"`
	ArchivedAt   time.Time             `json:"archived_at"`
	FilePath     string                `json:"file_path"`
	FileSize     int64                 `json:"file_size"`
	TotalItems   int                   `json:"total_items"`
	SourceCounts map[models.Source]int `json:"source_counts"`
}

type index struct {
	Archives    []Metadata `json:"archives"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Store manages the archive directory. Safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	dir string
	idx index
	log *logger.Logger
}

// NewStore opens (or creates) an archive directory. A corrupt index file
// is treated as empty, logged as a warning.
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	s := &Store{dir: dir, log: log.WithComponent("archive")}

	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err == nil {
		if err := json.Unmarshal(data, &s.idx); err != nil {
			s.log.Warn().Err(err).Msg("Archive index corrupt, starting with empty index")
			s.idx = index{}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read archive index: %w", err)
	}

	return s, nil
}

// ArchiveID derives the date-keyed identifier for a report date
func ArchiveID(reportDate time.Time) string {
	return reportDate.Format("20060102")
}

// Archive persists a report. Archiving the same report date twice is a
// no-op returning the existing metadata; it never overwrites.
func (s *Store) Archive(report *models.DailyReport) (*Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ArchiveID(report.ReportDate)
	if existing := s.find(id); existing != nil {
		s.log.Info().Str("archive_id", id).Msg("Report already archived")
		return existing, nil
	}

	path := filepath.Join(s.dir, fmt.Sprintf("report_%s.json", id))

	// Serializing makes the archived copy independent of the caller's report.
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("failed to write archive payload: %w", err)
	}

	// Copy the counts so later mutation of the report cannot reach the index.
	counts := make(map[models.Source]int, len(report.SourceCounts))
	for source, n := range report.SourceCounts {
		counts[source] = n
	}

	meta := Metadata{
		ArchiveID:    id,
		ReportDate:   report.ReportDate,
		ArchivedAt:   time.Now(),
		FilePath:     path,
		FileSize:     int64(len(data)),
		TotalItems:   report.TotalItems,
		SourceCounts: counts,
	}
	s.idx.Archives = append(s.idx.Archives, meta)
	if err := s.saveIndex(); err != nil {
		// Roll the payload back so a failed index write leaves no orphan.
		os.Remove(path)
		s.idx.Archives = s.idx.Archives[:len(s.idx.Archives)-1]
		return nil, err
	}

	s.log.Info().Str("archive_id", id).Int64("bytes", meta.FileSize).Msg("Archived report")
	return &meta, nil
}

// Get loads an archived report by id, returning (nil, nil) when absent
func (s *Store) Get(archiveID string) (*models.DailyReport, error) {
	s.mu.Lock()
	meta := s.find(archiveID)
	s.mu.Unlock()

	if meta == nil {
		return nil, nil
	}

	data, err := os.ReadFile(meta.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", archiveID, err)
	}
	var report models.DailyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode archive %s: %w", archiveID, err)
	}
	return &report, nil
}

// Contains reports whether an archive id exists in the index
func (s *Store) Contains(archiveID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(archiveID) != nil
}

// List returns archive metadata sorted newest-first by report date,
// optionally bounded by a date range and a result limit.
func (s *Store) List(start, end *time.Time, limit int) []Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Metadata
	for _, meta := range s.idx.Archives {
		if start != nil && meta.ReportDate.Before(*start) {
			continue
		}
		if end != nil && meta.ReportDate.After(*end) {
			continue
		}
		out = append(out, meta)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ReportDate.After(out[j].ReportDate)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Delete removes an archived report and its index entry. Deleting an
// unknown id returns false; a missing payload file counts as already
// deleted so the index entry is still cleared.
func (s *Store) Delete(archiveID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.find(archiveID)
	if meta == nil {
		return false, nil
	}

	if err := os.Remove(meta.FilePath); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to delete archive payload: %w", err)
	}

	// Index is written only after the payload is confirmed gone, so no
	// index entry can dangle over a still-present file.
	kept := s.idx.Archives[:0]
	for _, m := range s.idx.Archives {
		if m.ArchiveID != archiveID {
			kept = append(kept, m)
		}
	}
	s.idx.Archives = kept
	if err := s.saveIndex(); err != nil {
		return false, err
	}

	s.log.Info().Str("archive_id", archiveID).Msg("Deleted archive")
	return true, nil
}

// CleanupOlderThan deletes archives whose report date precedes the
// retention window, returning how many were deleted.
func (s *Store) CleanupOlderThan(days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	s.mu.Lock()
	var stale []string
	for _, meta := range s.idx.Archives {
		if meta.ReportDate.Before(cutoff) {
			stale = append(stale, meta.ArchiveID)
		}
	}
	s.mu.Unlock()

	deleted := 0
	for _, id := range stale {
		ok, err := s.Delete(id)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Int("days", days).Msg("Cleaned up old archives")
	}
	return deleted, nil
}

func (s *Store) find(archiveID string) *Metadata {
	for i := range s.idx.Archives {
		if s.idx.Archives[i].ArchiveID == archiveID {
			return &s.idx.Archives[i]
		}
	}
	return nil
}

func (s *Store) saveIndex() error {
	s.idx.LastUpdated = time.Now()
	data, err := json.MarshalIndent(&s.idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode archive index: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, indexFileName), data); err != nil {
		return fmt.Errorf("failed to write archive index: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
