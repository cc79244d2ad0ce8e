package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/feedwatch/pkg/logger"
)

// SourceSnapshot is the serializable state of one monitored source
type SourceSnapshot struct {
	SeenIDs    []string  `json:"seen_ids"`
	LastCheck  time.Time `json:"last_check"`
	LastError  string    `json:"last_error,omitempty"`
	ErrorCount int       `json:"error_count"`
}

// Snapshot is the serializable state of the whole tracker
type Snapshot struct {
	Sources map[string]SourceSnapshot `json:"sources"`
	SavedAt time.Time                 `json:"saved_at"`
}

// Snapshot captures the current tracker state for persistence
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Sources: make(map[string]SourceSnapshot, len(t.sources)),
		SavedAt: time.Now(),
	}
	for key, s := range t.sources {
		snap.Sources[key] = SourceSnapshot{
			SeenIDs:    append([]string(nil), s.seenOrder...),
			LastCheck:  s.lastCheck,
			LastError:  s.lastError,
			ErrorCount: s.errorCount,
		}
	}
	return snap
}

// restore replaces the tracker state with the snapshot's, re-applying
// the cap in case it shrank since the snapshot was taken.
func (t *Tracker) restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sources = make(map[string]*sourceState, len(snap.Sources))
	for key, ss := range snap.Sources {
		s := &sourceState{
			seen:       make(map[string]struct{}, len(ss.SeenIDs)),
			lastCheck:  ss.LastCheck,
			lastError:  ss.LastError,
			errorCount: ss.ErrorCount,
		}
		ids := ss.SeenIDs
		if len(ids) > t.cap {
			ids = ids[len(ids)-t.cap:]
		}
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, ok := s.seen[id]; ok {
				continue
			}
			s.seen[id] = struct{}{}
			s.seenOrder = append(s.seenOrder, id)
		}
		t.sources[key] = s
	}
}

// Save writes the tracker state to path, creating parent directories as
// needed. The write goes to a temp file first and is renamed into place
// so a crash never leaves a partial state file.
func (t *Tracker) Save(path string) error {
	snap := t.Snapshot()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tracker state: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Load creates a tracker from a persisted state file. A missing or
// corrupt file is treated as empty state, never a fatal error.
func Load(path string, seenCap int, log *logger.Logger) *Tracker {
	t := New(seenCap, log)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.log.Warn().Err(err).Str("path", path).Msg("Failed to read state file, starting fresh")
		}
		return t
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.log.Warn().Err(err).Str("path", path).Msg("State file corrupt, starting fresh")
		return t
	}

	t.restore(snap)
	return t
}
