package tracker

import (
	"sync"
	"time"

	"github.com/feedwatch/pkg/logger"
)

// DefaultSeenCap is the default bound on per-source seen identifier sets
const DefaultSeenCap = 1000

// sourceState holds the per-source monitoring state. seenOrder keeps
// insertion order so eviction is FIFO; no per-item timestamp is reliable
// enough to evict by content recency.
type sourceState struct {
	seen       map[string]struct{}
	seenOrder  []string
	lastCheck  time.Time
	lastError  string
	errorCount int
}

// Tracker answers "is this item new?" for each monitored source and
// records check outcomes. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	cap     int
	sources map[string]*sourceState
	log     *logger.Logger
}

// New creates a tracker with the given per-source identifier cap.
// A cap of zero or less falls back to DefaultSeenCap.
func New(seenCap int, log *logger.Logger) *Tracker {
	if seenCap <= 0 {
		seenCap = DefaultSeenCap
	}
	return &Tracker{
		cap:     seenCap,
		sources: make(map[string]*sourceState),
		log:     log.WithComponent("tracker"),
	}
}

func (t *Tracker) state(sourceKey string) *sourceState {
	s, ok := t.sources[sourceKey]
	if !ok {
		s = &sourceState{seen: make(map[string]struct{})}
		t.sources[sourceKey] = s
	}
	return s
}

// IsNew reports whether the identifier has not been seen for the source.
// An empty identifier is never new, so malformed records cannot poison
// the seen set.
func (t *Tracker) IsNew(sourceKey, itemID string) bool {
	if itemID == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, seen := t.state(sourceKey).seen[itemID]
	return !seen
}

// MarkSeen records the identifier for the source, evicting the oldest
// entries once the set exceeds the cap. Empty identifiers are ignored.
func (t *Tracker) MarkSeen(sourceKey, itemID string) {
	if itemID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(sourceKey)
	if _, ok := s.seen[itemID]; ok {
		return
	}
	s.seen[itemID] = struct{}{}
	s.seenOrder = append(s.seenOrder, itemID)

	for len(s.seenOrder) > t.cap {
		oldest := s.seenOrder[0]
		s.seenOrder = s.seenOrder[1:]
		delete(s.seen, oldest)
	}
}

// RecordCheck updates the last-check timestamp for the source. A failed
// check increments the consecutive error counter and stores the message;
// a successful check resets both.
func (t *Tracker) RecordCheck(sourceKey string, success bool, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(sourceKey)
	s.lastCheck = time.Now()
	if success {
		s.errorCount = 0
		s.lastError = ""
		return
	}
	s.errorCount++
	s.lastError = errMsg
	t.log.Warn().
		Str("source", sourceKey).
		Int("error_count", s.errorCount).
		Str("error", errMsg).
		Msg("Source check failed")
}

// ErrorCount returns the consecutive failure count for the source
func (t *Tracker) ErrorCount(sourceKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sources[sourceKey]; ok {
		return s.errorCount
	}
	return 0
}

// LastError returns the most recent error message for the source, if any
func (t *Tracker) LastError(sourceKey string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sources[sourceKey]; ok {
		return s.lastError
	}
	return ""
}

// LastCheck returns the last check time for the source and whether the
// source has ever been checked.
func (t *Tracker) LastCheck(sourceKey string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sources[sourceKey]; ok && !s.lastCheck.IsZero() {
		return s.lastCheck, true
	}
	return time.Time{}, false
}

// SeenCount returns the number of tracked identifiers for the source
func (t *Tracker) SeenCount(sourceKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sources[sourceKey]; ok {
		return len(s.seenOrder)
	}
	return 0
}
