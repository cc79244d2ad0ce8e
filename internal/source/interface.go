package source

import (
	"context"

	"github.com/feedwatch/internal/models"
)

// ContentSource defines the interface for monitored content origins
type ContentSource interface {
	// Name returns the unique name of this source (used as the tracker key)
	Name() string

	// Source returns the origin platform this source feeds
	Source() models.Source

	// Fetch retrieves the latest raw records from the source. Malformed
	// payloads yield an error, never a panic.
	Fetch(ctx context.Context) ([]models.RawRecord, error)

	// HealthCheck verifies the source is accessible
	HealthCheck(ctx context.Context) error
}

// Manager holds the registered sources in registration order. The
// monitoring pass checks them sequentially in that order, which keeps
// aggregation input deterministic.
type Manager struct {
	sources []ContentSource
}

// NewManager creates a new source manager
func NewManager() *Manager {
	return &Manager{sources: make([]ContentSource, 0)}
}

// Register adds a source to the manager
func (m *Manager) Register(src ContentSource) {
	m.sources = append(m.sources, src)
}

// Sources returns all registered sources
func (m *Manager) Sources() []ContentSource {
	return m.sources
}

// ByName returns a source by name, or nil if not registered
func (m *Manager) ByName(name string) ContentSource {
	for _, s := range m.sources {
		if s.Name() == name {
			return s
		}
	}
	return nil
}
