// Package monitor runs a pass over all registered sources: fetch, dedup
// against the identifier tracker, normalize and classify.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/feedwatch/internal/classify"
	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/internal/normalize"
	"github.com/feedwatch/internal/source"
	"github.com/feedwatch/internal/tracker"
	"github.com/feedwatch/pkg/logger"
)

// Monitor checks sources sequentially with a courtesy delay between them.
// A failed source never suppresses results from the others.
type Monitor struct {
	manager    *source.Manager
	tracker    *tracker.Tracker
	checkDelay time.Duration
	log        *logger.Logger
}

// New creates a monitor over the given sources
func New(manager *source.Manager, tr *tracker.Tracker, checkDelay time.Duration, log *logger.Logger) *Monitor {
	return &Monitor{
		manager:    manager,
		tracker:    tr,
		checkDelay: checkDelay,
		log:        log.WithComponent("monitor"),
	}
}

// PassResult summarizes one monitoring pass
type PassResult struct {
	Batches        []models.SourceBatch
	RecordsFetched int
	NewItems       int
	SourcesChecked int
	Errors         []error
	Duration       time.Duration
}

// Run executes one monitoring pass. Cancellation is cooperative: the
// context is checked between per-source iterations, since individual
// fetches are opaque beyond their own context handling.
func (m *Monitor) Run(ctx context.Context) (*PassResult, error) {
	start := time.Now()
	result := &PassResult{}

	m.log.Info().Int("sources", len(m.manager.Sources())).Msg("Starting monitoring pass")

	for i, src := range m.manager.Sources() {
		if i > 0 && m.checkDelay > 0 {
			select {
			case <-ctx.Done():
				result.Duration = time.Since(start)
				return result, ctx.Err()
			case <-time.After(m.checkDelay):
			}
		} else if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		batch, fetched, err := m.checkSource(ctx, src)
		result.SourcesChecked++
		result.RecordsFetched += fetched
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.NewItems += len(batch.Items)
		result.Batches = append(result.Batches, batch)
	}

	result.Duration = time.Since(start)

	m.log.Info().
		Int("records_fetched", result.RecordsFetched).
		Int("new_items", result.NewItems).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("Monitoring pass completed")

	return result, nil
}

// checkSource fetches one source and filters its records down to the new,
// well-formed items. The tracker records the outcome either way.
func (m *Monitor) checkSource(ctx context.Context, src source.ContentSource) (models.SourceBatch, int, error) {
	name := src.Name()
	batch := models.SourceBatch{SourceName: name, Source: src.Source()}

	records, err := src.Fetch(ctx)
	if err != nil {
		m.tracker.RecordCheck(name, false, err.Error())
		return batch, 0, fmt.Errorf("check of source %s failed: %w", name, err)
	}

	now := time.Now()
	for _, record := range records {
		id := normalize.Identifier(record)
		if !m.tracker.IsNew(name, id) {
			continue
		}

		item, err := normalize.Normalize(record, src.Source())
		if err != nil {
			// One bad record never aborts the batch.
			m.log.Warn().Err(err).Str("source", name).Msg("Skipping malformed record")
			continue
		}
		classify.Apply(item, now)

		batch.Items = append(batch.Items, item)
		m.tracker.MarkSeen(name, id)
	}

	m.tracker.RecordCheck(name, true, "")

	m.log.Debug().
		Str("source", name).
		Int("fetched", len(records)).
		Int("new", len(batch.Items)).
		Msg("Source check completed")

	return batch, len(records), nil
}
