// Package aggregate merges per-source item batches into a daily report.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/feedwatch/internal/classify"
	"github.com/feedwatch/internal/models"
)

// Options controls one aggregation run
type Options struct {
	// Since drops items published strictly before it. Zero means no cutoff;
	// items without a published time are never dropped by it.
	Since time.Time

	// MinImportance drops items scoring below it.
	MinImportance float64

	// MaxItemsPerCategory caps each category section. The cap keeps the
	// globally highest-scored items, not a per-category re-sort. Zero or
	// less means no cap.
	MaxItemsPerCategory int

	// Title overrides the default report title.
	Title string
}

// Aggregate flattens the batches into a single report, filtering by
// publication cutoff and importance, sorting by importance (stable, so
// ties keep source-check order), and capping each category section.
// It never fails: empty input yields a valid report with zero items.
func Aggregate(batches []models.SourceBatch, opts Options, now time.Time) *models.DailyReport {
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("Daily Content Digest - %s", now.Format("2006-01-02"))
	}
	report := models.NewDailyReport(now, title)
	report.GenerationTime = &now

	var candidates []*models.ContentItem
	for _, batch := range batches {
		for _, item := range batch.Items {
			if item == nil {
				continue
			}
			// Sources normalize before handing items over; classify any
			// stragglers that slipped through unclassified.
			if item.Category == "" {
				classify.Apply(item, now)
			}
			if !opts.Since.IsZero() && item.Published != nil && item.Published.Before(opts.Since) {
				continue
			}
			if item.ImportanceScore < opts.MinImportance {
				continue
			}
			candidates = append(candidates, item)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ImportanceScore > candidates[j].ImportanceScore
	})

	kept := make(map[models.Category]int)
	for _, item := range candidates {
		if opts.MaxItemsPerCategory > 0 && kept[item.Category] >= opts.MaxItemsPerCategory {
			continue
		}
		kept[item.Category]++
		report.AddItem(item)
	}

	return report
}
