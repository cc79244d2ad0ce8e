// Package search holds the in-memory content corpus and answers filtered,
// ranked keyword queries over it.
package search

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/pkg/logger"
)

// Engine is the search index. Index, Clear and Search may be called from
// multiple goroutines; a single RWMutex gives the single-writer,
// multi-reader discipline.
type Engine struct {
	mu    sync.RWMutex
	items []*models.ContentItem
	log   *logger.Logger
}

// NewEngine creates an empty search engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log.WithComponent("search")}
}

// Index appends items to the corpus. It does not deduplicate: callers
// rebuilding from a persisted store must not index the same item twice
// if exact-count statistics matter.
func (e *Engine) Index(items []*models.ContentItem) {
	e.mu.Lock()
	e.items = append(e.items, items...)
	total := len(e.items)
	e.mu.Unlock()

	e.log.Info().Int("indexed", len(items)).Int("total", total).Msg("Indexed content items")
}

// Clear drops the whole corpus
func (e *Engine) Clear() {
	e.mu.Lock()
	e.items = nil
	e.mu.Unlock()
	e.log.Info().Msg("Search index cleared")
}

// Size returns the number of indexed items
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// RemoveOlderThan drops items published before the cutoff, along with
// items that carry no published time.
func (e *Engine) RemoveOlderThan(cutoff time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.items[:0]
	for _, item := range e.items {
		if item.Published != nil && !item.Published.Before(cutoff) {
			kept = append(kept, item)
		}
	}
	removed := len(e.items) - len(kept)
	e.items = kept
	if removed > 0 {
		e.log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("Pruned old content")
	}
	return removed
}

// Search evaluates the query against the corpus: filter, score, sort,
// then paginate. An invalid query is rejected outright.
func (e *Engine) Search(query Query) ([]Result, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	q := query.normalized()

	e.mu.RLock()
	var results []Result
	for _, item := range e.items {
		if !matchesFilters(item, q) {
			continue
		}
		rel, matched := relevance(item, q)
		if len(q.Keywords) > 0 && rel == 0 {
			continue
		}
		results = append(results, Result{
			Item:           item,
			RelevanceScore: rel,
			MatchedFields:  matched,
		})
	}
	e.mu.RUnlock()

	sortResults(results, q.SortBy, q.SortOrder)

	start := q.Offset
	if start > len(results) {
		start = len(results)
	}
	end := start + q.Limit
	if end > len(results) {
		end = len(results)
	}
	page := results[start:end]

	e.log.Debug().
		Int("matched", len(results)).
		Int("returned", len(page)).
		Int("offset", q.Offset).
		Int("limit", q.Limit).
		Msg("Search completed")

	return page, nil
}

// Statistics reports corpus counts by source and category plus the span
// of published dates.
func (e *Engine) Statistics() Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := Statistics{
		TotalItems: len(e.items),
		BySource:   make(map[models.Source]int),
		ByCategory: make(map[models.Category]int),
	}
	for _, item := range e.items {
		stats.BySource[item.Source]++
		stats.ByCategory[item.Category]++
		if item.Published == nil {
			continue
		}
		if stats.DateRange == nil {
			stats.DateRange = &DateRange{Earliest: *item.Published, Latest: *item.Published}
			continue
		}
		if item.Published.Before(stats.DateRange.Earliest) {
			stats.DateRange.Earliest = *item.Published
		}
		if item.Published.After(stats.DateRange.Latest) {
			stats.DateRange.Latest = *item.Published
		}
	}
	return stats
}

// matchesFilters applies the non-keyword filters. An item with no
// published time is never rejected by a date range.
func matchesFilters(item *models.ContentItem, q Query) bool {
	if len(q.Categories) > 0 && !containsCategory(q.Categories, item.Category) {
		return false
	}
	if len(q.Sources) > 0 && !containsSource(q.Sources, item.Source) {
		return false
	}
	if q.MinImportance != nil && item.ImportanceScore < *q.MinImportance {
		return false
	}
	if q.MaxImportance != nil && item.ImportanceScore > *q.MaxImportance {
		return false
	}
	if item.Published != nil {
		if q.StartDate != nil && item.Published.Before(*q.StartDate) {
			return false
		}
		if q.EndDate != nil && item.Published.After(*q.EndDate) {
			return false
		}
	}
	return true
}

// relevance scores keyword matches across the query's field scope.
// Per matched keyword a field contributes weight * (1 + 0.5*min(count-1, 3));
// the raw sum is normalized against len(keywords)*3.0, the score of every
// keyword matching once in the title.
func relevance(item *models.ContentItem, q Query) (float64, []string) {
	if len(q.Keywords) == 0 {
		return 1.0, nil
	}

	texts := make(map[string]string, len(q.SearchIn))
	for _, field := range q.SearchIn {
		var text string
		switch field {
		case FieldTitle:
			text = item.Title
		case FieldSummary:
			text = item.Summary
		case FieldAuthor:
			text = item.Author
		}
		if text == "" {
			continue
		}
		if !q.CaseSensitive {
			text = strings.ToLower(text)
		}
		texts[field] = text
	}

	keywords := q.Keywords
	if !q.CaseSensitive {
		keywords = make([]string, len(q.Keywords))
		for i, k := range q.Keywords {
			keywords[i] = strings.ToLower(k)
		}
	}

	var score float64
	var matched []string
	for _, field := range q.SearchIn {
		text, ok := texts[field]
		if !ok {
			continue
		}
		fieldMatched := false
		for _, keyword := range keywords {
			count := strings.Count(text, keyword)
			if count == 0 {
				continue
			}
			fieldMatched = true
			extra := count - 1
			if extra > 3 {
				extra = 3
			}
			score += fieldWeights[field] * (1.0 + 0.5*float64(extra))
		}
		if fieldMatched {
			matched = append(matched, field)
		}
	}

	normalized := score / (float64(len(keywords)) * 3.0)
	if normalized > 1.0 {
		normalized = 1.0
	}
	return normalized, matched
}

func sortResults(results []Result, sortBy, order string) {
	desc := order != OrderAsc
	less := func(i, j int) bool { return false }

	switch sortBy {
	case SortByImportance:
		less = func(i, j int) bool {
			return results[i].Item.ImportanceScore < results[j].Item.ImportanceScore
		}
	case SortByDate:
		// Absent published times sort as the zero time, placing undated
		// items last in descending order.
		less = func(i, j int) bool {
			return publishedOrZero(results[i].Item).Before(publishedOrZero(results[j].Item))
		}
	default: // relevance
		less = func(i, j int) bool {
			return results[i].RelevanceScore < results[j].RelevanceScore
		}
	}

	if desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(results, less)
}

func publishedOrZero(item *models.ContentItem) time.Time {
	if item.Published == nil {
		return time.Time{}
	}
	return *item.Published
}

func containsCategory(list []models.Category, c models.Category) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

func containsSource(list []models.Source, s models.Source) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
