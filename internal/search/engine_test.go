package search

import (
	"strings"
	"testing"
	"time"

	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/pkg/logger"
)

func testEngine(items ...*models.ContentItem) *Engine {
	e := NewEngine(logger.New(logger.Config{Level: "error", Format: "json"}))
	e.Index(items)
	return e
}

func at(t time.Time) *time.Time { return &t }

func corpus() []*models.ContentItem {
	base := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	return []*models.ContentItem{
		{Title: "AI breakthrough in robotics", URL: "u1", Source: models.SourceVideo,
			Category: models.CategoryTechnology, ImportanceScore: 0.9, Published: at(base)},
		{Title: "Understanding AI safety", URL: "u2", Source: models.SourceRSS,
			Category: models.CategoryTechnology, ImportanceScore: 0.7,
			Summary: "a primer on AI alignment and AI risk", Published: at(base.Add(24 * time.Hour))},
		{Title: "Best pasta recipes", URL: "u3", Source: models.SourceRSS,
			Category: models.CategoryLifestyle, ImportanceScore: 0.5, Published: at(base.Add(48 * time.Hour))},
		{Title: "Weekly gaming news", URL: "u4", Source: models.SourceVideo,
			Category: models.CategoryEntertainment, ImportanceScore: 0.6},
		{Title: "AI in education", URL: "u5", Source: models.SourceRSS,
			Category: models.CategoryEducation, ImportanceScore: 0.4, Published: at(base.Add(-24 * time.Hour))},
	}
}

func TestSearchKeywordAndCategoryFilter(t *testing.T) {
	e := testEngine(corpus()...)

	q := DefaultQuery()
	q.Keywords = []string{"AI"}
	q.Categories = []models.Category{models.CategoryTechnology}

	results, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Item.Category != models.CategoryTechnology {
			t.Errorf("result %q fails category filter", r.Item.Title)
		}
		if !strings.Contains(strings.ToLower(r.Item.Title+r.Item.Summary), "ai") {
			t.Errorf("result %q does not contain the keyword", r.Item.Title)
		}
	}
	// Sorted by relevance descending.
	for i := 1; i < len(results); i++ {
		if results[i].RelevanceScore > results[i-1].RelevanceScore {
			t.Error("results not sorted by relevance descending")
		}
	}
}

func TestSearchZeroRelevanceExcluded(t *testing.T) {
	e := testEngine(corpus()...)

	q := DefaultQuery()
	q.Keywords = []string{"quantum"}

	results, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results for an unmatched keyword, want 0", len(results))
	}

	q.Keywords = []string{"AI"}
	results, err = e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		if r.RelevanceScore == 0 {
			t.Errorf("result %q has zero relevance with keywords present", r.Item.Title)
		}
	}
}

func TestSearchFilterOnlyMode(t *testing.T) {
	e := testEngine(corpus()...)

	q := DefaultQuery()
	q.Sources = []models.Source{models.SourceVideo}

	results, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.RelevanceScore != 1.0 {
			t.Errorf("filter-only relevance = %v, want 1.0", r.RelevanceScore)
		}
		if r.Item.Source != models.SourceVideo {
			t.Errorf("result %q fails source filter", r.Item.Title)
		}
	}
}

func TestSearchImportanceAndDateFilters(t *testing.T) {
	e := testEngine(corpus()...)

	min := 0.55
	start := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 22, 23, 0, 0, 0, time.UTC)

	q := DefaultQuery()
	q.MinImportance = &min
	q.StartDate = &start
	q.EndDate = &end

	results, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	var titles []string
	for _, r := range results {
		titles = append(titles, r.Item.Title)
		if r.Item.ImportanceScore < min {
			t.Errorf("result %q fails importance filter", r.Item.Title)
		}
		if r.Item.Published != nil &&
			(r.Item.Published.Before(start) || r.Item.Published.After(end)) {
			t.Errorf("result %q fails date filter", r.Item.Title)
		}
	}
	// The undated gaming item passes the date range (absence never fails a
	// date filter) and its 0.6 passes the importance floor.
	found := false
	for _, title := range titles {
		if title == "Weekly gaming news" {
			found = true
		}
	}
	if !found {
		t.Errorf("undated item should pass the date filter, got %v", titles)
	}
}

func TestSearchCaseSensitivity(t *testing.T) {
	e := testEngine(&models.ContentItem{
		Title: "CPU design", URL: "u", Source: models.SourceRSS,
		Category: models.CategoryTechnology, ImportanceScore: 0.5,
	})

	q := DefaultQuery()
	q.Keywords = []string{"cpu"}
	q.CaseSensitive = true
	results, err := e.Search(q)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Error("case-sensitive search should not match differing case")
	}

	q.CaseSensitive = false
	results, err = e.Search(q)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Error("case-insensitive search should match")
	}
}

func TestRelevanceWeighting(t *testing.T) {
	titleHit := &models.ContentItem{Title: "AI news", URL: "u1", Source: models.SourceRSS,
		Category: models.CategoryTechnology, ImportanceScore: 0.5}
	summaryHit := &models.ContentItem{Title: "tech roundup", URL: "u2", Source: models.SourceRSS,
		Category: models.CategoryTechnology, ImportanceScore: 0.5, Summary: "AI everywhere"}

	e := testEngine(titleHit, summaryHit)

	q := DefaultQuery()
	q.Keywords = []string{"AI"}
	results, err := e.Search(q)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Item.URL != "u1" {
		t.Error("title match should outrank summary match")
	}
	// Single keyword matching once in title normalizes to exactly 1.0.
	if results[0].RelevanceScore != 1.0 {
		t.Errorf("title-hit relevance = %v, want 1.0", results[0].RelevanceScore)
	}
	if results[1].RelevanceScore != 0.5 {
		t.Errorf("summary-hit relevance = %v, want 0.5", results[1].RelevanceScore)
	}
	if len(results[1].MatchedFields) != 1 || results[1].MatchedFields[0] != FieldSummary {
		t.Errorf("MatchedFields = %v, want [summary]", results[1].MatchedFields)
	}
}

func TestRelevanceDiminishingReturns(t *testing.T) {
	many := &models.ContentItem{Title: "go go go go go go go go", URL: "u1",
		Source: models.SourceRSS, Category: models.CategoryOther, ImportanceScore: 0.5}

	e := testEngine(many)
	q := DefaultQuery()
	q.Keywords = []string{"go"}
	q.SearchIn = []string{FieldTitle}

	results, err := e.Search(q)
	if err != nil {
		t.Fatal(err)
	}
	// 8 occurrences cap at 3 extras: 3.0 * (1 + 0.5*3) / 3.0 = 2.5, clamped to 1.
	if results[0].RelevanceScore != 1.0 {
		t.Errorf("relevance = %v, want clamped 1.0", results[0].RelevanceScore)
	}
}

func TestSearchDateSortPlacesUndatedLast(t *testing.T) {
	e := testEngine(corpus()...)

	q := DefaultQuery()
	q.SortBy = SortByDate

	results, err := e.Search(q)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	if results[len(results)-1].Item.Published != nil {
		t.Error("undated item should sort last in descending date order")
	}
	for i := 1; i < len(results)-1; i++ {
		if results[i].Item.Published.After(*results[i-1].Item.Published) {
			t.Error("dated results not in descending order")
		}
	}
}

func TestSearchPagination(t *testing.T) {
	e := testEngine(corpus()...)

	q := DefaultQuery()
	q.SortBy = SortByImportance
	q.Limit = 2
	q.Offset = 2

	results, err := e.Search(q)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Item.ImportanceScore != 0.6 {
		t.Errorf("page starts at score %v, want 0.6", results[0].Item.ImportanceScore)
	}

	q.Offset = 100
	results, err = e.Search(q)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Error("offset past the end should return an empty page")
	}
}

func TestSearchRejectsInvalidQueries(t *testing.T) {
	e := testEngine(corpus()...)
	lo, hi := 0.8, 0.2
	bad := -0.5
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(*Query)
	}{
		{"bad field", func(q *Query) { q.SearchIn = []string{"body"} }},
		{"bad sort key", func(q *Query) { q.SortBy = "popularity" }},
		{"bad sort order", func(q *Query) { q.SortOrder = "sideways" }},
		{"bad category", func(q *Query) { q.Categories = []models.Category{"sports"} }},
		{"bad source", func(q *Query) { q.Sources = []models.Source{"telegram"} }},
		{"inverted importance range", func(q *Query) { q.MinImportance, q.MaxImportance = &lo, &hi }},
		{"importance out of bounds", func(q *Query) { q.MinImportance = &bad }},
		{"inverted date range", func(q *Query) { q.StartDate, q.EndDate = &start, &end }},
		{"negative offset", func(q *Query) { q.Offset = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := DefaultQuery()
			tt.mutate(&q)
			if _, err := e.Search(q); err == nil {
				t.Error("Search accepted an invalid query")
			}
		})
	}
}

func TestStatistics(t *testing.T) {
	e := testEngine(corpus()...)

	stats := e.Statistics()
	if stats.TotalItems != 5 {
		t.Errorf("TotalItems = %d, want 5", stats.TotalItems)
	}
	if stats.BySource[models.SourceVideo] != 2 || stats.BySource[models.SourceRSS] != 3 {
		t.Errorf("BySource = %v", stats.BySource)
	}
	if stats.ByCategory[models.CategoryTechnology] != 2 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
	if stats.DateRange == nil {
		t.Fatal("DateRange missing")
	}
	wantEarliest := time.Date(2025, 5, 19, 10, 0, 0, 0, time.UTC)
	wantLatest := time.Date(2025, 5, 22, 10, 0, 0, 0, time.UTC)
	if !stats.DateRange.Earliest.Equal(wantEarliest) || !stats.DateRange.Latest.Equal(wantLatest) {
		t.Errorf("DateRange = %+v", stats.DateRange)
	}

	e.Clear()
	stats = e.Statistics()
	if stats.TotalItems != 0 || stats.DateRange != nil {
		t.Errorf("cleared engine stats = %+v", stats)
	}
}

func TestRemoveOlderThan(t *testing.T) {
	e := testEngine(corpus()...)

	cutoff := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	removed := e.RemoveOlderThan(cutoff)

	// One dated item precedes the cutoff and one item is undated.
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if e.Size() != 3 {
		t.Errorf("Size = %d, want 3", e.Size())
	}
}
