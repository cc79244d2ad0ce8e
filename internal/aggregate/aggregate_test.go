package aggregate

import (
	"fmt"
	"testing"
	"time"

	"github.com/feedwatch/internal/models"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func item(title string, category models.Category, score float64, source models.Source) *models.ContentItem {
	return &models.ContentItem{
		Title:           title,
		URL:             "https://example.com/" + title,
		Source:          source,
		Category:        category,
		ImportanceScore: score,
	}
}

func batch(source models.Source, items ...*models.ContentItem) models.SourceBatch {
	return models.SourceBatch{SourceName: string(source), Source: source, Items: items}
}

func TestAggregateImportanceFilter(t *testing.T) {
	batches := []models.SourceBatch{
		batch(models.SourceVideo, item("high", models.CategoryTechnology, 0.9, models.SourceVideo)),
		batch(models.SourceRSS, item("low", models.CategoryTechnology, 0.2, models.SourceRSS)),
	}

	report := Aggregate(batches, Options{MinImportance: 0.3, MaxItemsPerCategory: 10}, testNow)

	if report.TotalItems != 1 {
		t.Fatalf("TotalItems = %d, want 1", report.TotalItems)
	}
	tech := report.Section(models.CategoryTechnology)
	if tech == nil || len(tech.Items) != 1 || tech.Items[0].Title != "high" {
		t.Errorf("technology section should hold exactly the 0.9 item, got %+v", tech)
	}
	if report.SourceCounts[models.SourceVideo] != 1 || report.SourceCounts[models.SourceRSS] != 0 {
		t.Errorf("SourceCounts = %v, want only the kept item counted", report.SourceCounts)
	}
}

func TestAggregateSinceCutoff(t *testing.T) {
	old := testNow.Add(-48 * time.Hour)
	recent := testNow.Add(-1 * time.Hour)

	oldItem := item("old", models.CategoryNews, 0.8, models.SourceRSS)
	oldItem.Published = &old
	recentItem := item("recent", models.CategoryNews, 0.8, models.SourceRSS)
	recentItem.Published = &recent
	undated := item("undated", models.CategoryNews, 0.8, models.SourceRSS)

	report := Aggregate(
		[]models.SourceBatch{batch(models.SourceRSS, oldItem, recentItem, undated)},
		Options{Since: testNow.Add(-24 * time.Hour)},
		testNow,
	)

	if report.TotalItems != 2 {
		t.Fatalf("TotalItems = %d, want 2 (undated items pass the cutoff)", report.TotalItems)
	}
	for _, kept := range report.AllItems() {
		if kept.Title == "old" {
			t.Error("item published before the cutoff must be dropped")
		}
	}
}

func TestAggregateCategoryCap(t *testing.T) {
	var items []*models.ContentItem
	for i := 0; i < 8; i++ {
		items = append(items, item(fmt.Sprintf("t%d", i), models.CategoryTechnology, 0.9-float64(i)*0.05, models.SourceRSS))
	}

	report := Aggregate(
		[]models.SourceBatch{batch(models.SourceRSS, items...)},
		Options{MaxItemsPerCategory: 3},
		testNow,
	)

	for _, section := range report.Sections {
		if len(section.Items) > 3 {
			t.Errorf("section %q holds %d items, cap is 3", section.Category, len(section.Items))
		}
	}
	tech := report.Section(models.CategoryTechnology)
	if tech == nil {
		t.Fatal("missing technology section")
	}
	// The cap keeps the globally highest-scored items.
	for i, want := range []string{"t0", "t1", "t2"} {
		if tech.Items[i].Title != want {
			t.Errorf("tech.Items[%d] = %q, want %q", i, tech.Items[i].Title, want)
		}
	}
}

func TestAggregateStableSort(t *testing.T) {
	// Equal scores keep arrival order: source-check order, then in-source order.
	a := item("from-video", models.CategoryNews, 0.7, models.SourceVideo)
	b := item("from-rss", models.CategoryNews, 0.7, models.SourceRSS)

	report := Aggregate(
		[]models.SourceBatch{batch(models.SourceVideo, a), batch(models.SourceRSS, b)},
		Options{},
		testNow,
	)

	got := report.AllItems()
	if len(got) != 2 || got[0].Title != "from-video" || got[1].Title != "from-rss" {
		t.Errorf("tie order = %v, want arrival order preserved", []string{got[0].Title, got[1].Title})
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	report := Aggregate(nil, Options{MinImportance: 0.3}, testNow)
	if report == nil {
		t.Fatal("Aggregate must not return nil")
	}
	if report.TotalItems != 0 || len(report.Sections) != 0 {
		t.Errorf("empty input should yield empty report, got %d items", report.TotalItems)
	}
	if report.Title == "" {
		t.Error("report should carry a default title")
	}
}

func TestAggregateClassifiesStragglers(t *testing.T) {
	raw := &models.ContentItem{
		Title:  "machine learning tutorial",
		URL:    "https://example.com/ml",
		Source: models.SourceRSS,
	}

	report := Aggregate([]models.SourceBatch{batch(models.SourceRSS, raw)}, Options{}, testNow)

	items := report.AllItems()
	if len(items) != 1 {
		t.Fatalf("TotalItems = %d, want 1", report.TotalItems)
	}
	if items[0].Category == "" {
		t.Error("unclassified item should have been categorized during aggregation")
	}
}
