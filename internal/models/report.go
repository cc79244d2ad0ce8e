package models

import (
	"time"
)

// CategorySection is one category's slice of a daily report
type CategorySection struct {
	Category  Category       `json:"category"`
	Items     []*ContentItem `json:"items"`
	AISummary string         `json:"ai_summary,omitempty"`
}

// ItemCount returns the number of items in the section
func (s *CategorySection) ItemCount() int {
	return len(s.Items)
}

// AverageImportance returns the mean importance score of the section's items
func (s *CategorySection) AverageImportance() float64 {
	if len(s.Items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range s.Items {
		sum += item.ImportanceScore
	}
	return sum / float64(len(s.Items))
}

// DailyReport is a dated aggregation of content from all monitored sources.
// It is built once per aggregation run and must not be mutated after it has
// been handed to the archive store.
type DailyReport struct {
	ReportDate       time.Time          `json:"report_date"`
	Title            string             `json:"title"`
	Sections         []*CategorySection `json:"sections"`
	ExecutiveSummary string             `json:"executive_summary,omitempty"`
	TrendingTopics   []string           `json:"trending_topics,omitempty"`
	TotalItems       int                `json:"total_items"`
	SourceCounts     map[Source]int     `json:"source_counts"`
	GenerationTime   *time.Time         `json:"generation_time,omitempty"`
}

// NewDailyReport creates an empty report for the given date
func NewDailyReport(date time.Time, title string) *DailyReport {
	return &DailyReport{
		ReportDate:   date,
		Title:        title,
		SourceCounts: make(map[Source]int),
	}
}

// Section returns the section for a category, or nil if absent
func (r *DailyReport) Section(category Category) *CategorySection {
	for _, s := range r.Sections {
		if s.Category == category {
			return s
		}
	}
	return nil
}

// AddItem appends an item to its category's section, creating the section
// if needed, and updates the report counters.
func (r *DailyReport) AddItem(item *ContentItem) {
	section := r.Section(item.Category)
	if section == nil {
		section = &CategorySection{Category: item.Category}
		r.Sections = append(r.Sections, section)
	}
	section.Items = append(section.Items, item)
	r.TotalItems++
	if r.SourceCounts == nil {
		r.SourceCounts = make(map[Source]int)
	}
	r.SourceCounts[item.Source]++
}

// AllItems returns every item from every section, in section order
func (r *DailyReport) AllItems() []*ContentItem {
	var items []*ContentItem
	for _, s := range r.Sections {
		items = append(items, s.Items...)
	}
	return items
}

// HighImportanceItems returns items at or above the given threshold
func (r *DailyReport) HighImportanceItems(threshold float64) []*ContentItem {
	var items []*ContentItem
	for _, item := range r.AllItems() {
		if item.ImportanceScore >= threshold {
			items = append(items, item)
		}
	}
	return items
}

// Clone returns a deep copy of the report. Archiving and indexing hold
// independent copies so no component mutates another's report.
func (r *DailyReport) Clone() *DailyReport {
	c := NewDailyReport(r.ReportDate, r.Title)
	c.ExecutiveSummary = r.ExecutiveSummary
	c.TrendingTopics = append([]string(nil), r.TrendingTopics...)
	if r.GenerationTime != nil {
		t := *r.GenerationTime
		c.GenerationTime = &t
	}
	for _, s := range r.Sections {
		section := &CategorySection{Category: s.Category, AISummary: s.AISummary}
		for _, item := range s.Items {
			section.Items = append(section.Items, item.Clone())
		}
		c.Sections = append(c.Sections, section)
	}
	c.TotalItems = r.TotalItems
	for src, n := range r.SourceCounts {
		c.SourceCounts[src] = n
	}
	return c
}
