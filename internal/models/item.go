package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Source identifies the origin platform of a content item
type Source string

const (
	SourceVideo Source = "video"
	SourceRSS   Source = "rss"
	SourceOther Source = "other"
)

// ParseSource converts a string into a Source, rejecting unknown values
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceVideo, SourceRSS, SourceOther:
		return Source(s), nil
	}
	return "", fmt.Errorf("invalid source: %q", s)
}

// Category classifies a content item
type Category string

const (
	CategoryTechnology    Category = "technology"
	CategoryEntertainment Category = "entertainment"
	CategoryEducation     Category = "education"
	CategoryNews          Category = "news"
	CategoryLifestyle     Category = "lifestyle"
	CategoryOther         Category = "other"
)

// Categories lists all categories in declaration order, which decides
// categorization tie-breaks. Report sections follow first-encounter order.
var Categories = []Category{
	CategoryTechnology,
	CategoryEntertainment,
	CategoryEducation,
	CategoryNews,
	CategoryLifestyle,
	CategoryOther,
}

// ParseCategory converts a string into a Category, rejecting unknown values
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if Category(s) == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category: %q", s)
}

// StringSlice is a custom type for storing string arrays in JSON columns
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), s)
}

// JSON is a custom type for storing arbitrary JSON data
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), j)
}

// ContentItem represents one unit of monitored content after normalization
type ContentItem struct {
	ID              uint        `gorm:"primaryKey" json:"-"`
	Title           string      `gorm:"not null" json:"title"`
	URL             string      `gorm:"uniqueIndex:idx_items_url_source;not null" json:"url"`
	Source          Source      `gorm:"uniqueIndex:idx_items_url_source;index" json:"source"`
	Published       *time.Time  `gorm:"index" json:"published,omitempty"`
	Author          string      `json:"author,omitempty"`
	Summary         string      `gorm:"type:text" json:"summary,omitempty"`
	Category        Category    `gorm:"index;default:'other'" json:"category"`
	ImportanceScore float64     `gorm:"default:0.5" json:"importance_score"`
	Tags            StringSlice `gorm:"type:json" json:"tags,omitempty"`
	SourceData      JSON        `gorm:"type:json" json:"source_data,omitempty"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"-"`
}

// ClampScore bounds an importance score to [0, 1]
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// SetImportance assigns the importance score, clamped to [0, 1]
func (i *ContentItem) SetImportance(score float64) {
	i.ImportanceScore = ClampScore(score)
}

// HasSummary reports whether the item carries a non-empty summary
func (i *ContentItem) HasSummary() bool {
	return i.Summary != ""
}

// Clone returns a deep copy of the item
func (i *ContentItem) Clone() *ContentItem {
	c := *i
	if i.Published != nil {
		t := *i.Published
		c.Published = &t
	}
	if i.Tags != nil {
		c.Tags = append(StringSlice(nil), i.Tags...)
	}
	if i.SourceData != nil {
		c.SourceData = make(JSON, len(i.SourceData))
		for k, v := range i.SourceData {
			c.SourceData[k] = v
		}
	}
	return &c
}

// RawRecord is a loosely-typed record as returned by a source fetch,
// before normalization. Keys are source-specific.
type RawRecord map[string]interface{}

// SourceBatch groups the new items produced by one source check
type SourceBatch struct {
	SourceName string         `json:"source_name"`
	Source     Source         `json:"source"`
	Items      []*ContentItem `json:"items"`
}
