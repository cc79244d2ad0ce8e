package search

import (
	"fmt"
	"time"

	"github.com/feedwatch/internal/models"
)

// Searchable fields
const (
	FieldTitle   = "title"
	FieldSummary = "summary"
	FieldAuthor  = "author"
)

// Sort keys
const (
	SortByRelevance  = "relevance"
	SortByDate       = "date"
	SortByImportance = "importance"
)

// Sort orders
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// fieldWeights bias relevance toward title matches
var fieldWeights = map[string]float64{
	FieldTitle:   3.0,
	FieldSummary: 1.5,
	FieldAuthor:  1.0,
}

// Query describes one search request. Filters combine with AND semantics
// across filter types and OR semantics within each list.
type Query struct {
	Keywords      []string
	SearchIn      []string // fields to match against; defaults to title+summary
	CaseSensitive bool

	Categories []models.Category
	Sources    []models.Source

	MinImportance *float64
	MaxImportance *float64

	StartDate *time.Time
	EndDate   *time.Time

	SortBy    string // relevance, date or importance; defaults to relevance
	SortOrder string // asc or desc; defaults to desc

	Limit  int // defaults to 20
	Offset int
}

// DefaultQuery returns a query with the default field scope, sorting
// and pagination.
func DefaultQuery() Query {
	return Query{
		SearchIn:  []string{FieldTitle, FieldSummary},
		SortBy:    SortByRelevance,
		SortOrder: OrderDesc,
		Limit:     20,
	}
}

// normalized fills in defaults without mutating the caller's query
func (q Query) normalized() Query {
	if len(q.SearchIn) == 0 {
		q.SearchIn = []string{FieldTitle, FieldSummary}
	}
	if q.SortBy == "" {
		q.SortBy = SortByRelevance
	}
	if q.SortOrder == "" {
		q.SortOrder = OrderDesc
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	return q
}

// Validate rejects queries with unknown field names, sort keys, filter
// values or inverted ranges. Invalid filters are reported with the
// offending value, never silently dropped.
func (q Query) Validate() error {
	for _, field := range q.SearchIn {
		if _, ok := fieldWeights[field]; !ok {
			return fmt.Errorf("invalid search field: %q", field)
		}
	}
	switch q.SortBy {
	case "", SortByRelevance, SortByDate, SortByImportance:
	default:
		return fmt.Errorf("invalid sort key: %q", q.SortBy)
	}
	switch q.SortOrder {
	case "", OrderAsc, OrderDesc:
	default:
		return fmt.Errorf("invalid sort order: %q", q.SortOrder)
	}
	for _, c := range q.Categories {
		if _, err := models.ParseCategory(string(c)); err != nil {
			return err
		}
	}
	for _, s := range q.Sources {
		if _, err := models.ParseSource(string(s)); err != nil {
			return err
		}
	}
	if q.MinImportance != nil && (*q.MinImportance < 0 || *q.MinImportance > 1) {
		return fmt.Errorf("invalid min importance %v: must be within [0, 1]", *q.MinImportance)
	}
	if q.MaxImportance != nil && (*q.MaxImportance < 0 || *q.MaxImportance > 1) {
		return fmt.Errorf("invalid max importance %v: must be within [0, 1]", *q.MaxImportance)
	}
	if q.MinImportance != nil && q.MaxImportance != nil && *q.MinImportance > *q.MaxImportance {
		return fmt.Errorf("invalid importance range: min %v exceeds max %v", *q.MinImportance, *q.MaxImportance)
	}
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return fmt.Errorf("invalid date range: start %s is after end %s",
			q.StartDate.Format(time.RFC3339), q.EndDate.Format(time.RFC3339))
	}
	if q.Offset < 0 {
		return fmt.Errorf("invalid offset: %d", q.Offset)
	}
	return nil
}

// Result wraps a reference to an indexed item with its computed
// relevance. Results never copy corpus items.
type Result struct {
	Item           *models.ContentItem `json:"item"`
	RelevanceScore float64             `json:"relevance_score"`
	MatchedFields  []string            `json:"matched_fields"`
}

// Statistics summarize the indexed corpus
type Statistics struct {
	TotalItems int                     `json:"total_items"`
	BySource   map[models.Source]int   `json:"by_source"`
	ByCategory map[models.Category]int `json:"by_category"`
	DateRange  *DateRange              `json:"date_range,omitempty"`
}

// DateRange is the span of published times across dated items
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}
