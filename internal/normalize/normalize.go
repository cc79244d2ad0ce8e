// Package normalize converts loosely-typed source records into ContentItems.
//
// External payloads arrive as maps with source-specific field names; this
// package is the single boundary where their shape is checked, so the rest
// of the pipeline only ever sees well-formed items. A malformed record
// yields a ValidationError the caller can skip without aborting its batch.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/feedwatch/internal/models"
)

// MaxSummaryLength caps summaries at normalization time so the corpus
// cannot grow unboundedly from one verbose source.
const MaxSummaryLength = 500

// Field alias priority: the first non-empty match wins.
var (
	titleAliases     = []string{"title"}
	urlAliases       = []string{"url", "link", "href"}
	summaryAliases   = []string{"description", "desc", "dynamic", "summary", "content"}
	authorAliases    = []string{"author", "up_name", "creator"}
	publishedAliases = []string{"published", "pubdate", "created", "updated", "timestamp"}
	idAliases        = []string{"id", "bvid", "guid", "link", "url"}
)

// ValidationError reports a record that cannot be normalized
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: field %q %s", e.Field, e.Reason)
}

// Normalize converts a raw source record into a ContentItem. Title and URL
// are required; everything else is best-effort.
func Normalize(raw models.RawRecord, source models.Source) (*models.ContentItem, error) {
	title := firstString(raw, titleAliases)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "is missing or empty"}
	}

	url := firstString(raw, urlAliases)
	if url == "" {
		return nil, &ValidationError{Field: "url", Reason: "is missing or empty"}
	}

	item := &models.ContentItem{
		Title:           title,
		URL:             url,
		Source:          source,
		Author:          firstString(raw, authorAliases),
		Summary:         Truncate(firstString(raw, summaryAliases), MaxSummaryLength),
		Category:        models.CategoryOther,
		ImportanceScore: 0.5,
		Published:       firstTimestamp(raw, publishedAliases),
	}

	if tags, ok := raw["tags"]; ok {
		item.Tags = stringList(tags)
	}
	if data, ok := raw["source_data"].(map[string]interface{}); ok {
		item.SourceData = models.JSON(data)
	}

	return item, nil
}

// Identifier extracts the best available unique identifier from a raw
// record, or "" if none is present. The tracker treats "" as never-new.
func Identifier(raw models.RawRecord) string {
	return firstString(raw, idAliases)
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func firstString(raw models.RawRecord, aliases []string) string {
	for _, key := range aliases {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// firstTimestamp resolves the first parsable timestamp among the aliases.
// Numeric values are epoch seconds; strings go through dateparse, which
// covers ISO-8601 and the looser formats feeds actually emit. Unparsable
// values yield nil, never an error.
func firstTimestamp(raw models.RawRecord, aliases []string) *time.Time {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if t := parseTimestamp(v); t != nil {
			return t
		}
	}
	return nil
}

func parseTimestamp(v interface{}) *time.Time {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return &val
	case *time.Time:
		if val == nil || val.IsZero() {
			return nil
		}
		t := *val
		return &t
	case float64:
		if val <= 0 {
			return nil
		}
		t := time.Unix(int64(val), 0)
		return &t
	case int64:
		if val <= 0 {
			return nil
		}
		t := time.Unix(val, 0)
		return &t
	case int:
		if val <= 0 {
			return nil
		}
		t := time.Unix(int64(val), 0)
		return &t
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return nil
		}
		return &t
	}
	return nil
}

func stringList(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
