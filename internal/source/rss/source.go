package rss

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/feedwatch/internal/config"
	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/internal/source"
	"github.com/feedwatch/pkg/logger"
)

// Source implements source.ContentSource for a single RSS/Atom feed
type Source struct {
	name   string
	url    string
	parser *gofeed.Parser
	log    *logger.Logger
}

// New creates a new RSS source for a single feed
func New(feed config.RSSFeed, log *logger.Logger) *Source {
	return &Source{
		name:   feed.Name,
		url:    feed.URL,
		parser: gofeed.NewParser(),
		log:    log.WithSource("rss", feed.Name),
	}
}

// NewMultiple creates multiple RSS sources from config
func NewMultiple(cfg config.RSSConfig, log *logger.Logger) []*Source {
	sources := make([]*Source, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		sources = append(sources, New(feed, log))
	}
	return sources
}

// Name returns the source name
func (s *Source) Name() string {
	return s.name
}

// Source returns the rss origin
func (s *Source) Source() models.Source {
	return models.SourceRSS
}

// Fetch retrieves the feed's entries as raw records
func (s *Source) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	s.log.Debug().Str("url", s.url).Msg("Fetching RSS feed")

	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed %s: %w", s.name, err)
	}

	records := make([]models.RawRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		record := models.RawRecord{
			"title":       cleanText(item.Title),
			"link":        item.Link,
			"description": cleanText(item.Description),
			"guid":        item.GUID,
			"source_data": map[string]interface{}{
				"feed_url":   s.url,
				"feed_name":  s.name,
				"guid":       item.GUID,
				"categories": item.Categories,
			},
		}
		if item.PublishedParsed != nil {
			record["published"] = *item.PublishedParsed
		} else if item.Published != "" {
			record["published"] = item.Published
		}
		if item.Author != nil && item.Author.Name != "" {
			record["author"] = item.Author.Name
		}
		if len(item.Categories) > 0 {
			record["tags"] = item.Categories
		}
		records = append(records, record)
	}

	s.log.Info().
		Int("count", len(records)).
		Str("feed", s.name).
		Msg("Fetched RSS entries")

	return records, nil
}

// HealthCheck verifies the RSS feed is accessible
func (s *Source) HealthCheck(ctx context.Context) error {
	_, err := s.parser.ParseURLWithContext(s.url, ctx)
	return err
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "<br/>", " ")
	text = strings.ReplaceAll(text, "<br />", " ")
	text = strings.ReplaceAll(text, "</p>", " ")
	text = strings.ReplaceAll(text, "<p>", "")

	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
		} else if r == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(r)
		}
	}

	text = result.String()
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// Ensure Source implements source.ContentSource
var _ source.ContentSource = (*Source)(nil)
