package report

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/feedwatch/internal/aggregate"
	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/pkg/logger"
)

// maxTrendingTopics caps the trending list on a report.
const maxTrendingTopics = 10

// Summarizer produces prose summaries for report sections. Satisfied by
// ai.Client; a nil Summarizer disables AI enrichment entirely.
type Summarizer interface {
	SummarizeSection(ctx context.Context, section *models.CategorySection) (string, error)
	SummarizeReport(ctx context.Context, report *models.DailyReport) (string, error)
}

// Generator builds daily reports from per-source batches
type Generator struct {
	opts       aggregate.Options
	summarizer Summarizer
	log        *logger.Logger
}

func NewGenerator(opts aggregate.Options, summarizer Summarizer, log *logger.Logger) *Generator {
	return &Generator{
		opts:       opts,
		summarizer: summarizer,
		log:        log.WithComponent("report"),
	}
}

// Generate aggregates the batches into a report, extracts trending topics
// and, when a summarizer is configured, attaches section summaries and an
// executive summary. Summarization failures degrade the report instead of
// failing it: the affected summary fields stay empty.
func (g *Generator) Generate(ctx context.Context, batches []models.SourceBatch) *models.DailyReport {
	now := time.Now()
	report := aggregate.Aggregate(batches, g.opts, now)
	report.TrendingTopics = TrendingTopics(report.AllItems(), maxTrendingTopics)

	if g.summarizer != nil && report.TotalItems > 0 {
		g.enrich(ctx, report)
	}

	g.log.Info().
		Int("total_items", report.TotalItems).
		Int("sections", len(report.Sections)).
		Int("trending", len(report.TrendingTopics)).
		Msg("Report generated")

	return report
}

func (g *Generator) enrich(ctx context.Context, report *models.DailyReport) {
	for _, section := range report.Sections {
		summary, err := g.summarizer.SummarizeSection(ctx, section)
		if err != nil {
			g.log.Warn().
				Err(err).
				Str("category", string(section.Category)).
				Msg("Section summary failed, leaving section unsummarized")
			continue
		}
		section.AISummary = summary
	}

	summary, err := g.summarizer.SummarizeReport(ctx, report)
	if err != nil {
		g.log.Warn().Err(err).Msg("Executive summary failed, leaving report unsummarized")
		return
	}
	report.ExecutiveSummary = summary
}

// TrendingTopics extracts the most frequent title words across the given
// items. Words shorter than two characters are ignored and counting is
// case-insensitive. Ties break alphabetically so the result is stable.
func TrendingTopics(items []*models.ContentItem, limit int) []string {
	counts := make(map[string]int)
	for _, item := range items {
		for _, word := range splitWords(item.Title) {
			counts[word]++
		}
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

func splitWords(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var words []string
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			words = append(words, f)
		}
	}
	return words
}
