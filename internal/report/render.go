package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedwatch/internal/models"
)

// RenderJSON serializes a report as indented JSON.
func RenderJSON(report *models.DailyReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render report as JSON: %w", err)
	}
	return data, nil
}

// RenderMarkdown formats a report as a human-readable markdown digest.
func RenderMarkdown(report *models.DailyReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", report.Title)
	fmt.Fprintf(&sb, "Date: %s | Items: %d\n\n", report.ReportDate.Format("2006-01-02"), report.TotalItems)

	if report.ExecutiveSummary != "" {
		fmt.Fprintf(&sb, "%s\n\n", report.ExecutiveSummary)
	}

	if len(report.TrendingTopics) > 0 {
		fmt.Fprintf(&sb, "**Trending:** %s\n\n", strings.Join(report.TrendingTopics, ", "))
	}

	for _, section := range report.Sections {
		fmt.Fprintf(&sb, "## %s (%d)\n\n", sectionTitle(section.Category), section.ItemCount())
		if section.AISummary != "" {
			fmt.Fprintf(&sb, "%s\n\n", section.AISummary)
		}
		for _, item := range section.Items {
			fmt.Fprintf(&sb, "- [%s](%s)", item.Title, item.URL)
			if item.Author != "" {
				fmt.Fprintf(&sb, " by %s", item.Author)
			}
			fmt.Fprintf(&sb, " (%.2f)\n", item.ImportanceScore)
		}
		sb.WriteString("\n")
	}

	if len(report.SourceCounts) > 0 {
		sb.WriteString("---\n")
		for _, src := range []models.Source{models.SourceVideo, models.SourceRSS, models.SourceOther} {
			if n, ok := report.SourceCounts[src]; ok {
				fmt.Fprintf(&sb, "%s: %d  ", src, n)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func sectionTitle(category models.Category) string {
	s := string(category)
	if s == "" {
		return "Uncategorized"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
