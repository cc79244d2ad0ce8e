package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedwatch/internal/models"
)

// stripMarkdownCodeBlock removes markdown code block delimiters from AI responses
func stripMarkdownCodeBlock(response string) string {
	response = strings.TrimSpace(response)

	// Find the first { which starts valid JSON
	startIdx := strings.Index(response, "{")
	if startIdx == -1 {
		return response
	}

	// Find the last } which ends valid JSON
	endIdx := strings.LastIndex(response, "}")
	if endIdx == -1 || endIdx < startIdx {
		return response
	}

	// Extract just the JSON object
	return response[startIdx : endIdx+1]
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// SummarizeSection produces a short prose summary of one category section.
func (c *Client) SummarizeSection(ctx context.Context, section *models.CategorySection) (string, error) {
	if section == nil || len(section.Items) == 0 {
		return "", fmt.Errorf("cannot summarize an empty section")
	}

	var sb strings.Builder
	for i, item := range section.Items {
		fmt.Fprintf(&sb, "\n[%d] Title: %s\nAuthor: %s\nSummary: %s\n",
			i, item.Title, item.Author, item.Summary)
	}

	userPrompt := fmt.Sprintf(SectionSummaryUserPrompt, string(section.Category), sb.String())

	response, err := c.CompleteWithJSON(ctx, SectionSummarySystemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	var parsed summaryResponse
	if err := json.Unmarshal([]byte(stripMarkdownCodeBlock(response)), &parsed); err != nil {
		c.log.Error().
			Err(err).
			Str("response", response).
			Msg("Failed to parse section summary response")
		return "", fmt.Errorf("failed to parse section summary response: %w", err)
	}

	return strings.TrimSpace(parsed.Summary), nil
}

// SummarizeReport produces the executive summary for a full daily report.
func (c *Client) SummarizeReport(ctx context.Context, report *models.DailyReport) (string, error) {
	if report == nil || report.TotalItems == 0 {
		return "", fmt.Errorf("cannot summarize an empty report")
	}

	var sb strings.Builder
	for _, section := range report.Sections {
		fmt.Fprintf(&sb, "\n%s (%d items):\n", section.Category, section.ItemCount())
		for _, item := range section.Items {
			fmt.Fprintf(&sb, "- %s\n", item.Title)
		}
	}

	userPrompt := fmt.Sprintf(ExecutiveSummaryUserPrompt,
		report.ReportDate.Format("2006-01-02"),
		report.TotalItems,
		sb.String(),
	)

	response, err := c.CompleteWithJSON(ctx, ExecutiveSummarySystemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	var parsed summaryResponse
	if err := json.Unmarshal([]byte(stripMarkdownCodeBlock(response)), &parsed); err != nil {
		c.log.Error().
			Err(err).
			Str("response", response).
			Msg("Failed to parse executive summary response")
		return "", fmt.Errorf("failed to parse executive summary response: %w", err)
	}

	return strings.TrimSpace(parsed.Summary), nil
}
