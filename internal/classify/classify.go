// Package classify assigns categories and importance scores to content.
// Both functions are pure and deterministic.
package classify

import (
	"strings"
	"time"

	"github.com/feedwatch/internal/models"
)

// categoryKeywords maps each category to its trigger keywords. The category
// with the most distinct keywords present (case-insensitive substring match
// against title+summary) wins; ties go to the earlier entry in
// models.Categories.
var categoryKeywords = map[models.Category][]string{
	models.CategoryTechnology: {
		"tech", "programming", "code", "software", "hardware", "developer",
		"ai", "artificial intelligence", "machine learning", "deep learning",
		"algorithm", "engineering",
	},
	models.CategoryEntertainment: {
		"entertainment", "game", "gaming", "movie", "film", "music", "anime",
		"series", "show", "celebrity", "trailer",
	},
	models.CategoryEducation: {
		"education", "tutorial", "course", "lesson", "learning", "lecture",
		"explained", "beginner", "guide", "how to",
	},
	models.CategoryNews: {
		"news", "breaking", "report", "announcement", "update", "event",
		"headline",
	},
	models.CategoryLifestyle: {
		"lifestyle", "food", "cooking", "travel", "health", "fitness",
		"fashion", "photography", "vlog", "daily",
	},
}

// Categorize picks the category whose keyword set best matches the
// concatenated title and summary. Zero matches anywhere yields OTHER,
// never an empty category.
func Categorize(title, summary string) models.Category {
	text := strings.ToLower(title)
	if summary != "" {
		text += " " + strings.ToLower(summary)
	}

	best := models.CategoryOther
	bestScore := 0
	for _, category := range models.Categories {
		keywords, ok := categoryKeywords[category]
		if !ok {
			continue
		}
		score := 0
		for _, keyword := range keywords {
			// Each keyword counts once no matter how often it repeats.
			if strings.Contains(text, keyword) {
				score++
			}
		}
		// Strict > keeps ties on the first-declared category.
		if score > bestScore {
			best = category
			bestScore = score
		}
	}
	return best
}

// Score computes the importance of an item at the given reference time.
// Base 0.5, plus a recency bonus that decays linearly over the first 24h
// (flat +0.1 out to 72h), +0.1 for a non-empty summary, and +0.05 for
// video content. The result is always within [0, 1].
func Score(published *time.Time, hasSummary bool, source models.Source, now time.Time) float64 {
	score := 0.5

	if published != nil {
		ageHours := now.Sub(*published).Hours()
		if ageHours >= 0 {
			if ageHours < 24 {
				score += 0.3 * (1 - ageHours/24)
			} else if ageHours < 72 {
				score += 0.1
			}
		}
	}

	if hasSummary {
		score += 0.1
	}

	if source == models.SourceVideo {
		score += 0.05
	}

	return models.ClampScore(score)
}

// Apply categorizes and scores an item in place
func Apply(item *models.ContentItem, now time.Time) {
	item.Category = Categorize(item.Title, item.Summary)
	item.SetImportance(Score(item.Published, item.HasSummary(), item.Source, now))
}
