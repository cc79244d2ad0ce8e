package storage

import (
	"context"
	"time"

	"github.com/feedwatch/internal/models"
)

// Repository defines the interface for content persistence
type Repository interface {
	// Item operations
	SaveItem(ctx context.Context, item *models.ContentItem) error
	SaveItems(ctx context.Context, items []*models.ContentItem) (int, error)
	GetItemByURL(ctx context.Context, url string, source models.Source) (*models.ContentItem, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]*models.ContentItem, error)
	CountItems(ctx context.Context) (int64, error)
	DeleteItemsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Maintenance
	Close() error
	Migrate() error
}

// ItemFilter defines filtering options for content items
type ItemFilter struct {
	Source    *models.Source
	Category  *models.Category
	Since     *time.Time
	MinScore  *float64
	Limit     int
	Offset    int
	OrderBy   string // "importance_score", "published", "created_at"
	OrderDesc bool
}

// DefaultItemFilter returns a filter with sensible defaults
func DefaultItemFilter() ItemFilter {
	return ItemFilter{
		Limit:     500,
		OrderBy:   "published",
		OrderDesc: true,
	}
}
