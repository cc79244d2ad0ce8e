package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.ContentItem{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Item operations

// SaveItem upserts a single item. The (url, source) pair is the natural
// key: re-saving an already-stored item refreshes its mutable fields
// instead of creating a duplicate row.
func (r *Repository) SaveItem(ctx context.Context, item *models.ContentItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "url"}, {Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "published", "author", "summary",
			"category", "importance_score", "tags", "source_data",
		}),
	}).Create(item).Error
}

// SaveItems upserts a batch of items and returns how many were written.
// A failing item is skipped so one bad row cannot sink the batch.
func (r *Repository) SaveItems(ctx context.Context, items []*models.ContentItem) (int, error) {
	var saved int
	var errs []error
	for _, item := range items {
		if err := r.SaveItem(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("save %q: %w", item.URL, err))
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

func (r *Repository) GetItemByURL(ctx context.Context, url string, source models.Source) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := r.db.WithContext(ctx).
		Where("url = ? AND source = ?", url, source).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) ListItems(ctx context.Context, filter storage.ItemFilter) ([]*models.ContentItem, error) {
	var items []*models.ContentItem
	query := r.db.WithContext(ctx).Model(&models.ContentItem{})

	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Since != nil {
		query = query.Where("published >= ?", *filter.Since)
	}
	if filter.MinScore != nil {
		query = query.Where("importance_score >= ?", *filter.MinScore)
	}

	// Ordering
	orderCol := "published"
	if filter.OrderBy != "" {
		orderCol = filter.OrderBy
	}
	if filter.OrderDesc {
		query = query.Order(orderCol + " DESC")
	} else {
		query = query.Order(orderCol + " ASC")
	}

	// Pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) CountItems(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ContentItem{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteItemsOlderThan removes items published before the cutoff. Items
// without a published date are kept since their age is unknown here;
// the search engine applies its own in-memory policy for those.
func (r *Repository) DeleteItemsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("published < ?", cutoff).
		Delete(&models.ContentItem{})
	return result.RowsAffected, result.Error
}
