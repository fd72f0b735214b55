package repository

import (
	"context"

	"toolshelf/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookmarkRepository defines the interface for bookmark data operations.
type BookmarkRepository interface {
	Add(ctx context.Context, userID, toolID uint) error
	Remove(ctx context.Context, userID, toolID uint) error
	IsBookmarked(ctx context.Context, userID, toolID uint) (bool, error)
	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Tool, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

// NewBookmarkRepository creates a new bookmark repository.
func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

// Add records a bookmark. Bookmarking the same tool twice is a no-op.
func (r *bookmarkRepository) Add(ctx context.Context, userID, toolID uint) error {
	bookmark := models.Bookmark{UserID: userID, ToolID: toolID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&bookmark).Error
}

// Remove deletes a bookmark. Removing a bookmark that does not exist is a
// no-op.
func (r *bookmarkRepository) Remove(ctx context.Context, userID, toolID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND tool_id = ?", userID, toolID).
		Delete(&models.Bookmark{}).Error
}

func (r *bookmarkRepository) IsBookmarked(ctx context.Context, userID, toolID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bookmark{}).
		Where("user_id = ? AND tool_id = ?", userID, toolID).
		Count(&count).Error
	return count > 0, err
}

// ListForUser returns the user's bookmarked tools, most recently saved first.
func (r *bookmarkRepository) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Tool, error) {
	var tools []*models.Tool
	err := r.db.WithContext(ctx).Model(&models.Tool{}).
		Select("tools.*, "+
			"(SELECT COUNT(*) FROM bookmarks b WHERE b.tool_id = tools.id) as bookmarks_count").
		Joins("JOIN bookmarks ON bookmarks.tool_id = tools.id").
		Where("bookmarks.user_id = ?", userID).
		Order("bookmarks.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tools).Error
	return tools, err
}
