package repository

import (
	"context"

	"toolshelf/internal/models"

	"gorm.io/gorm"
)

// ToolHistoryRepository appends and reads audit rows. The table is
// append-only; there are deliberately no update or delete operations.
type ToolHistoryRepository interface {
	Append(ctx context.Context, entry *models.ToolHistory) error
	ListForTool(ctx context.Context, toolID uint) ([]*models.ToolHistory, error)
}

type toolHistoryRepository struct {
	db *gorm.DB
}

// NewToolHistoryRepository creates a new tool history repository.
func NewToolHistoryRepository(db *gorm.DB) ToolHistoryRepository {
	return &toolHistoryRepository{db: db}
}

func (r *toolHistoryRepository) Append(ctx context.Context, entry *models.ToolHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *toolHistoryRepository) ListForTool(ctx context.Context, toolID uint) ([]*models.ToolHistory, error) {
	var entries []*models.ToolHistory
	err := r.db.WithContext(ctx).
		Preload("ActorUser").
		Where("tool_id = ?", toolID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
