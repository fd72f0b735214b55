// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"toolshelf/internal/cache"
	"toolshelf/internal/models"
	"toolshelf/internal/validation"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// maxSlugAttempts bounds how many numeric suffixes are tried before giving up.
const maxSlugAttempts = 10

// ToolListFilter narrows and orders a tool listing query.
type ToolListFilter struct {
	Name       string
	Categories []string
	Pricing    models.ToolPricing
	Status     models.ToolStatus
	Sort       string
	Limit      int
	Offset     int
}

// cacheable reports whether the query is the unfiltered public front page,
// the only listing worth keeping hot.
func (f ToolListFilter) cacheable() bool {
	return f.Name == "" && len(f.Categories) == 0 && f.Pricing == "" &&
		f.Status == models.ToolStatusApproved &&
		(f.Sort == "" || f.Sort == "latest") && f.Offset == 0
}

// ToolRepository defines the interface for tool data operations.
type ToolRepository interface {
	CreateSubmission(ctx context.Context, tool *models.Tool, history *models.ToolHistory) error
	UpdateWithHistory(ctx context.Context, tool *models.Tool, history *models.ToolHistory) error
	GetByID(ctx context.Context, id uint) (*models.Tool, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tool, error)
	List(ctx context.Context, filter ToolListFilter) ([]*models.Tool, int64, error)
	ListBySubmitter(ctx context.Context, userID uint) ([]*models.Tool, error)
	ListCategories(ctx context.Context) ([]CategoryCount, error)
	PermanentlyRejectedExists(ctx context.Context, baseSlug string, userID uint) (bool, error)
}

// CategoryCount is one directory category and how many approved tools carry it.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type toolRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewToolRepository creates a new tool repository.
func NewToolRepository(db *gorm.DB, rdb *redis.Client) ToolRepository {
	return &toolRepository{db: db, rdb: rdb}
}

// CreateSubmission inserts a new tool, its first history row and the
// submitter's running submission count in one transaction. Slug collisions
// are resolved by retrying with numeric suffixes against the unique index.
func (r *toolRepository) CreateSubmission(ctx context.Context, tool *models.Tool, history *models.ToolHistory) error {
	baseSlug := tool.Slug
	var err error
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		tool.Slug = validation.SlugWithSuffix(baseSlug, attempt)
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if txErr := tx.Create(tool).Error; txErr != nil {
				return txErr
			}
			history.ToolID = tool.ID
			if txErr := tx.Create(history).Error; txErr != nil {
				return txErr
			}
			return tx.Model(&models.User{}).
				Where("id = ?", tool.SubmittedByUserID).
				UpdateColumn("submission_count", gorm.Expr("submission_count + 1")).Error
		})
		if err == nil {
			cache.Invalidate(ctx, r.rdb, cache.ToolListKey)
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		tool.ID = 0
	}
	return fmt.Errorf("no free slug for %q after %d attempts: %w", baseSlug, maxSlugAttempts, err)
}

// UpdateWithHistory saves the tool and appends one history row atomically.
func (r *toolRepository) UpdateWithHistory(ctx context.Context, tool *models.Tool, history *models.ToolHistory) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Save(tool).Error; txErr != nil {
			return txErr
		}
		history.ToolID = tool.ID
		return tx.Create(history).Error
	})
	if err == nil {
		cache.Invalidate(ctx, r.rdb, cache.ToolListKey)
	}
	return err
}

func (r *toolRepository) GetByID(ctx context.Context, id uint) (*models.Tool, error) {
	var tool models.Tool
	err := r.applyBookmarkCount(r.db.WithContext(ctx)).
		Preload("SubmittedByUser").
		First(&tool, id).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

func (r *toolRepository) GetBySlug(ctx context.Context, slug string) (*models.Tool, error) {
	var tool models.Tool
	err := r.applyBookmarkCount(r.db.WithContext(ctx)).
		Preload("SubmittedByUser").
		Where("slug = ?", slug).
		First(&tool).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

// List returns one page of tools plus the total row count for the filter.
// The unfiltered approved front page is served through the cache.
func (r *toolRepository) List(ctx context.Context, filter ToolListFilter) ([]*models.Tool, int64, error) {
	type page struct {
		Tools []*models.Tool `json:"tools"`
		Total int64          `json:"total"`
	}

	fetch := func() (page, error) {
		var p page
		base := r.applyFilter(r.db.WithContext(ctx).Model(&models.Tool{}), filter)
		if err := base.Count(&p.Total).Error; err != nil {
			return p, err
		}

		q := r.applyBookmarkCount(r.db.WithContext(ctx)).Preload("SubmittedByUser")
		q = r.applyFilter(q, filter)
		q = r.applySort(q, filter.Sort)
		err := q.Limit(filter.Limit).Offset(filter.Offset).Find(&p.Tools).Error
		return p, err
	}

	var p page
	if filter.cacheable() {
		key := fmt.Sprintf("%s:%d", cache.ToolListKey, filter.Limit)
		err := cache.Aside(ctx, r.rdb, key, &p, cache.ToolListTTL, func() error {
			var fetchErr error
			p, fetchErr = fetch()
			return fetchErr
		})
		return p.Tools, p.Total, err
	}

	p, err := fetch()
	return p.Tools, p.Total, err
}

func (r *toolRepository) ListBySubmitter(ctx context.Context, userID uint) ([]*models.Tool, error) {
	var tools []*models.Tool
	err := r.applyBookmarkCount(r.db.WithContext(ctx)).
		Where("submitted_by_user_id = ?", userID).
		Order("created_at DESC").
		Find(&tools).Error
	return tools, err
}

// ListCategories returns the distinct categories of approved tools with
// usage counts, most used first. Categories are not a stored entity; they
// exist by being used, so the comma-serialized column is unnested here.
func (r *toolRepository) ListCategories(ctx context.Context) ([]CategoryCount, error) {
	var serialized []string
	err := r.db.WithContext(ctx).Model(&models.Tool{}).
		Where("status = ?", models.ToolStatusApproved).
		Pluck("categories", &serialized).Error
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, row := range serialized {
		tool := models.Tool{Categories: row}
		for _, category := range tool.CategoryList() {
			counts[category]++
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// PermanentlyRejectedExists reports whether the user already has a
// permanently rejected listing under the base slug or any of its suffixed
// variants. Such listings block resubmission.
func (r *toolRepository) PermanentlyRejectedExists(ctx context.Context, baseSlug string, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Tool{}).
		Where("submitted_by_user_id = ?", userID).
		Where("status = ?", models.ToolStatusPermanentlyRejected).
		Where("slug = ? OR slug LIKE ?", baseSlug, baseSlug+"-%").
		Count(&count).Error
	return count > 0, err
}

// applyBookmarkCount selects tools plus their bookmark totals in one query.
func (r *toolRepository) applyBookmarkCount(db *gorm.DB) *gorm.DB {
	return db.Select("tools.*, " +
		"(SELECT COUNT(*) FROM bookmarks WHERE bookmarks.tool_id = tools.id) as bookmarks_count")
}

func (r *toolRepository) applyFilter(db *gorm.DB, filter ToolListFilter) *gorm.DB {
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Name != "" {
		db = db.Where("LOWER(tools.name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Pricing != "" {
		db = db.Where("pricing = ?", filter.Pricing)
	}
	for _, category := range filter.Categories {
		// The categories column is comma-serialized; pad both sides so a
		// term can only match a whole entry.
		db = db.Where("(',' || tools.categories || ',') LIKE ?", "%,"+category+",%")
	}
	return db
}

// applySort appends the ORDER BY clause for the requested sort type.
// bookmarks_count is a SELECT alias from applyBookmarkCount.
func (r *toolRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "name_asc":
		return db.Order("tools.name ASC")
	case "name_desc":
		return db.Order("tools.name DESC")
	case "bookmarks":
		return db.Order("bookmarks_count DESC, tools.created_at DESC")
	default: // "latest" and anything unrecognized
		return db.Order("tools.created_at DESC")
	}
}
