// Package service implements the application's business logic on top of the
// repository layer.
package service

import (
	"context"
	"errors"

	"toolshelf/internal/models"
	"toolshelf/internal/repository"

	"gorm.io/gorm"
)

// DefaultPageSize is used when the client does not ask for a page size.
const DefaultPageSize = 20

// MaxPageSize caps the page size a client can request.
const MaxPageSize = 100

// ToolService serves the public directory: listing, detail and bookmarks.
type ToolService struct {
	toolRepo     repository.ToolRepository
	bookmarkRepo repository.BookmarkRepository
	historyRepo  repository.ToolHistoryRepository
}

// NewToolService creates a new tool service.
func NewToolService(
	toolRepo repository.ToolRepository,
	bookmarkRepo repository.BookmarkRepository,
	historyRepo repository.ToolHistoryRepository,
) *ToolService {
	return &ToolService{
		toolRepo:     toolRepo,
		bookmarkRepo: bookmarkRepo,
		historyRepo:  historyRepo,
	}
}

// ListToolsInput narrows a directory listing request.
type ListToolsInput struct {
	Name       string
	Categories []string
	Pricing    string
	Status     string
	Sort       string
	Limit      int
	Offset     int
	IsAdmin    bool
}

// ToolPage is one page of listing results.
type ToolPage struct {
	Tools  []*models.Tool `json:"tools"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListTools returns one page of the directory. Non-admin callers only ever
// see approved listings regardless of the requested status.
func (s *ToolService) ListTools(ctx context.Context, in ListToolsInput) (*ToolPage, error) {
	if in.Limit <= 0 {
		in.Limit = DefaultPageSize
	}
	if in.Limit > MaxPageSize {
		in.Limit = MaxPageSize
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	// Admins see every status unless they narrow the listing themselves;
	// everyone else is pinned to approved.
	status := models.ToolStatusApproved
	if in.IsAdmin {
		switch models.ToolStatus(in.Status) {
		case "":
			status = ""
		case models.ToolStatusPending, models.ToolStatusApproved,
			models.ToolStatusRejected, models.ToolStatusPermanentlyRejected:
			status = models.ToolStatus(in.Status)
		default:
			return nil, models.NewValidationError("Invalid status filter")
		}
	}

	pricing := models.ToolPricing(in.Pricing)
	if in.Pricing != "" && !models.ValidPricing(pricing) {
		return nil, models.NewValidationError("Invalid pricing filter")
	}

	tools, total, err := s.toolRepo.List(ctx, repository.ToolListFilter{
		Name:       in.Name,
		Categories: in.Categories,
		Pricing:    pricing,
		Status:     status,
		Sort:       in.Sort,
		Limit:      in.Limit,
		Offset:     in.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &ToolPage{Tools: tools, Total: total, Limit: in.Limit, Offset: in.Offset}, nil
}

// GetToolBySlug returns one listing. Listings that are not approved are only
// visible to their submitter and to admins; everyone else gets a not-found.
func (s *ToolService) GetToolBySlug(ctx context.Context, slug string, requesterID uint, isAdmin bool) (*models.Tool, error) {
	tool, err := s.toolRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("tool", slug)
		}
		return nil, err
	}

	if tool.Status != models.ToolStatusApproved && !isAdmin && tool.SubmittedByUserID != requesterID {
		return nil, models.NewNotFoundError("tool", slug)
	}
	return tool, nil
}

// GetToolHistory returns the audit trail for a listing. Admin only; the
// handler enforces the role, the service enforces existence.
func (s *ToolService) GetToolHistory(ctx context.Context, toolID uint) ([]*models.ToolHistory, error) {
	if _, err := s.toolRepo.GetByID(ctx, toolID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("tool", toolID)
		}
		return nil, err
	}
	return s.historyRepo.ListForTool(ctx, toolID)
}

// ListMySubmissions returns every listing the user has submitted, in any
// status.
func (s *ToolService) ListMySubmissions(ctx context.Context, userID uint) ([]*models.Tool, error) {
	return s.toolRepo.ListBySubmitter(ctx, userID)
}

// ListCategories returns the categories in use across approved listings.
func (s *ToolService) ListCategories(ctx context.Context) ([]repository.CategoryCount, error) {
	return s.toolRepo.ListCategories(ctx)
}

// Bookmark saves an approved tool for the user. Bookmarking twice is a no-op.
func (s *ToolService) Bookmark(ctx context.Context, userID, toolID uint) error {
	tool, err := s.toolRepo.GetByID(ctx, toolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("tool", toolID)
		}
		return err
	}
	if tool.Status != models.ToolStatusApproved {
		return models.NewNotFoundError("tool", toolID)
	}
	return s.bookmarkRepo.Add(ctx, userID, toolID)
}

// Unbookmark removes a saved tool. Removing a missing bookmark is a no-op.
func (s *ToolService) Unbookmark(ctx context.Context, userID, toolID uint) error {
	return s.bookmarkRepo.Remove(ctx, userID, toolID)
}

// ListBookmarks returns the user's saved tools, most recently saved first.
func (s *ToolService) ListBookmarks(ctx context.Context, userID uint, limit, offset int) ([]*models.Tool, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookmarkRepo.ListForUser(ctx, userID, limit, offset)
}
