package service

import (
	"context"
	"testing"

	"toolshelf/internal/models"
	"toolshelf/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// bookmarkRepoStub is a stub for repository.BookmarkRepository.
type bookmarkRepoStub struct {
	addFn          func(context.Context, uint, uint) error
	removeFn       func(context.Context, uint, uint) error
	isBookmarkedFn func(context.Context, uint, uint) (bool, error)
	listForUserFn  func(context.Context, uint, int, int) ([]*models.Tool, error)
}

func (s *bookmarkRepoStub) Add(ctx context.Context, userID, toolID uint) error {
	return s.addFn(ctx, userID, toolID)
}
func (s *bookmarkRepoStub) Remove(ctx context.Context, userID, toolID uint) error {
	return s.removeFn(ctx, userID, toolID)
}
func (s *bookmarkRepoStub) IsBookmarked(ctx context.Context, userID, toolID uint) (bool, error) {
	return s.isBookmarkedFn(ctx, userID, toolID)
}
func (s *bookmarkRepoStub) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Tool, error) {
	return s.listForUserFn(ctx, userID, limit, offset)
}

// historyRepoStub is a stub for repository.ToolHistoryRepository.
type historyRepoStub struct {
	appendFn      func(context.Context, *models.ToolHistory) error
	listForToolFn func(context.Context, uint) ([]*models.ToolHistory, error)
}

func (s *historyRepoStub) Append(ctx context.Context, entry *models.ToolHistory) error {
	return s.appendFn(ctx, entry)
}
func (s *historyRepoStub) ListForTool(ctx context.Context, toolID uint) ([]*models.ToolHistory, error) {
	return s.listForToolFn(ctx, toolID)
}

func TestListTools_NonAdminOnlySeesApproved(t *testing.T) {
	var gotFilter repository.ToolListFilter
	toolRepo := &toolRepoStub{
		listFn: func(_ context.Context, filter repository.ToolListFilter) ([]*models.Tool, int64, error) {
			gotFilter = filter
			return nil, 0, nil
		},
	}
	svc := NewToolService(toolRepo, &bookmarkRepoStub{}, &historyRepoStub{})

	// A non-admin asking for pending listings still gets approved ones.
	_, err := svc.ListTools(context.Background(), ListToolsInput{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, models.ToolStatusApproved, gotFilter.Status)
	assert.Equal(t, DefaultPageSize, gotFilter.Limit)
}

func TestListTools_AdminStatusFilter(t *testing.T) {
	var gotFilter repository.ToolListFilter
	toolRepo := &toolRepoStub{
		listFn: func(_ context.Context, filter repository.ToolListFilter) ([]*models.Tool, int64, error) {
			gotFilter = filter
			return nil, 0, nil
		},
	}
	svc := NewToolService(toolRepo, &bookmarkRepoStub{}, &historyRepoStub{})

	_, err := svc.ListTools(context.Background(), ListToolsInput{Status: "pending", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, models.ToolStatusPending, gotFilter.Status)

	// Without an explicit filter an admin listing spans every status.
	_, err = svc.ListTools(context.Background(), ListToolsInput{IsAdmin: true})
	require.NoError(t, err)
	assert.Empty(t, gotFilter.Status)

	_, err = svc.ListTools(context.Background(), ListToolsInput{Status: "bogus", IsAdmin: true})
	require.Error(t, err)
}

func TestListTools_InvalidPricing(t *testing.T) {
	svc := NewToolService(&toolRepoStub{}, &bookmarkRepoStub{}, &historyRepoStub{})

	_, err := svc.ListTools(context.Background(), ListToolsInput{Pricing: "donationware"})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrCodeValidation, appErr.Code)
}

func TestListTools_ClampsPageSize(t *testing.T) {
	var gotFilter repository.ToolListFilter
	toolRepo := &toolRepoStub{
		listFn: func(_ context.Context, filter repository.ToolListFilter) ([]*models.Tool, int64, error) {
			gotFilter = filter
			return nil, 0, nil
		},
	}
	svc := NewToolService(toolRepo, &bookmarkRepoStub{}, &historyRepoStub{})

	_, err := svc.ListTools(context.Background(), ListToolsInput{Limit: 5000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, gotFilter.Limit)
	assert.Equal(t, 0, gotFilter.Offset)
}

func TestGetToolBySlug_Visibility(t *testing.T) {
	pending := &models.Tool{ID: 5, Slug: "prompt-forge", Status: models.ToolStatusPending, SubmittedByUserID: 7}
	toolRepo := &toolRepoStub{
		getBySlugFn: func(context.Context, string) (*models.Tool, error) {
			return pending, nil
		},
	}
	svc := NewToolService(toolRepo, &bookmarkRepoStub{}, &historyRepoStub{})
	ctx := context.Background()

	// Owner and admin can see a pending listing.
	_, err := svc.GetToolBySlug(ctx, "prompt-forge", 7, false)
	assert.NoError(t, err)
	_, err = svc.GetToolBySlug(ctx, "prompt-forge", 99, true)
	assert.NoError(t, err)

	// Everyone else gets a not-found, not a forbidden, so the listing's
	// existence is not revealed.
	_, err = svc.GetToolBySlug(ctx, "prompt-forge", 3, false)
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrCodeNotFound, appErr.Code)
}

func TestGetToolBySlug_Missing(t *testing.T) {
	toolRepo := &toolRepoStub{
		getBySlugFn: func(context.Context, string) (*models.Tool, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewToolService(toolRepo, &bookmarkRepoStub{}, &historyRepoStub{})

	_, err := svc.GetToolBySlug(context.Background(), "missing", 0, false)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrCodeNotFound, appErr.Code)
}

func TestBookmark_OnlyApprovedTools(t *testing.T) {
	toolRepo := &toolRepoStub{
		getByIDFn: func(context.Context, uint) (*models.Tool, error) {
			return &models.Tool{ID: 5, Status: models.ToolStatusPending}, nil
		},
	}
	var added bool
	bookmarkRepo := &bookmarkRepoStub{
		addFn: func(context.Context, uint, uint) error {
			added = true
			return nil
		},
	}
	svc := NewToolService(toolRepo, bookmarkRepo, &historyRepoStub{})

	err := svc.Bookmark(context.Background(), 7, 5)
	require.Error(t, err)
	assert.False(t, added)
}

func TestBookmark_Approved(t *testing.T) {
	toolRepo := &toolRepoStub{
		getByIDFn: func(context.Context, uint) (*models.Tool, error) {
			return &models.Tool{ID: 5, Status: models.ToolStatusApproved}, nil
		},
	}
	var added bool
	bookmarkRepo := &bookmarkRepoStub{
		addFn: func(context.Context, uint, uint) error {
			added = true
			return nil
		},
	}
	svc := NewToolService(toolRepo, bookmarkRepo, &historyRepoStub{})

	require.NoError(t, svc.Bookmark(context.Background(), 7, 5))
	assert.True(t, added)
}

func TestGetToolHistory_MissingTool(t *testing.T) {
	toolRepo := &toolRepoStub{
		getByIDFn: func(context.Context, uint) (*models.Tool, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewToolService(toolRepo, &bookmarkRepoStub{}, &historyRepoStub{})

	_, err := svc.GetToolHistory(context.Background(), 404)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrCodeNotFound, appErr.Code)
}
