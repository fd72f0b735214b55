package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"toolshelf/internal/models"
	"toolshelf/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared&_fk=1"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Tool{}, &models.ToolHistory{}, &models.Bookmark{}))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, DisplayName: "Test User"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestTool(userID uint, name string) *models.Tool {
	tool := &models.Tool{
		Name:              name,
		Slug:              validation.Slugify(name),
		WebsiteURL:        "https://example.com",
		Tagline:           "A short tagline",
		Description:       "A longer description of the tool.",
		Pricing:           models.PricingFree,
		ShowcaseKey:       "uploads/showcase/x.png",
		Status:            models.ToolStatusPending,
		SubmittedByUserID: userID,
		SubmittedAt:       time.Now(),
	}
	tool.SetCategoryList([]string{"chat"})
	return tool
}

func TestToolRepository_CreateSubmission_SlugSuffixes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "dev@example.com")

	var slugs []string
	for i := 0; i < 3; i++ {
		tool := newTestTool(user.ID, "Prompt Forge")
		history := &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistorySubmitted}
		require.NoError(t, repo.CreateSubmission(ctx, tool, history))
		slugs = append(slugs, tool.Slug)
	}

	assert.Equal(t, []string{"prompt-forge", "prompt-forge-2", "prompt-forge-3"}, slugs)
}

func TestToolRepository_CreateSubmission_WritesHistoryAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "dev@example.com")

	tool := newTestTool(user.ID, "Prompt Forge")
	history := &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistorySubmitted}
	require.NoError(t, repo.CreateSubmission(ctx, tool, history))

	var entries []models.ToolHistory
	require.NoError(t, db.Where("tool_id = ?", tool.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.HistorySubmitted, entries[0].EventType)

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, 1, fresh.SubmissionCount)
}

func TestToolRepository_UpdateWithHistory_AppendsOneRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "dev@example.com")

	tool := newTestTool(user.ID, "Prompt Forge")
	require.NoError(t, repo.CreateSubmission(ctx, tool, &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistorySubmitted}))

	tool.Status = models.ToolStatusApproved
	now := time.Now()
	tool.ApprovedAt = &now
	require.NoError(t, repo.UpdateWithHistory(ctx, tool, &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistoryApproved}))

	var count int64
	require.NoError(t, db.Model(&models.ToolHistory{}).Where("tool_id = ?", tool.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	fetched, err := repo.GetByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToolStatusApproved, fetched.Status)
	require.NotNil(t, fetched.ApprovedAt)
}

func TestToolRepository_GetBySlug(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "dev@example.com")

	tool := newTestTool(user.ID, "Prompt Forge")
	require.NoError(t, repo.CreateSubmission(ctx, tool, &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistorySubmitted}))

	fetched, err := repo.GetBySlug(ctx, "prompt-forge")
	require.NoError(t, err)
	assert.Equal(t, tool.ID, fetched.ID)

	_, err = repo.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func seedListingTools(t *testing.T, db *gorm.DB, repo ToolRepository, userID uint) {
	t.Helper()
	ctx := context.Background()
	specs := []struct {
		name     string
		pricing  models.ToolPricing
		category string
		status   models.ToolStatus
	}{
		{"Alpha Writer", models.PricingFree, "writing", models.ToolStatusApproved},
		{"Beta Chat", models.PricingPaid, "chat", models.ToolStatusApproved},
		{"Gamma Chatbots", models.PricingFreemium, "chatbots", models.ToolStatusApproved},
		{"Delta Draft", models.PricingFree, "writing", models.ToolStatusPending},
	}
	for _, s := range specs {
		tool := newTestTool(userID, s.name)
		tool.Pricing = s.pricing
		tool.SetCategoryList([]string{s.category})
		require.NoError(t, repo.CreateSubmission(ctx, tool, &models.ToolHistory{ActorUserID: userID, EventType: models.HistorySubmitted}))
		if s.status != models.ToolStatusPending {
			tool.Status = s.status
			require.NoError(t, db.Save(tool).Error)
		}
	}
}

func TestToolRepository_List_StatusFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	user := createTestUser(t, db, "dev@example.com")
	seedListingTools(t, db, repo, user.ID)

	tools, total, err := repo.List(context.Background(), ToolListFilter{
		Status: models.ToolStatusApproved,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, tool := range tools {
		assert.Equal(t, models.ToolStatusApproved, tool.Status)
	}
}

func TestToolRepository_List_CategoryMatchesWholeEntry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	user := createTestUser(t, db, "dev@example.com")
	seedListingTools(t, db, repo, user.ID)

	tools, total, err := repo.List(context.Background(), ToolListFilter{
		Status:     models.ToolStatusApproved,
		Categories: []string{"chat"},
		Limit:      10,
	})
	require.NoError(t, err)
	// "chat" must not match the "chatbots" category.
	require.EqualValues(t, 1, total)
	assert.Equal(t, "Beta Chat", tools[0].Name)
}

func TestToolRepository_List_NameAndPricing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	user := createTestUser(t, db, "dev@example.com")
	seedListingTools(t, db, repo, user.ID)

	tools, _, err := repo.List(context.Background(), ToolListFilter{
		Status: models.ToolStatusApproved,
		Name:   "alpha",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "Alpha Writer", tools[0].Name)

	tools, _, err = repo.List(context.Background(), ToolListFilter{
		Status:  models.ToolStatusApproved,
		Pricing: models.PricingPaid,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "Beta Chat", tools[0].Name)
}

func TestToolRepository_List_Sorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	user := createTestUser(t, db, "dev@example.com")
	seedListingTools(t, db, repo, user.ID)

	tools, _, err := repo.List(context.Background(), ToolListFilter{
		Status: models.ToolStatusApproved,
		Sort:   "name_asc",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, tools, 3)
	assert.Equal(t, "Alpha Writer", tools[0].Name)
	assert.Equal(t, "Gamma Chatbots", tools[2].Name)

	tools, _, err = repo.List(context.Background(), ToolListFilter{
		Status: models.ToolStatusApproved,
		Sort:   "name_desc",
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gamma Chatbots", tools[0].Name)
}

func TestToolRepository_List_BookmarksSort(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	user := createTestUser(t, db, "dev@example.com")
	seedListingTools(t, db, repo, user.ID)

	var gamma models.Tool
	require.NoError(t, db.Where("name = ?", "Gamma Chatbots").First(&gamma).Error)
	for i := 0; i < 3; i++ {
		voter := createTestUser(t, db, fmt.Sprintf("voter%d@example.com", i))
		require.NoError(t, db.Create(&models.Bookmark{UserID: voter.ID, ToolID: gamma.ID}).Error)
	}

	tools, _, err := repo.List(context.Background(), ToolListFilter{
		Status: models.ToolStatusApproved,
		Sort:   "bookmarks",
		Limit:  10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, tools)
	assert.Equal(t, "Gamma Chatbots", tools[0].Name)
	assert.Equal(t, 3, tools[0].BookmarksCount)
}

func TestToolRepository_PermanentlyRejectedExists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "dev@example.com")
	other := createTestUser(t, db, "other@example.com")

	tool := newTestTool(user.ID, "Prompt Forge")
	require.NoError(t, repo.CreateSubmission(ctx, tool, &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistorySubmitted}))
	tool.Status = models.ToolStatusPermanentlyRejected
	require.NoError(t, db.Save(tool).Error)

	exists, err := repo.PermanentlyRejectedExists(ctx, "prompt-forge", user.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	// A different submitter is not blocked by someone else's rejection.
	exists, err = repo.PermanentlyRejectedExists(ctx, "prompt-forge", other.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.PermanentlyRejectedExists(ctx, "unrelated-tool", user.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestToolRepository_PermanentlyRejectedExists_SuffixedSlug(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "dev@example.com")

	first := newTestTool(user.ID, "Prompt Forge")
	require.NoError(t, repo.CreateSubmission(ctx, first, &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistorySubmitted}))

	second := newTestTool(user.ID, "Prompt Forge")
	require.NoError(t, repo.CreateSubmission(ctx, second, &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistorySubmitted}))
	require.Equal(t, "prompt-forge-2", second.Slug)

	second.Status = models.ToolStatusPermanentlyRejected
	require.NoError(t, db.Save(second).Error)

	exists, err := repo.PermanentlyRejectedExists(ctx, "prompt-forge", user.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestToolRepository_ListCategories(t *testing.T) {
	db := setupTestDB(t)
	repo := NewToolRepository(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "dev@example.com")

	specs := []struct {
		name       string
		categories []string
		status     models.ToolStatus
	}{
		{"Alpha Writer", []string{"writing"}, models.ToolStatusApproved},
		{"Beta Chat", []string{"chat", "writing"}, models.ToolStatusApproved},
		{"Gamma Draw", []string{"design"}, models.ToolStatusApproved},
		{"Delta Draft", []string{"writing"}, models.ToolStatusPending},
	}
	for _, s := range specs {
		tool := newTestTool(user.ID, s.name)
		tool.SetCategoryList(s.categories)
		require.NoError(t, repo.CreateSubmission(ctx, tool, &models.ToolHistory{ActorUserID: user.ID, EventType: models.HistorySubmitted}))
		if s.status != models.ToolStatusPending {
			tool.Status = s.status
			require.NoError(t, db.Save(tool).Error)
		}
	}

	counts, err := repo.ListCategories(ctx)
	require.NoError(t, err)

	// Pending tools contribute nothing; ties break alphabetically.
	require.Len(t, counts, 3)
	assert.Equal(t, CategoryCount{Category: "writing", Count: 2}, counts[0])
	assert.Equal(t, CategoryCount{Category: "chat", Count: 1}, counts[1])
	assert.Equal(t, CategoryCount{Category: "design", Count: 1}, counts[2])
}
