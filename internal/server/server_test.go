package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"toolshelf/internal/config"
	"toolshelf/internal/email"
	"toolshelf/internal/models"
	"toolshelf/internal/repository"
	"toolshelf/internal/service"
	"toolshelf/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared in-memory database so every pooled connection sees the
	// same data.
	dsn := "file:server_" + t.Name() + "?mode=memory&cache=shared&_fk=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Tool{},
		&models.ToolHistory{},
		&models.Bookmark{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return db
}

// fakeObjectStore records presign and delete calls without talking to a real
// bucket.
type fakeObjectStore struct {
	mu        sync.Mutex
	presigned []string
	deleted   []string
}

func (f *fakeObjectStore) PresignUpload(_ context.Context, key, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presigned = append(f.presigned, key)
	return "https://uploads.test/" + key, nil
}

func (f *fakeObjectStore) Download(context.Context, string) ([]byte, error) {
	return nil, errors.New("no such object")
}

func (f *fakeObjectStore) Upload(context.Context, string, []byte, string) error {
	return nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjectStore) presignedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.presigned...)
}

// noopGenerator satisfies the variant generator without doing image work.
type noopGenerator struct{}

func (noopGenerator) Generate(context.Context, string) error { return nil }

func handlerTestConfig() *config.Config {
	return &config.Config{
		BaseURL:               "http://localhost:8480",
		JWTSecret:             "handler-test-secret",
		MaxSubmissionsPerUser: 20,
		ResubmissionLimit:     3,
		TaglineWordLimit:      20,
		DescriptionWordLimit:  500,
		MaxImageSizeMB:        5,
	}
}

// newTestServer wires a Server against sqlite, a fake object store and a
// disabled email sender. Redis-dependent paths degrade gracefully with a nil
// client, which is what the cache and auth layers are built to tolerate.
func newTestServer(t *testing.T) (*Server, *fakeObjectStore) {
	return newTestServerWithRedis(t, nil)
}

func newTestServerWithRedis(t *testing.T, redisClient *redis.Client) (*Server, *fakeObjectStore) {
	t.Helper()

	cfg := handlerTestConfig()
	db := setupHandlerTestDB(t)
	store := &fakeObjectStore{}

	userRepo := repository.NewUserRepository(db)
	toolRepo := repository.NewToolRepository(db, redisClient)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	historyRepo := repository.NewToolHistoryRepository(db)

	sender := email.NewService(cfg)
	templates := email.NewTemplates(cfg)

	s := &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		userRepo:     userRepo,
		toolRepo:     toolRepo,
		bookmarkRepo: bookmarkRepo,
		historyRepo:  historyRepo,
	}
	s.toolService = service.NewToolService(toolRepo, bookmarkRepo, historyRepo)
	s.submissionService = service.NewSubmissionService(toolRepo, userRepo, store, noopGenerator{}, cfg)
	s.reviewService = service.NewReviewService(toolRepo, userRepo, sender, templates, cfg)
	s.authService = service.NewAuthService(userRepo, redisClient, sender, templates, cfg)

	return s, store
}

// authedApp simulates an authenticated session the way the auth middleware
// would establish it.
func authedApp(userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != 0 {
			storeClaims(c, service.TokenClaims{UserID: userID})
		}
		return c.Next()
	})
	return app
}

func createHandlerTestUser(t *testing.T, db *gorm.DB, emailAddr string, admin bool) models.User {
	t.Helper()

	user := models.User{Email: emailAddr, DisplayName: "Test User", IsAdmin: admin}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createHandlerTestTool(t *testing.T, db *gorm.DB, userID uint, name string, status models.ToolStatus) models.Tool {
	t.Helper()

	tool := models.Tool{
		Name:              name,
		Slug:              validation.Slugify(name),
		WebsiteURL:        "https://example.com",
		Tagline:           "A useful tool",
		Description:       "Does one thing well.",
		Pricing:           models.PricingFree,
		ShowcaseKey:       "uploads/showcase/seed.png",
		Status:            status,
		SubmittedByUserID: userID,
		SubmittedAt:       time.Now(),
	}
	tool.SetCategoryList([]string{"productivity"})
	if status == models.ToolStatusApproved {
		now := time.Now()
		tool.ApprovedAt = &now
	}
	if err := db.Create(&tool).Error; err != nil {
		t.Fatalf("create tool %q: %v", name, err)
	}
	return tool
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}
