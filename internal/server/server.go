// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"toolshelf/internal/cache"
	"toolshelf/internal/config"
	"toolshelf/internal/database"
	"toolshelf/internal/email"
	"toolshelf/internal/images"
	"toolshelf/internal/middleware"
	"toolshelf/internal/models"
	"toolshelf/internal/repository"
	"toolshelf/internal/service"
	"toolshelf/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus

	userRepo     repository.UserRepository
	toolRepo     repository.ToolRepository
	bookmarkRepo repository.BookmarkRepository
	historyRepo  repository.ToolHistoryRepository

	toolService       *service.ToolService
	submissionService *service.SubmissionService
	reviewService     *service.ReviewService
	authService       *service.AuthService
}

// NewServer creates a server instance, establishing the database, redis and
// object storage connections itself.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.Connect(cfg.RedisURL)

	store, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage setup failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, store), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes the connections.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.ObjectStore) *Server {
	userRepo := repository.NewUserRepository(db)
	toolRepo := repository.NewToolRepository(db, redisClient)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	historyRepo := repository.NewToolHistoryRepository(db)

	prom := middleware.InitMetrics("toolshelf-api")

	sender := email.NewService(cfg)
	templates := email.NewTemplates(cfg)
	generator := images.NewGenerator(store)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		toolRepo:       toolRepo,
		bookmarkRepo:   bookmarkRepo,
		historyRepo:    historyRepo,
	}
	s.toolService = service.NewToolService(toolRepo, bookmarkRepo, historyRepo)
	s.submissionService = service.NewSubmissionService(toolRepo, userRepo, store, generator, cfg)
	s.reviewService = service.NewReviewService(toolRepo, userRepo, sender, templates, cfg)
	s.authService = service.NewAuthService(userRepo, redisClient, sender, templates, cfg)

	return s
}

// ConfigureGoogle enables Google sign-in; call once at startup.
func (s *Server) ConfigureGoogle(ctx context.Context) error {
	return s.authService.ConfigureGoogle(ctx)
}

// Shutdown releases the server's connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Warn("error closing redis client", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			middleware.Logger.Warn("error closing sql DB", "error", err)
		}
	}

	return nil
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Propagate request ID and user ID into the request context for logging
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	auth := app.Group("/auth")
	auth.Post("/code", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signin_code"), s.RequestSignInCode)
	auth.Post("/verify", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "signin_verify"), s.VerifySignInCode)
	auth.Get("/google", s.GoogleLogin)
	auth.Get("/google/callback", s.GoogleCallback)
	auth.Post("/logout", s.Logout)

	api := app.Group("/api")

	api.Get("/categories", s.GetCategories)

	// Public directory routes; a valid token upgrades visibility for admins.
	tools := api.Group("/tools", s.OptionalAuth())
	tools.Get("/", s.GetTools)

	// Protected submission routes must be registered before the generic
	// /:slug detail route.
	tools.Post("/intake", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "tool_intake"), s.IntakeTool)
	tools.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 5, time.Minute, "tool_save"), s.SaveTool)
	tools.Put("/:id/bookmark", s.AuthRequired(), s.BookmarkTool)
	tools.Delete("/:id/bookmark", s.AuthRequired(), s.UnbookmarkTool)
	tools.Get("/:slug", s.GetTool)

	// Current-user routes
	me := api.Group("/me", s.AuthRequired())
	me.Get("/", s.GetMe)
	me.Get("/tools", s.GetMySubmissions)
	me.Get("/bookmarks", s.GetMyBookmarks)
	me.Post("/stop-impersonation", s.StopImpersonation)

	// Admin routes
	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/tools/pending", s.GetPendingTools)
	admin.Get("/tools/:id/history", s.GetToolHistory)
	admin.Post("/tools/:id/approve", s.ApproveTool)
	admin.Post("/tools/:id/reject", s.RejectTool)
	admin.Post("/impersonate/:id", s.Impersonate)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The app degrades without redis (no caching, no sign-in codes) but
		// still serves the directory, so this is reported without failing
		// readiness.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns middleware that validates the bearer token and stores
// the session claims in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := s.claimsFromRequest(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		storeClaims(c, claims)
		return c.Next()
	}
}

// OptionalAuth parses a bearer token when one is present but lets anonymous
// requests through. Used on public routes whose responses differ for admins.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, err := s.claimsFromRequest(c); err == nil {
			storeClaims(c, claims)
		}
		return c.Next()
	}
}

// AdminRequired rejects non-admin sessions with 403. Must be placed after
// AuthRequired. An admin impersonating a regular user is NOT an admin here;
// the session acts with the target's privileges.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		admin, err := s.isAdminByUserID(c.Context(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}
