// Package seed provides database seeding utilities for development and
// testing. It fills the directory with plausible tools across every review
// state so listing, search and the admin queue all have something to show.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"toolshelf/internal/models"
	"toolshelf/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumUsers    int
	NumTools    int
	ShouldClean bool
}

var categories = []string{
	"writing", "chatbots", "image-generation", "video", "audio",
	"productivity", "developer-tools", "marketing", "research", "design",
}

var pricings = []models.ToolPricing{
	models.PricingFree, models.PricingPaid, models.PricingFreemium,
}

var rejectionReasons = []string{
	"Website is unreachable",
	"Showcase image does not show the product",
	"Description reads like an ad, not an explanation",
	"Duplicate of an already listed tool",
	"Listed pricing does not match the website",
}

// Seeder creates demo data against the provided database handle.
type Seeder struct {
	db *gorm.DB
	r  *rand.Rand
}

// NewSeeder creates a Seeder bound to the given Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Seeder{db: db, r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Seed populates the database with demo users, tools, bookmarks and audit
// history.
func (s *Seeder) Seed(opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d tools...", opts.NumUsers, opts.NumTools)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	users, err := s.createUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d users created", len(users))

	tools, err := s.createTools(users, opts.NumTools)
	if err != nil {
		return fmt.Errorf("failed to create tools: %w", err)
	}
	log.Printf("✓ %d tools created", len(tools))

	bookmarks, err := s.createBookmarks(users, tools)
	if err != nil {
		return fmt.Errorf("failed to create bookmarks: %w", err)
	}
	log.Printf("✓ %d bookmarks created", bookmarks)

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

// ClearAll removes all seeded data. Child tables go first so foreign keys
// hold on databases that enforce them.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	for _, model := range []any{
		&models.ToolHistory{},
		&models.Bookmark{},
		&models.Tool{},
		&models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Unscoped().Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) createUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count+1)

	// A known admin account so the review queue is reachable out of the box.
	admin := models.User{
		Email:       "admin@toolshelf.dev",
		DisplayName: "Toolshelf Admin",
		IsAdmin:     true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < count; i++ {
		user := models.User{
			Email:       fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			DisplayName: gofakeit.Name(),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) toolName() string {
	patterns := []string{
		"%s %s",
		"%s.ai",
		"%s Studio",
		"%s Copilot",
		"Auto%s",
	}
	noun := gofakeit.NounConcrete()
	switch patterns[s.r.Intn(len(patterns))] {
	case "%s %s":
		return fmt.Sprintf("%s %s", gofakeit.AdjectiveDescriptive(), noun)
	case "%s.ai":
		return fmt.Sprintf("%s.ai", noun)
	case "%s Studio":
		return fmt.Sprintf("%s Studio", noun)
	case "%s Copilot":
		return fmt.Sprintf("%s Copilot", noun)
	default:
		return fmt.Sprintf("Auto%s", noun)
	}
}

func (s *Seeder) createTools(users []models.User, count int) ([]models.Tool, error) {
	tools := make([]models.Tool, 0, count)
	usedSlugs := map[string]bool{}

	for i := 0; i < count; i++ {
		submitter := users[s.r.Intn(len(users))]
		name := s.toolName()

		base := validation.Slugify(name)
		slug := base
		for attempt := 2; usedSlugs[slug]; attempt++ {
			slug = validation.SlugWithSuffix(base, attempt)
		}
		usedSlugs[slug] = true

		submittedAt := time.Now().Add(-time.Duration(s.r.Intn(90*24)) * time.Hour)
		tool := models.Tool{
			Name:              name,
			Slug:              slug,
			WebsiteURL:        gofakeit.URL(),
			Tagline:           gofakeit.Sentence(6),
			Description:       gofakeit.Paragraph(2, 4, 8, "\n\n"),
			Pricing:           pricings[s.r.Intn(len(pricings))],
			ShowcaseKey:       fmt.Sprintf("uploads/showcase/%s.png", gofakeit.UUID()),
			LogoKey:           fmt.Sprintf("uploads/logo/%s.png", gofakeit.UUID()),
			Status:            s.pickStatus(),
			SubmittedByUserID: submitter.ID,
			SubmittedAt:       submittedAt,
		}
		tool.SetCategoryList(s.pickCategories())

		switch tool.Status {
		case models.ToolStatusRejected:
			tool.RejectionCount = 1 + s.r.Intn(2)
		case models.ToolStatusPermanentlyRejected:
			tool.RejectionCount = 3
		case models.ToolStatusApproved:
			approvedAt := submittedAt.Add(time.Duration(1+s.r.Intn(48)) * time.Hour)
			tool.ApprovedAt = &approvedAt
		}

		if err := s.db.Create(&tool).Error; err != nil {
			return nil, err
		}
		if err := s.createHistory(&tool, users[0].ID); err != nil {
			return nil, err
		}
		if err := s.db.Model(&models.User{}).Where("id = ?", submitter.ID).
			UpdateColumn("submission_count", gorm.Expr("submission_count + 1")).Error; err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// pickStatus skews toward approved so the public directory looks alive.
func (s *Seeder) pickStatus() models.ToolStatus {
	switch n := s.r.Intn(100); {
	case n < 60:
		return models.ToolStatusApproved
	case n < 80:
		return models.ToolStatusPending
	case n < 95:
		return models.ToolStatusRejected
	default:
		return models.ToolStatusPermanentlyRejected
	}
}

func (s *Seeder) pickCategories() []string {
	count := 1 + s.r.Intn(3)
	picked := make([]string, 0, count)
	seen := map[string]bool{}
	for len(picked) < count {
		c := categories[s.r.Intn(len(categories))]
		if !seen[c] {
			seen[c] = true
			picked = append(picked, c)
		}
	}
	return picked
}

// createHistory writes an audit trail consistent with the tool's state: every
// tool was submitted, rejected tools carry one rejection entry per strike,
// approved tools carry the approval.
func (s *Seeder) createHistory(tool *models.Tool, adminID uint) error {
	entries := []models.ToolHistory{{
		ToolID:      tool.ID,
		ActorUserID: tool.SubmittedByUserID,
		EventType:   models.HistorySubmitted,
		CreatedAt:   tool.SubmittedAt,
	}}

	switch tool.Status {
	case models.ToolStatusApproved:
		entries = append(entries, models.ToolHistory{
			ToolID:      tool.ID,
			ActorUserID: adminID,
			EventType:   models.HistoryApproved,
			CreatedAt:   *tool.ApprovedAt,
		})
	case models.ToolStatusRejected, models.ToolStatusPermanentlyRejected:
		at := tool.SubmittedAt
		for i := 0; i < tool.RejectionCount; i++ {
			at = at.Add(time.Duration(1+s.r.Intn(24)) * time.Hour)
			entries = append(entries, models.ToolHistory{
				ToolID:      tool.ID,
				ActorUserID: adminID,
				EventType:   models.HistoryRejected,
				Reason:      rejectionReasons[s.r.Intn(len(rejectionReasons))],
				CreatedAt:   at,
			})
			if i < tool.RejectionCount-1 {
				at = at.Add(time.Duration(1+s.r.Intn(24)) * time.Hour)
				entries = append(entries, models.ToolHistory{
					ToolID:      tool.ID,
					ActorUserID: tool.SubmittedByUserID,
					EventType:   models.HistoryUpdated,
					CreatedAt:   at,
				})
			}
		}
	}

	return s.db.Create(&entries).Error
}

func (s *Seeder) createBookmarks(users []models.User, tools []models.Tool) (int, error) {
	created := 0
	for _, tool := range tools {
		if tool.Status != models.ToolStatusApproved {
			continue
		}
		for _, user := range users {
			// roughly one in four users bookmarks any given approved tool
			if s.r.Intn(4) != 0 {
				continue
			}
			bookmark := models.Bookmark{UserID: user.ID, ToolID: tool.ID}
			if err := s.db.Create(&bookmark).Error; err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}
