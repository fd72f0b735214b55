package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"toolshelf/internal/config"
	"toolshelf/internal/images"
	"toolshelf/internal/middleware"
	"toolshelf/internal/models"
	"toolshelf/internal/repository"
	"toolshelf/internal/storage"
	"toolshelf/internal/validation"

	"gorm.io/gorm"
)

// VariantGenerator produces the rendition ladder for an uploaded showcase
// image.
type VariantGenerator interface {
	Generate(ctx context.Context, originalKey string) error
}

// SubmissionService handles the submit and edit flow for tool listings.
type SubmissionService struct {
	toolRepo  repository.ToolRepository
	userRepo  repository.UserRepository
	store     storage.ObjectStore
	generator VariantGenerator
	cfg       *config.Config
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(
	toolRepo repository.ToolRepository,
	userRepo repository.UserRepository,
	store storage.ObjectStore,
	generator VariantGenerator,
	cfg *config.Config,
) *SubmissionService {
	return &SubmissionService{
		toolRepo:  toolRepo,
		userRepo:  userRepo,
		store:     store,
		generator: generator,
		cfg:       cfg,
	}
}

// IntakeResult carries the presigned upload targets for a validated
// submission. The client PUTs the files directly to storage and then calls
// SaveTool with the keys.
type IntakeResult struct {
	LogoKey           string `json:"logo_key,omitempty"`
	LogoUploadURL     string `json:"logo_upload_url,omitempty"`
	ShowcaseKey       string `json:"showcase_key"`
	ShowcaseUploadURL string `json:"showcase_upload_url"`
}

// SaveToolInput is the persisted form of a submission, referencing storage
// keys the client already uploaded to.
type SaveToolInput struct {
	ToolID      uint     `json:"tool_id,omitempty"`
	Name        string   `json:"name"`
	WebsiteURL  string   `json:"website_url"`
	Tagline     string   `json:"tagline"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Pricing     string   `json:"pricing"`
	LogoKey     string   `json:"logo_key,omitempty"`
	ShowcaseKey string   `json:"showcase_key,omitempty"`
}

func (s *SubmissionService) limits() validation.Limits {
	return validation.Limits{
		TaglineWords:      s.cfg.TaglineWordLimit,
		DescriptionWords:  s.cfg.DescriptionWordLimit,
		MaxImageSizeBytes: int64(s.cfg.MaxImageSizeMB) * 1024 * 1024,
	}
}

// Intake validates a submission and hands back presigned upload URLs.
// Validation and the permanent-rejection check run before any storage call,
// so a doomed submission causes no side effects at all. An admin editing an
// existing listing may omit the showcase declaration; everyone else must
// declare one.
func (s *SubmissionService) Intake(ctx context.Context, userID uint, isAdmin bool, in validation.SubmissionInput) (*IntakeResult, error) {
	adminEdit := isAdmin && in.ToolID != 0
	if fieldErrs := validation.ValidateSubmission(in, s.limits(), adminEdit); !fieldErrs.Empty() {
		return nil, fieldErrs.AsError()
	}

	baseSlug := validation.Slugify(in.Name)
	blocked, err := s.toolRepo.PermanentlyRejectedExists(ctx, baseSlug, userID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, models.NewPermanentlyRejectedError(baseSlug)
	}

	if err := s.checkSubmissionCeiling(ctx, userID); err != nil {
		return nil, err
	}

	result := &IntakeResult{}
	if in.Logo != nil {
		result.LogoKey = storage.NewObjectKey("logo", in.Logo.Filename)
		result.LogoUploadURL, err = s.store.PresignUpload(ctx, result.LogoKey, in.Logo.ContentType)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	if in.Showcase != nil {
		result.ShowcaseKey = storage.NewObjectKey("showcase", in.Showcase.Filename)
		result.ShowcaseUploadURL, err = s.store.PresignUpload(ctx, result.ShowcaseKey, in.Showcase.ContentType)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	return result, nil
}

// SaveTool creates or edits a listing. A zero ToolID creates; otherwise the
// listing is edited in place.
func (s *SubmissionService) SaveTool(ctx context.Context, userID uint, isAdmin bool, in SaveToolInput) (*models.Tool, error) {
	if in.ToolID == 0 {
		return s.createTool(ctx, userID, in)
	}
	return s.editTool(ctx, userID, isAdmin, in)
}

func (s *SubmissionService) createTool(ctx context.Context, userID uint, in SaveToolInput) (*models.Tool, error) {
	if err := s.validateSave(in, false); err != nil {
		return nil, err
	}

	baseSlug := validation.Slugify(in.Name)
	blocked, err := s.toolRepo.PermanentlyRejectedExists(ctx, baseSlug, userID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, models.NewPermanentlyRejectedError(baseSlug)
	}

	if err := s.checkSubmissionCeiling(ctx, userID); err != nil {
		return nil, err
	}

	tool := &models.Tool{
		Name:              in.Name,
		Slug:              baseSlug,
		WebsiteURL:        in.WebsiteURL,
		Tagline:           in.Tagline,
		Description:       in.Description,
		Pricing:           models.ToolPricing(in.Pricing),
		LogoKey:           in.LogoKey,
		ShowcaseKey:       in.ShowcaseKey,
		Status:            models.ToolStatusPending,
		SubmittedByUserID: userID,
		SubmittedAt:       time.Now(),
	}
	tool.SetCategoryList(validation.NormalizedCategories(in.Categories))

	history := &models.ToolHistory{
		ActorUserID: userID,
		EventType:   models.HistorySubmitted,
	}
	if err := s.toolRepo.CreateSubmission(ctx, tool, history); err != nil {
		return nil, err
	}

	s.generateVariants(tool.ShowcaseKey)
	return tool, nil
}

func (s *SubmissionService) editTool(ctx context.Context, userID uint, isAdmin bool, in SaveToolInput) (*models.Tool, error) {
	tool, err := s.toolRepo.GetByID(ctx, in.ToolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("tool", in.ToolID)
		}
		return nil, err
	}

	if !isAdmin && tool.SubmittedByUserID != userID {
		return nil, models.NewForbiddenError("You can only edit your own submissions")
	}
	if tool.Status == models.ToolStatusPermanentlyRejected {
		return nil, models.NewPermanentlyRejectedError(tool.Slug)
	}

	if err := s.validateSave(in, isAdmin); err != nil {
		return nil, err
	}

	oldShowcase := tool.ShowcaseKey
	oldLogo := tool.LogoKey

	// The slug is the listing's public URL; it survives renames.
	tool.Name = in.Name
	tool.WebsiteURL = in.WebsiteURL
	tool.Tagline = in.Tagline
	tool.Description = in.Description
	tool.Pricing = models.ToolPricing(in.Pricing)
	tool.SetCategoryList(validation.NormalizedCategories(in.Categories))
	if in.LogoKey != "" {
		tool.LogoKey = in.LogoKey
	}
	if in.ShowcaseKey != "" {
		tool.ShowcaseKey = in.ShowcaseKey
	}

	if !isAdmin {
		// An edited submission goes back into the review queue.
		tool.Status = models.ToolStatusPending
		tool.SubmittedAt = time.Now()
		tool.ApprovedAt = nil
	}

	history := &models.ToolHistory{
		ActorUserID: userID,
		EventType:   models.HistoryUpdated,
	}
	if err := s.toolRepo.UpdateWithHistory(ctx, tool, history); err != nil {
		return nil, err
	}

	if tool.ShowcaseKey != oldShowcase {
		s.deleteShowcaseRenditions(ctx, oldShowcase)
		s.generateVariants(tool.ShowcaseKey)
	}
	if in.LogoKey != "" && in.LogoKey != oldLogo && oldLogo != "" {
		if err := s.store.Delete(ctx, oldLogo); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete replaced logo",
				slog.String("key", oldLogo),
				slog.String("error", err.Error()),
			)
		}
	}

	return tool, nil
}

// validateSave re-checks the text fields at save time. The files were already
// validated and uploaded during intake, so only key presence matters here.
func (s *SubmissionService) validateSave(in SaveToolInput, adminEdit bool) error {
	fieldErrs := validation.ValidateSubmission(validation.SubmissionInput{
		Name:        in.Name,
		WebsiteURL:  in.WebsiteURL,
		Tagline:     in.Tagline,
		Description: in.Description,
		Categories:  in.Categories,
		Pricing:     in.Pricing,
	}, s.limits(), true)

	if !adminEdit && in.ToolID == 0 && in.ShowcaseKey == "" {
		fieldErrs["showcaseImage"] = append(fieldErrs["showcaseImage"], "A showcase image is required")
	}
	if !fieldErrs.Empty() {
		return fieldErrs.AsError()
	}
	return nil
}

func (s *SubmissionService) checkSubmissionCeiling(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.SubmissionCount >= s.cfg.MaxSubmissionsPerUser {
		return models.NewForbiddenError("Submission limit reached")
	}
	return nil
}

// generateVariants kicks off rendition generation without blocking the
// request. Failures are logged; the original stays in place for a retry.
func (s *SubmissionService) generateVariants(showcaseKey string) {
	if showcaseKey == "" || s.generator == nil {
		return
	}
	go func() {
		// Detached from the request context so an early client disconnect
		// does not abort the pipeline.
		genCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.generator.Generate(genCtx, showcaseKey); err != nil {
			middleware.Logger.Error("showcase rendition generation failed",
				slog.String("key", showcaseKey),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// deleteShowcaseRenditions removes the rendition set of a replaced showcase
// image. Best effort; a leaked object is preferable to failing the edit.
func (s *SubmissionService) deleteShowcaseRenditions(ctx context.Context, showcaseKey string) {
	if showcaseKey == "" {
		return
	}
	for _, key := range append(images.VariantKeysFor(showcaseKey), showcaseKey) {
		if err := s.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete replaced showcase rendition",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
