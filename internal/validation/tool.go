// Package validation contains submission field validation and slug derivation.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"toolshelf/internal/models"
)

var slugCleanRegex = regexp.MustCompile(`[^a-z0-9]+`)

var reservedToolSlugs = map[string]struct{}{
	"admin":      {},
	"api":        {},
	"auth":       {},
	"tools":      {},
	"categories": {},
	"bookmarks":  {},
	"me":         {},
	"metrics":    {},
	"health":     {},
	"login":      {},
	"submit":     {},
}

// Slugify derives a URL slug from a tool name: lowercase, non-alphanumeric runs
// collapsed to single hyphens, trimmed. Reserved slugs get a "tool-" prefix so
// they never collide with routes.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugCleanRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "tool"
	}
	if len(slug) > 120 {
		slug = strings.Trim(slug[:120], "-")
	}
	if _, reserved := reservedToolSlugs[slug]; reserved {
		slug = "tool-" + slug
	}
	return slug
}

// SlugWithSuffix returns the slug for the nth collision attempt:
// attempt 1 is the bare slug, attempt 2 is "slug-2", and so on.
func SlugWithSuffix(slug string, attempt int) string {
	if attempt <= 1 {
		return slug
	}
	return fmt.Sprintf("%s-%d", slug, attempt)
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// FileDecl describes a file the client intends to upload.
type FileDecl struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// SubmissionInput is the raw submission form payload.
type SubmissionInput struct {
	ToolID      uint      `json:"tool_id,omitempty"`
	Name        string    `json:"name"`
	WebsiteURL  string    `json:"website_url"`
	Tagline     string    `json:"tagline"`
	Description string    `json:"description"`
	Categories  []string  `json:"categories"`
	Pricing     string    `json:"pricing"`
	Logo        *FileDecl `json:"logo,omitempty"`
	Showcase    *FileDecl `json:"showcase,omitempty"`
}

// Limits carries the configured validation ceilings.
type Limits struct {
	TaglineWords      int
	DescriptionWords  int
	MaxImageSizeBytes int64
}

const (
	maxNameLen       = 120
	minCategories    = 1
	maxCategories    = 3
	maxCategoryLen   = 40
	showcaseFieldKey = "showcaseImage"
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// FieldErrors accumulates field path to message lists.
type FieldErrors map[string][]string

func (fe FieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Empty reports whether no field failed.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// AsError converts the accumulated failures into an AppError, or nil when clean.
func (fe FieldErrors) AsError() error {
	if fe.Empty() {
		return nil
	}
	return models.NewFieldValidationError(fe)
}

// ValidateSubmission checks all field constraints of a submission.
// adminEdit relaxes the showcase requirement for admins editing an existing
// listing. Returns field-level errors; callers turn them into one AppError.
func ValidateSubmission(in SubmissionInput, limits Limits, adminEdit bool) FieldErrors {
	fe := FieldErrors{}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		fe.add("name", "Name is required")
	} else if len(name) > maxNameLen {
		fe.add("name", fmt.Sprintf("Name too long (max %d characters)", maxNameLen))
	}

	if strings.TrimSpace(in.WebsiteURL) == "" {
		fe.add("websiteUrl", "Website URL is required")
	} else if !isValidHTTPURL(in.WebsiteURL) {
		fe.add("websiteUrl", "Website URL must be a valid http(s) URL")
	}

	if strings.TrimSpace(in.Tagline) == "" {
		fe.add("tagline", "Tagline is required")
	} else if n := CountWords(in.Tagline); n > limits.TaglineWords {
		fe.add("tagline", fmt.Sprintf("Tagline exceeds the %d word limit (%d words)", limits.TaglineWords, n))
	}

	if strings.TrimSpace(in.Description) == "" {
		fe.add("description", "Description is required")
	} else if n := CountWords(in.Description); n > limits.DescriptionWords {
		fe.add("description", fmt.Sprintf("Description exceeds the %d word limit (%d words)", limits.DescriptionWords, n))
	}

	categories := normalizeCategories(in.Categories)
	if len(categories) < minCategories {
		fe.add("categories", "At least one category is required")
	} else if len(categories) > maxCategories {
		fe.add("categories", fmt.Sprintf("At most %d categories are allowed", maxCategories))
	}
	for _, c := range categories {
		if len(c) > maxCategoryLen {
			fe.add("categories", fmt.Sprintf("Category %q too long (max %d characters)", c, maxCategoryLen))
		}
	}

	if !models.ValidPricing(models.ToolPricing(in.Pricing)) {
		fe.add("pricing", "Pricing must be one of free, paid, freemium")
	}

	if in.Logo != nil {
		validateFileDecl(fe, "logo", in.Logo, limits.MaxImageSizeBytes)
	}

	if in.Showcase == nil {
		if !adminEdit {
			fe.add(showcaseFieldKey, "Showcase image is required")
		}
	} else {
		validateFileDecl(fe, showcaseFieldKey, in.Showcase, limits.MaxImageSizeBytes)
	}

	return fe
}

// NormalizedCategories returns the trimmed, de-duplicated category list.
func NormalizedCategories(categories []string) []string {
	return normalizeCategories(categories)
}

func normalizeCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func validateFileDecl(fe FieldErrors, field string, decl *FileDecl, maxSize int64) {
	if strings.TrimSpace(decl.Filename) == "" {
		fe.add(field, "Filename is required")
	}
	if _, ok := allowedImageTypes[strings.ToLower(strings.TrimSpace(decl.ContentType))]; !ok {
		fe.add(field, "File must be a JPEG, PNG, GIF, or WebP image")
	}
	if decl.SizeBytes <= 0 {
		fe.add(field, "File size is required")
	} else if decl.SizeBytes > maxSize {
		fe.add(field, fmt.Sprintf("File too large (max %dMB)", maxSize/(1024*1024)))
	}
}

func isValidHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
