package models

import (
	"strings"
	"time"
)

// ToolStatus defines the review state of a tool listing.
type ToolStatus string

const (
	// ToolStatusPending indicates a listing is awaiting admin review.
	ToolStatusPending ToolStatus = "pending"
	// ToolStatusApproved indicates a listing is publicly visible. Terminal.
	ToolStatusApproved ToolStatus = "approved"
	// ToolStatusRejected indicates a listing was declined but may be resubmitted.
	ToolStatusRejected ToolStatus = "rejected"
	// ToolStatusPermanentlyRejected indicates a listing exhausted its
	// resubmission allowance. Terminal; blocks further edits.
	ToolStatusPermanentlyRejected ToolStatus = "permanently_rejected"
)

// ToolPricing defines the pricing model of a listed tool.
type ToolPricing string

const (
	PricingFree     ToolPricing = "free"
	PricingPaid     ToolPricing = "paid"
	PricingFreemium ToolPricing = "freemium"
)

// Tool represents a listed AI tool.
type Tool struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	Name              string      `gorm:"size:120;not null" json:"name"`
	Slug              string      `gorm:"size:140;not null;uniqueIndex" json:"slug"`
	WebsiteURL        string      `gorm:"size:500;not null" json:"website_url"`
	Tagline           string      `gorm:"size:500;not null" json:"tagline"`
	Description       string      `gorm:"type:text;not null" json:"description"`
	Categories        string      `gorm:"size:300;not null" json:"-"`
	Pricing           ToolPricing `gorm:"type:varchar(20);not null" json:"pricing"`
	LogoKey           string      `gorm:"size:300" json:"logo_key,omitempty"`
	ShowcaseKey       string      `gorm:"size:300" json:"showcase_key"`
	Status            ToolStatus  `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	RejectionCount    int         `gorm:"not null;default:0" json:"rejection_count"`
	SubmittedByUserID uint        `gorm:"not null;index" json:"submitted_by_user_id"`
	SubmittedByUser   *User       `gorm:"foreignKey:SubmittedByUserID" json:"submitted_by_user,omitempty"`
	SubmittedAt       time.Time   `gorm:"not null" json:"submitted_at"`
	ApprovedAt        *time.Time  `json:"approved_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	// BookmarksCount is populated by listing queries, not stored.
	BookmarksCount int `gorm:"->;-:migration" json:"bookmarks_count"`
}

// TableName specifies the table name for GORM.
func (Tool) TableName() string {
	return "tools"
}

// CategoryList splits the serialized categories column into its entries.
func (t *Tool) CategoryList() []string {
	if t.Categories == "" {
		return nil
	}
	parts := strings.Split(t.Categories, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SetCategoryList serializes the given entries into the categories column.
func (t *Tool) SetCategoryList(categories []string) {
	t.Categories = strings.Join(categories, ",")
}

// IsTerminal reports whether the status permits no further transitions.
func (s ToolStatus) IsTerminal() bool {
	return s == ToolStatusApproved || s == ToolStatusPermanentlyRejected
}

// ValidPricing reports whether the value is one of the supported pricing models.
func ValidPricing(p ToolPricing) bool {
	switch p {
	case PricingFree, PricingPaid, PricingFreemium:
		return true
	default:
		return false
	}
}
