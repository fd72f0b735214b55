// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account in the directory.
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Email           string         `gorm:"unique;not null" json:"email"`
	DisplayName     string         `gorm:"size:120" json:"display_name"`
	IsAdmin         bool           `gorm:"not null;default:false" json:"is_admin"`
	SubmissionCount int            `gorm:"not null;default:0" json:"submission_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
