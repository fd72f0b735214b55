package models

import "time"

// Bookmark marks a tool as saved by a user. One row per user+tool pair.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_tool" json:"user_id"`
	ToolID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_tool;index" json:"tool_id"`
	Tool      *Tool     `gorm:"foreignKey:ToolID" json:"tool,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
