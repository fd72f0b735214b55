package models

import "time"

// ToolHistoryEvent defines the audited lifecycle events of a tool listing.
type ToolHistoryEvent string

const (
	HistorySubmitted ToolHistoryEvent = "submitted"
	HistoryUpdated   ToolHistoryEvent = "updated"
	HistoryApproved  ToolHistoryEvent = "approved"
	HistoryRejected  ToolHistoryEvent = "rejected"
)

// ToolHistory is an append-only audit record of a tool lifecycle event.
// Rows are never updated or deleted.
type ToolHistory struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	ToolID      uint             `gorm:"not null;index" json:"tool_id"`
	ActorUserID uint             `gorm:"not null" json:"actor_user_id"`
	ActorUser   *User            `gorm:"foreignKey:ActorUserID" json:"actor_user,omitempty"`
	EventType   ToolHistoryEvent `gorm:"type:varchar(20);not null" json:"event_type"`
	Reason      string           `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (ToolHistory) TableName() string {
	return "tool_histories"
}
