package models

import "time"

// Feedback is free-form user feedback. UserID is set only when the caller was
// authenticated; VisitorID always identifies the browser session.
type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	UserID    *uint     `gorm:"default:null;index" json:"user_id,omitempty"`
	VisitorID string    `gorm:"type:varchar(100);not null" json:"visitor_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
