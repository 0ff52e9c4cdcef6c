package model

import (
	"time"
)

// WhiteboardRecord is the durable copy of one project's whiteboard.
// The uuid primary key is assigned on first save and reused on every
// later save, so repeated saves update a single row.
type WhiteboardRecord struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ProjectID int64     `gorm:"not null;uniqueIndex" json:"project_id"`
	Data      string    `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WhiteboardRecord) TableName() string {
	return "whiteboard_records"
}
