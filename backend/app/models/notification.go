package models

import "time"

type Notification struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    uint   `gorm:"index"`
	TrackerID string `gorm:"size:64"`
	Message   string `gorm:"size:512"`
	Read      bool   `gorm:"column:is_read;index"`
	CreatedAt time.Time
}
