package db

import "time"

type Token struct {
	ID        uint   `gorm:"primaryKey"`
	Value     string `gorm:"size:8192"`
	CreatedAt time.Time
}

// CachedTracker is the last-known tracker list, used only to seed the UI offline.
type CachedTracker struct {
	TrackerID string `gorm:"primaryKey;size:191"`
	Position  int
	Payload   string `gorm:"type:text"` // tracker JSON
	UpdatedAt time.Time
}
