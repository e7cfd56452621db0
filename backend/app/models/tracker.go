package models

import "time"

// Tracker is a registered device owned by one user.
type Tracker struct {
	ID             string  `gorm:"primaryKey;size:64"`
	UserID         uint    `gorm:"index;not null"`
	Owner          string  `gorm:"size:191"`
	Name           string  `gorm:"size:191"`
	Type           string  `gorm:"size:16;default:tracker"`
	Platform       string  `gorm:"size:64"`
	HomeLat        float64
	HomeLng        float64
	Radius         float64
	GeofenceActive bool
	Status         string `gorm:"size:16;default:offline"`
	Position       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Fix is one location report.
type Fix struct {
	ID         uint      `gorm:"primaryKey"`
	TrackerID  string    `gorm:"size:64;index:idx_fix_tracker_time,priority:1"`
	Latitude   float64
	Longitude  float64
	Battery    float64
	Main       float64
	RecordedAt time.Time `gorm:"index:idx_fix_tracker_time,priority:2"`
}
