package models

import "time"

// Command is a remote command issued to a tracker, over the channel or REST.
type Command struct {
	ID          string    `gorm:"primaryKey;size:36"`
	RequestID   string    `gorm:"size:64;index"`
	UserID      uint      `gorm:"index"`
	DeviceID    string    `gorm:"size:64;index"`
	CommandType string    `gorm:"size:32"`
	Options     string    `gorm:"type:text"`
	Status      string    `gorm:"size:16;index"` // sent,received,completed,failed,error
	LastError   string    `gorm:"size:512"`
	Response    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}
