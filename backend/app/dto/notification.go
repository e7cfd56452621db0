package dto

import (
	"time"

	"trackdash/backend/app/models"
)

type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

func NotificationFrom(n models.Notification) Notification {
	return Notification{ID: n.ID, Message: n.Message, Timestamp: n.CreatedAt.UTC(), Read: n.Read}
}

// AlertRequest raises a notification for the caller, optionally tied to a tracker.
type AlertRequest struct {
	TrackerID string `json:"trackerId"`
	Message   string `json:"message" binding:"required"`
}
