package notification

import "time"

type Notification struct {
	ID        string    `json:"id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}
