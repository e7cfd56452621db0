package dto

import (
	"encoding/json"
	"time"

	"trackdash/backend/app/models"
)

// CommandRequest is both the REST body and the remote-capture-command payload.
type CommandRequest struct {
	DeviceID    string         `json:"deviceId"`
	CommandType string         `json:"commandType"`
	Options     map[string]any `json:"options,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
}

type CommandRecord struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"requestId,omitempty"`
	DeviceID    string          `json:"deviceId"`
	CommandType string          `json:"commandType"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func CommandRecordFrom(c models.Command) CommandRecord {
	rec := CommandRecord{
		ID:          c.ID,
		RequestID:   c.RequestID,
		DeviceID:    c.DeviceID,
		CommandType: c.CommandType,
		Status:      c.Status,
		Error:       c.LastError,
		CreatedAt:   c.CreatedAt,
	}
	if c.Response != "" {
		rec.Response = json.RawMessage(c.Response)
	}
	return rec
}

// CommandEvent is the payload of command-sent, command-error and command-status-update.
type CommandEvent struct {
	RequestID   string          `json:"requestId,omitempty"`
	CommandType string          `json:"commandType"`
	Status      string          `json:"status"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type Media struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

type MediaNotification struct {
	DeviceID string `json:"deviceId,omitempty"`
	Media    Media  `json:"media"`
}
