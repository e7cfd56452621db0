package command

import (
	"encoding/json"
	"time"
)

// Command types understood by the device agents.
const (
	TypeCapturePhoto = "capture-photo"
	TypeStartVideo   = "start-video"
	TypeStopVideo    = "stop-video"
	TypeLock         = "lock"
	TypeAlarm        = "alarm"
	TypeLocate       = "locate"
)

const notConnectedMsg = "Not connected to device"

// captureTypes can be resolved by a media-notification.
var captureTypes = map[string]bool{
	TypeCapturePhoto: true,
	TypeStartVideo:   true,
	TypeStopVideo:    true,
}

type StatusChange struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Error  string    `json:"error,omitempty"`
}

type Command struct {
	ID        string          `json:"id"`
	Type      string          `json:"commandType"`
	DeviceID  string          `json:"deviceId"`
	Options   map[string]any  `json:"options,omitempty"`
	Status    Status          `json:"status"`
	History   []StatusChange  `json:"history"`
	Error     string          `json:"error,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (c *Command) clone() Command {
	out := *c
	out.History = append([]StatusChange(nil), c.History...)
	if c.Response != nil {
		out.Response = append(json.RawMessage(nil), c.Response...)
	}
	return out
}
