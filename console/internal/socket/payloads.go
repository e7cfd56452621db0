package socket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"trackdash/console/internal/logger"
	"trackdash/console/internal/tracker"
)

// Time accepts RFC 3339 strings or epoch milliseconds.
type Time struct{ time.Time }

func (t *Time) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", string(b), err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

type LiveLocation struct {
	TrackerID string  `json:"trackerId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp Time    `json:"timestamp"`
	Main      float64 `json:"main"`
	Battery   float64 `json:"battery"`
}

func (l LiveLocation) Fix() tracker.Fix {
	return tracker.Fix{
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Timestamp: l.Timestamp.Time,
		Battery:   l.Battery,
		MainPower: l.Main,
	}
}

type RemoteCommand struct {
	DeviceID    string         `json:"deviceId"`
	CommandType string         `json:"commandType"`
	Options     map[string]any `json:"options,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
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

type AlertNotification struct {
	ID        string `json:"id,omitempty"`
	Message   string `json:"message"`
	Timestamp Time   `json:"timestamp"`
}

// ConnectError is the payload of the synthesized connect_error and error events.
type ConnectError struct {
	Message string `json:"message"`
}

// Decode unmarshals an inbound payload, logging and returning malformed input.
func Decode(event string, raw json.RawMessage, v any) error {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		err := fmt.Errorf("%s: empty payload", event)
		logger.Errorf("Invalid event: %v", err)
		return err
	}
	if err := json.Unmarshal(line, v); err != nil {
		logger.Errorf("Invalid %s payload: %v | raw=%s", event, err, string(line))
		return err
	}
	return nil
}
