package network

import (
	"encoding/json"
	"errors"
	"fmt"
)

// HeaderClientType carries the client-type tag sent with the connect credentials.
const HeaderClientType = "X-Client-Type"

// Envelope is a single channel frame: an event name and its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrEmptyEvent is returned when a frame has no event name.
var ErrEmptyEvent = errors.New("envelope: empty event name")

// NewEnvelope marshals v as the payload of event.
func NewEnvelope(event string, v any) (Envelope, error) {
	if event == "" {
		return Envelope{}, ErrEmptyEvent
	}
	env := Envelope{Event: event}
	if v == nil {
		return env, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		env.Data = raw
		return env, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	env.Data = b
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s: empty payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("event %s: %w", e.Event, err)
	}
	return nil
}
