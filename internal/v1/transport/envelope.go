package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMissingEvent = errors.New("envelope has no event name")

// Envelope is the frame format in both directions. ID is set on outbound
// commands for log correlation; the server does not echo it.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	ID    string          `json:"id,omitempty"`
}

// Encode marshals data into an envelope frame. A nil data omits the field.
func Encode(event string, data any, id string) ([]byte, error) {
	if event == "" {
		return nil, ErrMissingEvent
	}

	env := Envelope{Event: event, ID: id}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		env.Data = raw
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return out, nil
}

// Decode parses one inbound frame.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return env, nil
}
