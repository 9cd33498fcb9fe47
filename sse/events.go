package sse

import (
	"encoding/json"
	"time"
)

// Stream-level event types. Runtime notifications define their own.
const (
	EventTypeConnected = "connected"
	EventTypeKeepAlive = "keepalive"
)

// Event is one SSE frame: "event: <Type>" followed by "data: <Data>".
type Event struct {
	Type string
	Data []byte
}

// NewEvent marshals v as the event data.
func NewEvent(typ string, v any) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Data: data}, nil
}

// ConnectedEvent is sent when a client subscribes.
type ConnectedEvent struct {
	ClientID string            `json:"client_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Time     time.Time         `json:"time"`
}

// Broadcaster publishes events to subscribed clients.
type Broadcaster interface {
	// Publish sends ev to every client whose id matches the glob pattern.
	// It never blocks and reports whether the hub accepted the event.
	Publish(pattern string, ev Event) bool
}
