package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Event types pushed to dashboard clients.
const (
	EventState    = "state"
	EventShutdown = "shutdown"
	EventReset    = "reset"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client to request replay after a reconnect.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to reload the full state (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence hands out monotonic event IDs.
type EventSequence struct {
	counter atomic.Uint64
}

// Next returns the next event ID. IDs start at 1.
func (es *EventSequence) Next() uint64 {
	return es.counter.Add(1)
}
