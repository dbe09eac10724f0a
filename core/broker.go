package core

import (
	"context"
	"encoding/json"
)

// Event is an advisory notification fanned out to connected clients so their
// dashboards refresh. Delivery is at-most-once with no persistence: a
// disconnected client simply misses it and relies on its next full refetch.
// Receipt of an event is never confirmation that a request succeeded; the API
// response is authoritative.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event. A payload that cannot be marshalled
// yields a null payload rather than an error; events are best effort.
func NewEvent(name string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = json.RawMessage("null")
	}
	return Event{Name: name, Payload: data}
}

// Broker is a fire-and-forget pub/sub fan-out.
type Broker interface {
	// Publish delivers evt to current subscribers on a best-effort basis.
	// It never blocks on slow subscribers and reports no delivery outcome.
	Publish(ctx context.Context, evt Event)

	// Subscribe returns a channel of events published after the call, and a
	// cancel function that must be called to release the subscription.
	// The channel is closed on cancel or when ctx is done.
	Subscribe(ctx context.Context) (<-chan Event, func())
}
