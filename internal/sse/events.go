package sse

import (
	"time"

	"github.com/listenupapp/bookclub-server/internal/id"
)

// EventType names the SSE "event:" field.
type EventType string

// Event types sent on the stream.
const (
	// EventUpdate carries a resource change notification.
	EventUpdate EventType = "update"
	// EventHeartbeat keeps idle connections open.
	EventHeartbeat EventType = "heartbeat"
	// EventConnected is the first event of every stream.
	EventConnected EventType = "connected"
)

// Event is one message on the stream. Data is written verbatim; it is
// already serialized JSON.
type Event struct {
	Timestamp time.Time
	ID        string
	Type      EventType
	Topics    []string
	Data      []byte
}

// NewUpdateEvent creates a change notification for topics.
func NewUpdateEvent(topics []string, payload []byte) (Event, error) {
	eventID, err := id.Generate("evt")
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        eventID,
		Type:      EventUpdate,
		Topics:    topics,
		Data:      payload,
		Timestamp: time.Now(),
	}, nil
}

// NewHeartbeatEvent creates a keep-alive event delivered to every client.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Data:      []byte("{}"),
		Timestamp: time.Now(),
	}
}
