package events

import "time"

// Event type codes emitted by the playground.
const (
	TypeInputBlocked     = "chat.input_blocked"
	TypeUnsafeOutput     = "chat.unsafe_output"
	TypeCrossSessionLeak = "chat.cross_session_leak"
	TypeDocumentIndexed  = "document.indexed"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "chat.input_blocked").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain value implementation used by the publisher and
// the NATS subscriber when rehydrating events off the wire.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
