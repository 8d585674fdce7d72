package history

import (
	"context"
	"time"
)

// EventType defines the kind of engine lifecycle event.
type EventType string

const (
	EventBootstrapped EventType = "bootstrapped"
	EventStarted      EventType = "started"
	EventStopped      EventType = "stopped"
	EventRecovered    EventType = "recovered"
)

// Event is an engine lifecycle event exported to audit/analytics systems.
// Detail carries the recovery decision for EventRecovered and is empty
// otherwise.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	PID        int       `json:"pid"`
	Port       int       `json:"port"`
	DataDir    string    `json:"data_dir"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for lifecycle events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
