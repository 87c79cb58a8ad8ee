package events

import "fundflow/core/types"

// Event represents a structured state change emitted by a module.
type Event interface {
	EventType() string
}

// Payload is implemented by events that carry a structured body.
type Payload interface {
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. the UI feed).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
