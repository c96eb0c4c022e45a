package events

import "marketplace/core/types"

// Event is a structured state change emitted by the settlement engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (indexers, logs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies Emitter while discarding all events. Engines default
// to it so emission is always safe to call.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}

// Capture collects emitted events in order. Test helper.
type Capture struct {
	Events []Event
}

// Emit implements Emitter.
func (c *Capture) Emit(e Event) {
	if e == nil {
		return
	}
	c.Events = append(c.Events, e)
}

// Types returns the emitted event type strings in order.
func (c *Capture) Types() []string {
	out := make([]string, 0, len(c.Events))
	for _, e := range c.Events {
		out = append(out, e.EventType())
	}
	return out
}
