package memory

import "time"

// EventKind names an activity log entry.
type EventKind string

const (
	EventCreated       EventKind = "memory_created"
	EventInterference  EventKind = "interference"
	EventRecall        EventKind = "recall"
	EventDayAdvance    EventKind = "day_advance"
	EventConsolidation EventKind = "consolidation"
)

// Event is emitted by the store as it mutates records.
type Event struct {
	Kind      EventKind      `json:"type"`
	Day       int            `json:"day"`
	Turn      int            `json:"turn,omitempty"` // conversation turn, stamped by the caller
	RecordIDs []string       `json:"memory_ids,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	At        time.Time      `json:"timestamp"`
}

// Observer receives store events synchronously while the store lock is
// held. Implementations must not call back into the store.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) { f(e) }
