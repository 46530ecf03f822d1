// # internal/engine/interpret/event.go
package interpret

import (
	"encoding/json"
	"fmt"
)

// EventKind is the severity of an output event.
type EventKind string

const (
	EventStandard EventKind = "standard"
	EventSuccess  EventKind = "success"
	EventError    EventKind = "error"
	EventInfo     EventKind = "info"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventStandard, EventSuccess, EventError, EventInfo:
		return true
	}
	return false
}

func (k *EventKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !EventKind(s).Valid() {
		return fmt.Errorf("unknown event kind %q", s)
	}
	*k = EventKind(s)
	return nil
}

// OutputEvent is one observable result of interpretation. Its JSON form is the
// payload of a run response.
type OutputEvent struct {
	Kind  EventKind `json:"type"`
	Text  string    `json:"text"`
	Image string    `json:"image,omitempty"`
	// Line is the 0-based source line that produced the event, or -1.
	Line int `json:"line"`
}

// Counts tallies events by kind.
func Counts(events []OutputEvent) map[EventKind]int {
	out := make(map[EventKind]int, 4)
	for _, ev := range events {
		out[ev.Kind]++
	}
	return out
}

// HasErrors reports whether any event has error severity.
func HasErrors(events []OutputEvent) bool {
	for _, ev := range events {
		if ev.Kind == EventError {
			return true
		}
	}
	return false
}
