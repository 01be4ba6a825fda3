package pv

import (
	"strings"

	"github.com/softioc/softioc-go/pkg/timestamp"
)

// EventMask selects which kinds of change a monitor is interested in.
type EventMask uint8

const (
	// EventValue is posted when the value changes.
	EventValue EventMask = 1 << iota
	// EventLog is posted for changes that should be archived.
	EventLog
	// EventAlarm is posted when status or severity changes.
	EventAlarm
	// EventProperty is posted when metadata changes.
	EventProperty

	// EventAll selects every event kind.
	EventAll = EventValue | EventLog | EventAlarm | EventProperty
)

// Intersects reports whether m and other share at least one bit.
func (m EventMask) Intersects(other EventMask) bool {
	return m&other != 0
}

// String returns the set bits joined by "|".
func (m EventMask) String() string {
	if m == 0 {
		return "NONE"
	}
	var parts []string
	if m&EventValue != 0 {
		parts = append(parts, "VALUE")
	}
	if m&EventLog != 0 {
		parts = append(parts, "LOG")
	}
	if m&EventAlarm != 0 {
		parts = append(parts, "ALARM")
	}
	if m&EventProperty != 0 {
		parts = append(parts, "PROPERTY")
	}
	return strings.Join(parts, "|")
}

// Reading is a type-erased snapshot of a process variable as handed to
// engines, event sinks and the wire. Value holds the codec's encoded form.
type Reading struct {
	Value     any                 `cbor:"1,keyasint" json:"value"`
	Type      Type                `cbor:"2,keyasint" json:"type"`
	Count     int                 `cbor:"3,keyasint" json:"count"`
	Status    Status              `cbor:"4,keyasint" json:"status"`
	Severity  Severity            `cbor:"5,keyasint" json:"severity"`
	Timestamp timestamp.Timestamp `cbor:"6,keyasint" json:"timestamp"`
}

// EventSink receives monitor events. PostEvent is called while the
// variable's lock is held and must not block or call back into the
// variable.
type EventSink interface {
	PostEvent(name string, mask EventMask, r Reading)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(name string, mask EventMask, r Reading)

// PostEvent calls f.
func (f EventSinkFunc) PostEvent(name string, mask EventMask, r Reading) {
	f(name, mask, r)
}

type noopSink struct{}

func (noopSink) PostEvent(string, EventMask, Reading) {}
