package log

import (
	"sync"
	"testing"
	"time"
)

// recordingLogger records events for testing.
type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	var logger NoopLogger

	event := Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn",
		Layer:        LayerTransport,
		Frame:        NewFrameEvent([]byte{1, 2, 3}),
	}
	logger.Log(event)

	event.Frame = nil
	event.Error = &ErrorEventData{Message: "boom"}
	logger.Log(event)
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	r := &recordingLogger{}
	if OrNoop(r) != Logger(r) {
		t.Error("OrNoop should return a non-nil logger unchanged")
	}
}

func TestMultiLoggerCallsAll(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	multi := NewMultiLogger(a, nil, b)

	multi.Log(Event{ConnectionID: "conn-123"})

	for i, r := range []*recordingLogger{a, b} {
		if len(r.events) != 1 {
			t.Errorf("logger %d: got %d events, want 1", i, len(r.events))
			continue
		}
		if r.events[0].ConnectionID != "conn-123" {
			t.Errorf("logger %d: ConnectionID = %q", i, r.events[0].ConnectionID)
		}
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	NewMultiLogger().Log(Event{})
}

func TestNewFrameEventTruncates(t *testing.T) {
	small := NewFrameEvent([]byte{1, 2})
	if small.Size != 6 || small.Truncated || len(small.Data) != 2 {
		t.Errorf("small frame = %+v", small)
	}

	big := NewFrameEvent(make([]byte, MaxFrameCapture+10))
	if !big.Truncated || len(big.Data) != MaxFrameCapture {
		t.Errorf("big frame truncated=%v len=%d", big.Truncated, len(big.Data))
	}
	if big.Size != MaxFrameCapture+14 {
		t.Errorf("big frame size = %d", big.Size)
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{LayerServer.String(), "SERVER"},
		{CategoryState.String(), "STATE"},
		{StateEntitySubscription.String(), "SUBSCRIPTION"},
		{Layer(9).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
