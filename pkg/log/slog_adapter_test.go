package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/softioc/softioc-go/pkg/wire"
)

func logOne(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterLogsMessageEvent(t *testing.T) {
	op := wire.OpRead
	subID := uint32(7)
	entry := logOne(t, Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		PVName:       "TEMP",
		Message: &MessageEvent{
			Type:           wire.MessageTypeRequest,
			MessageID:      42,
			Operation:      &op,
			SubscriptionID: &subID,
		},
	})

	want := map[string]any{
		"msg":       "protocol",
		"conn_id":   "conn-123",
		"direction": "IN",
		"layer":     "WIRE",
		"pv":        "TEMP",
		"msg_type":  "Request",
		"operation": "Read",
		"msg_id":    float64(42),
		"sub_id":    float64(7),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	entry := logOne(t, Event{
		Layer:    LayerServer,
		Category: CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityServer,
			OldState: "STARTING",
			NewState: "RUNNING",
		},
	})

	if entry["entity"] != "SERVER" || entry["new_state"] != "RUNNING" || entry["old_state"] != "STARTING" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["conn_id"]; ok {
		t.Error("empty connection ID should be omitted")
	}
}

func TestSlogAdapterLogsError(t *testing.T) {
	entry := logOne(t, Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerTransport, Message: "reset", Context: "write"},
	})
	if entry["error_msg"] != "reset" || entry["error_layer"] != "TRANSPORT" || entry["error_context"] != "write" {
		t.Errorf("entry = %v", entry)
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{})
	if buf.Len() != 0 {
		t.Errorf("debug event written at info level: %s", buf.String())
	}
}

func TestSlogAdapterEscalatesErrors(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerWire, Message: "bad frame"},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("error event not logged at info level: %q", buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
}

func TestSlogAdapterLogsPayload(t *testing.T) {
	status := wire.StatusSuccess
	entry := logOne(t, Event{
		Direction: DirectionOut,
		Layer:     LayerWire,
		PVName:    "TEMP",
		Message:   &MessageEvent{Type: wire.MessageTypeResponse, MessageID: 3, Status: &status, Payload: 21.5},
	})
	if entry["value"] != 21.5 || entry["status"] != "SUCCESS" {
		t.Errorf("entry = %v", entry)
	}
}
