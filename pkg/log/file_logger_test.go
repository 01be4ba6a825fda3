package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/softioc/softioc-go/pkg/wire"
)

func writeCapture(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "test.plog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, e)
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	op := wire.OpWrite
	status := wire.StatusSuccess
	ts := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)

	path := writeCapture(t, []Event{
		{
			Timestamp:    ts,
			ConnectionID: "conn-1",
			Direction:    DirectionIn,
			Layer:        LayerWire,
			Category:     CategoryMessage,
			PVName:       "TEMP",
			Message:      &MessageEvent{Type: wire.MessageTypeRequest, MessageID: 4, Operation: &op, Payload: "21.5"},
		},
		{
			Timestamp:    ts.Add(time.Millisecond),
			ConnectionID: "conn-1",
			Direction:    DirectionOut,
			Layer:        LayerWire,
			Category:     CategoryMessage,
			PVName:       "TEMP",
			Message:      &MessageEvent{Type: wire.MessageTypeResponse, MessageID: 4, Status: &status},
		},
	})

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	events := readAll(t, r)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !events[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v (nanoseconds must survive)", events[0].Timestamp, ts)
	}
	if events[0].Message == nil || events[0].Message.Operation == nil || *events[0].Message.Operation != wire.OpWrite {
		t.Errorf("first event message = %+v", events[0].Message)
	}
	if events[0].Message.Payload != "21.5" {
		t.Errorf("payload = %v", events[0].Message.Payload)
	}
	if events[1].Message == nil || events[1].Message.Status == nil || *events[1].Message.Status != wire.StatusSuccess {
		t.Errorf("second event message = %+v", events[1].Message)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := writeCapture(t, []Event{{ConnectionID: "a"}})

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Log(Event{ConnectionID: "b"})
	logger.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	events := readAll(t, r)
	if len(events) != 2 || events[0].ConnectionID != "a" || events[1].ConnectionID != "b" {
		t.Errorf("events = %+v", events)
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "x.plog"))
	if err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	logger.Log(Event{}) // dropped, no panic
	if err := logger.Flush(); err != nil {
		t.Errorf("Flush after Close: %v", err)
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.plog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Log(Event{ConnectionID: "c", Frame: NewFrameEvent([]byte{byte(j)})})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("capture file empty: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if n := len(readAll(t, r)); n != 200 {
		t.Errorf("read %d events, want 200", n)
	}
}

func TestFilteredReader(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeCapture(t, []Event{
		{Timestamp: base, ConnectionID: "c1", Direction: DirectionIn, Layer: LayerWire, PVName: "A"},
		{Timestamp: base.Add(time.Second), ConnectionID: "c2", Direction: DirectionOut, Layer: LayerWire, PVName: "B"},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "c1", Direction: DirectionOut, Layer: LayerServer, Category: CategoryState},
	})

	out := DirectionOut
	wireLayer := LayerWire
	start := base.Add(500 * time.Millisecond)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"connection", Filter{ConnectionID: "c1"}, 2},
		{"direction", Filter{Direction: &out}, 2},
		{"layer", Filter{Layer: &wireLayer}, 2},
		{"pv", Filter{PVName: "B"}, 1},
		{"time start", Filter{TimeStart: &start}, 2},
		{"combined", Filter{ConnectionID: "c1", Direction: &out}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			if got := len(readAll(t, r)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestNewReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.plog")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFilterOperationAndPrefix(t *testing.T) {
	read, write := wire.OpRead, wire.OpWrite
	path := writeCapture(t, []Event{
		{PVName: "TEST:A", Message: &MessageEvent{Type: wire.MessageTypeRequest, MessageID: 1, Operation: &read}},
		{PVName: "TEST:B", Message: &MessageEvent{Type: wire.MessageTypeRequest, MessageID: 2, Operation: &write}},
		{PVName: "OTHER:C", Message: &MessageEvent{Type: wire.MessageTypeRequest, MessageID: 3, Operation: &write}},
		{PVName: "TEST:D", Layer: LayerTransport, Frame: &FrameEvent{Size: 4}},
	})

	tests := []struct {
		name   string
		filter Filter
		want   []uint32
	}{
		{"operation", Filter{Operation: &write}, []uint32{2, 3}},
		{"prefix", Filter{PVPrefix: "TEST:"}, []uint32{1, 2, 0}},
		{"both", Filter{PVPrefix: "TEST:", Operation: &write}, []uint32{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()

			var got []uint32
			for e, err := range r.Events() {
				if err != nil {
					t.Fatalf("Events: %v", err)
				}
				if e.Message == nil {
					got = append(got, 0)
					continue
				}
				got = append(got, e.Message.MessageID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestReaderTruncatedCapture(t *testing.T) {
	path := writeCapture(t, []Event{
		{ConnectionID: "c1", PVName: "A"},
		{ConnectionID: "c2", PVName: "B"},
	})
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, info.Size()-2); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	events := readAll(t, r)
	if len(events) != 1 || events[0].PVName != "A" {
		t.Errorf("events = %+v, want only the complete first record", events)
	}
	if !r.Truncated() {
		t.Error("Truncated() = false for a cut capture")
	}
}
