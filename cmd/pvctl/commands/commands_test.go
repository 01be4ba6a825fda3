package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/softioc/softioc-go/pkg/client"
	"github.com/softioc/softioc-go/pkg/engine"
	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/wire"
)

type testIOC struct {
	temp *pv.Variable[float64]
	wave *pv.Variable[[]float64]
	c    *client.Client
	eng  *engine.Context
}

func startIOC(t *testing.T) testIOC {
	t.Helper()
	temp := pv.NewDouble("TEMP", 21.5, pv.WithDescription("Room temperature"))
	wave := pv.NewDoubleArray("WAVE", make([]float64, 3))

	e := engine.New()
	for _, v := range []pv.ProcessVariable{temp, wave, pv.NewLong("COUNT", 3)} {
		if err := e.RegisterVariable(v); err != nil {
			t.Fatal(err)
		}
	}
	ctx, err := e.Bind(context.Background(), map[string]string{
		engine.KeyServerAddr:         "127.0.0.1",
		engine.KeyServerPort:         "0",
		engine.KeyAutoBeaconAddrList: "NO",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ctx.Destroy() })

	c, err := client.Dial(context.Background(), ctx.Addr().String(), client.Config{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return testIOC{temp: temp, wave: wave, c: c, eng: ctx}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		typ     pv.Type
		in      string
		want    string
		wantErr bool
	}{
		{pv.TypeString, "hello world", "hello world", false},
		{pv.TypeDouble, " 2.5 ", "2.5", false},
		{pv.TypeDouble, "warm", "", true},
		{pv.TypeLong, "0x10", "16", false},
		{pv.TypeLong, "1.5", "", true},
		{pv.TypeDoubleArray, "1, 2 3", "[1 2 3]", false},
		{pv.TypeDoubleArray, "1,x", "", true},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.typ, tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseValue(%s, %q) = %v, want error", tt.typ, tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseValue(%s, %q): %v", tt.typ, tt.in, err)
			continue
		}
		if s := strings.TrimSpace(fmtAny(got)); s != tt.want {
			t.Errorf("ParseValue(%s, %q) = %s, want %s", tt.typ, tt.in, s, tt.want)
		}
	}
}

func fmtAny(v any) string {
	var b bytes.Buffer
	switch x := v.(type) {
	case []float64:
		b.WriteString("[")
		for i, f := range x {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(FormatValue(f))
		}
		b.WriteString("]")
	case string:
		b.WriteString(x)
	default:
		b.WriteString(FormatValue(v))
	}
	return b.String()
}

func TestParseMask(t *testing.T) {
	m, err := ParseMask("value,log")
	if err != nil || m != pv.EventValue|pv.EventLog {
		t.Errorf("ParseMask = %v, %v", m, err)
	}
	if m, _ := ParseMask(""); m != pv.EventValue|pv.EventAlarm {
		t.Errorf("default mask = %v", m)
	}
	if _, err := ParseMask("value,bogus"); err == nil {
		t.Error("expected error")
	}
}

func TestParseOperationFlag(t *testing.T) {
	op, err := ParseOperationFlag("WRITE")
	if err != nil || op != wire.OpWrite {
		t.Errorf("ParseOperationFlag(WRITE) = %v, %v", op, err)
	}
	if _, err := ParseOperationFlag("delete"); err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestGetPutInfo(t *testing.T) {
	ioc := startIOC(t)
	ctx := context.Background()
	var out bytes.Buffer

	if err := RunGet(ctx, ioc.c, []string{"TEMP"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "TEMP") || !strings.Contains(out.String(), "21.5") {
		t.Errorf("get output = %q", out.String())
	}

	out.Reset()
	if err := RunPut(ctx, ioc.c, "WAVE", "1,2,3", &out); err != nil {
		t.Fatal(err)
	}
	if got := ioc.wave.Value(); got[0] != 1 || got[2] != 3 {
		t.Errorf("WAVE = %v", got)
	}
	if !strings.Contains(out.String(), "3 1 2 3") {
		t.Errorf("put output = %q", out.String())
	}

	if err := RunPut(ctx, ioc.c, "TEMP", "warm", &out); err == nil {
		t.Error("put of a non-number succeeded")
	}

	out.Reset()
	if err := RunInfo(ctx, ioc.c, []string{"TEMP"}, &out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"double", "Room temperature"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("info output %q missing %q", out.String(), want)
		}
	}

	if err := RunGet(ctx, ioc.c, []string{"NOPE"}, &out); err == nil {
		t.Error("get of unknown PV succeeded")
	}
}

func TestMonitor(t *testing.T) {
	ioc := startIOC(t)
	var out bytes.Buffer
	done := make(chan error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go func() { done <- RunMonitor(ctx, ioc.c, []string{"TEMP"}, pv.EventValue, 2, &out) }()

	deadline := time.Now().Add(2 * time.Second)
	for ioc.eng.SubscriptionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	ioc.temp.SetValue(30)
	ioc.temp.SetValue(31)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want initial + 2 events:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[1], " 30") || !strings.Contains(lines[2], " 31") {
		t.Errorf("events out of order:\n%s", out.String())
	}
}

func TestShellExecute(t *testing.T) {
	ioc := startIOC(t)
	sh := NewShell(ioc.c, 2*time.Second)
	ctx := context.Background()
	var out bytes.Buffer

	if quit, err := sh.Execute(ctx, "put TEMP 19", &out); quit || err != nil {
		t.Fatalf("put: quit=%v err=%v", quit, err)
	}
	if ioc.temp.Value() != 19 {
		t.Errorf("TEMP = %v", ioc.temp.Value())
	}
	if _, err := sh.Execute(ctx, "frobnicate", &out); err == nil {
		t.Error("unknown command accepted")
	}
	if _, err := sh.Execute(ctx, "get", &out); err == nil {
		t.Error("get without args accepted")
	}
	if quit, _ := sh.Execute(ctx, "exit", &out); !quit {
		t.Error("exit did not quit")
	}
}

func TestRunLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.plog")
	fl, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	op := wire.OpRead
	status := wire.StatusSuccess
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fl.Log(log.Event{Timestamp: ts, ConnectionID: "0123456789", Direction: log.DirectionIn, Layer: log.LayerWire,
		PVName: "TEMP", Message: &log.MessageEvent{Type: wire.MessageTypeRequest, MessageID: 7, Operation: &op}})
	fl.Log(log.Event{Timestamp: ts, ConnectionID: "0123456789", Direction: log.DirectionOut, Layer: log.LayerWire,
		PVName: "TEMP", Message: &log.MessageEvent{Type: wire.MessageTypeResponse, MessageID: 7, Status: &status, Payload: 21.5}})
	fl.Log(log.Event{Timestamp: ts, Direction: log.DirectionOut, Layer: log.LayerServer, Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{Entity: log.StateEntityServer, OldState: "IDLE", NewState: "RUNNING"}})
	if err := fl.Close(); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := RunLog(path, log.Filter{}, &out); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"[conn:01234567]", "id=7", "value=21.5", "SERVER IDLE -> RUNNING", "3 events"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	in := log.DirectionIn
	out.Reset()
	if err := RunLog(path, log.Filter{Direction: &in}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "1 events") {
		t.Errorf("filtered output:\n%s", out.String())
	}

	out.Reset()
	if err := RunLog(path, log.Filter{Operation: &op}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "1 events") || !strings.Contains(out.String(), "op=Read") {
		t.Errorf("operation filtered output:\n%s", out.String())
	}
}
