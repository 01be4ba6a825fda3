package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/wire"
)

// ParseLayerFlag parses a layer name (transport, wire, server).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "server":
		return log.LayerServer, nil
	default:
		return 0, fmt.Errorf("unknown layer %q (transport, wire, server)", s)
	}
}

// ParseDirectionFlag parses a direction (in, out).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (in, out)", s)
	}
}

// ParseOperationFlag parses an operation name such as "write".
func ParseOperationFlag(s string) (wire.Operation, error) {
	for op := wire.OpSearch; op <= wire.OpUnsubscribe; op++ {
		if strings.EqualFold(op.String(), s) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q (search, read, write, subscribe, unsubscribe)", s)
}

// RunLog prints the events of a protocol capture file that match filter.
func RunLog(path string, filter log.Filter, w io.Writer) error {
	r, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	count := 0
	for event, err := range r.Events() {
		if err != nil {
			return fmt.Errorf("event %d: %w", count+1, err)
		}
		formatEvent(w, event)
		count++
	}
	fmt.Fprintf(w, "%d events\n", count)
	if r.Truncated() {
		fmt.Fprintln(w, "capture ends in a partial record")
	}
	return nil
}

func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	label := "Unknown"
	switch {
	case event.Frame != nil:
		label = "Frame"
	case event.Message != nil:
		label = event.Message.Type.String()
	case event.StateChange != nil:
		label = "State"
	case event.Error != nil:
		label = "Error"
	}
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s", ts, shortenConnID(event.ConnectionID),
		event.Direction, event.Layer, label)
	if event.PVName != "" {
		fmt.Fprintf(w, " pv=%s", event.PVName)
	}
	fmt.Fprintln(w)

	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  size=%d", event.Frame.Size)
		if event.Frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintf(w, "\n  %s\n", hex.EncodeToString(event.Frame.Data))
	case event.Message != nil:
		m := event.Message
		fmt.Fprintf(w, "  id=%d", m.MessageID)
		if m.Operation != nil {
			fmt.Fprintf(w, " op=%s", *m.Operation)
		}
		if m.Status != nil {
			fmt.Fprintf(w, " status=%s", *m.Status)
		}
		if m.SubscriptionID != nil {
			fmt.Fprintf(w, " sub=%d", *m.SubscriptionID)
		}
		if m.ProcessingTime != nil {
			fmt.Fprintf(w, " took=%s", *m.ProcessingTime)
		}
		if m.Payload != nil {
			fmt.Fprintf(w, " value=%s", FormatValue(m.Payload))
		}
		fmt.Fprintln(w)
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  %s %s -> %s", sc.Entity, sc.OldState, sc.NewState)
		if sc.Reason != "" {
			fmt.Fprintf(w, " (%s)", sc.Reason)
		}
		fmt.Fprintln(w)
	case event.Error != nil:
		fmt.Fprintf(w, "  %s: %s\n", event.Error.Context, event.Error.Message)
	}
}

func shortenConnID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
