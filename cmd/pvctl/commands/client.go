// Package commands implements the pvctl CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/softioc/softioc-go/pkg/client"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/wire"
)

// PVClient is the part of *client.Client the commands use.
type PVClient interface {
	Search(ctx context.Context, name string) (*wire.Info, error)
	Read(ctx context.Context, name string) (pv.Reading, error)
	Write(ctx context.Context, name string, value any) error
	Subscribe(ctx context.Context, name string, mask pv.EventMask) (*client.Subscription, error)
}

var _ PVClient = (*client.Client)(nil)

// FormatReading writes one line: name, timestamp, value, status, severity.
func FormatReading(w io.Writer, name string, r pv.Reading) {
	ts := r.Timestamp.Time().Local().Format("2006-01-02 15:04:05.000000")
	fmt.Fprintf(w, "%-24s %s %s", name, ts, FormatValue(r.Value))
	if r.Severity != pv.SeverityNoAlarm {
		fmt.Fprintf(w, " %s %s", r.Status, r.Severity)
	}
	fmt.Fprintln(w)
}

// FormatValue renders a decoded value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return fmt.Sprintf("%d %s", len(x), strings.Join(parts, " "))
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = FormatValue(e)
		}
		return fmt.Sprintf("%d %s", len(x), strings.Join(parts, " "))
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return strconv.Quote(x)
	default:
		return fmt.Sprint(v)
	}
}

// ParseValue converts command line text to the payload for typ. Arrays
// are comma or space separated.
func ParseValue(typ pv.Type, s string) (any, error) {
	switch typ {
	case pv.TypeString:
		return s, nil
	case pv.TypeDouble:
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	case pv.TypeLong:
		return strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	case pv.TypeDoubleArray:
		fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
		out := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", typ)
	}
}

// RunGet reads each name and prints it.
func RunGet(ctx context.Context, c PVClient, names []string, w io.Writer) error {
	for _, name := range names {
		r, err := c.Read(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		FormatReading(w, name, r)
	}
	return nil
}

// RunPut looks up the type of name, writes value and prints the result.
func RunPut(ctx context.Context, c PVClient, name, value string, w io.Writer) error {
	info, err := c.Search(ctx, name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	payload, err := ParseValue(info.Type, value)
	if err != nil {
		return fmt.Errorf("%s: invalid %s value: %w", name, info.Type, err)
	}
	if err := c.Write(ctx, name, payload); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return RunGet(ctx, c, []string{name}, w)
}

// RunInfo prints type, count and description.
func RunInfo(ctx context.Context, c PVClient, names []string, w io.Writer) error {
	for _, name := range names {
		info, err := c.Search(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(w, "%s\n", name)
		fmt.Fprintf(w, "  Type:        %s\n", info.Type)
		fmt.Fprintf(w, "  Count:       %d\n", info.Count)
		if info.Description != "" {
			fmt.Fprintf(w, "  Description: %s\n", info.Description)
		}
	}
	return nil
}

// ParseMask parses a mask such as "value,alarm". Empty means value|alarm.
func ParseMask(s string) (pv.EventMask, error) {
	if s == "" {
		return pv.EventValue | pv.EventAlarm, nil
	}
	var m pv.EventMask
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "value", "v":
			m |= pv.EventValue
		case "log", "l":
			m |= pv.EventLog
		case "alarm", "a":
			m |= pv.EventAlarm
		default:
			return 0, fmt.Errorf("unknown event kind %q", part)
		}
	}
	return m, nil
}

// RunMonitor subscribes to every name and prints events until ctx is done
// or, when count is positive, count events have been printed.
func RunMonitor(ctx context.Context, c PVClient, names []string, mask pv.EventMask, count int, w io.Writer) error {
	events := make(chan wire.Event)
	stop := make(chan struct{})
	defer close(stop)
	subs := make([]*client.Subscription, 0, len(names))
	defer func() {
		cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		for _, s := range subs {
			s.Cancel(cancelCtx)
		}
	}()

	for _, name := range names {
		r, err := c.Read(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		sub, err := c.Subscribe(ctx, name, mask)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		subs = append(subs, sub)
		FormatReading(w, name, r)
		go func() {
			for ev := range sub.Events() {
				select {
				case events <- ev:
				case <-stop:
					return
				}
			}
		}()
	}

	for seen := 0; count <= 0 || seen < count; seen++ {
		select {
		case ev := <-events:
			FormatReading(w, ev.Name, ev.Reading)
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
