package log

import (
	"context"
	"log/slog"
)

// SlogAdapter forwards protocol events to a *slog.Logger as one "protocol"
// record per event.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter logs events to logger at debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return NewSlogAdapterLevel(logger, slog.LevelDebug)
}

// NewSlogAdapterLevel logs events to logger at level. Error events are
// always logged at warn level or above.
func NewSlogAdapterLevel(logger *slog.Logger, level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: level}
}

// Log implements Logger.
func (a *SlogAdapter) Log(event Event) {
	level := a.level
	if event.Error != nil && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 12)
	attrs = append(attrs,
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	)
	attrs = appendNonEmpty(attrs, "conn_id", event.ConnectionID)
	attrs = appendNonEmpty(attrs, "remote", event.RemoteAddr)
	attrs = appendNonEmpty(attrs, "pv", event.PVName)

	switch {
	case event.Frame != nil:
		attrs = append(attrs, slog.Int("frame_size", event.Frame.Size), slog.Bool("truncated", event.Frame.Truncated))
	case event.Message != nil:
		attrs = messageAttrs(attrs, event.Message)
	case event.StateChange != nil:
		sc := event.StateChange
		attrs = append(attrs,
			slog.String("entity", sc.Entity.String()),
			slog.String("old_state", sc.OldState),
			slog.String("new_state", sc.NewState),
		)
		attrs = appendNonEmpty(attrs, "reason", sc.Reason)
	case event.Error != nil:
		attrs = append(attrs, slog.String("error_layer", event.Error.Layer.String()), slog.String("error_msg", event.Error.Message))
		attrs = appendNonEmpty(attrs, "error_context", event.Error.Context)
	}

	a.logger.LogAttrs(ctx, level, "protocol", attrs...)
}

func messageAttrs(attrs []slog.Attr, m *MessageEvent) []slog.Attr {
	attrs = append(attrs, slog.Uint64("msg_id", uint64(m.MessageID)), slog.String("msg_type", m.Type.String()))
	if m.Operation != nil {
		attrs = append(attrs, slog.String("operation", m.Operation.String()))
	}
	if m.Status != nil {
		attrs = append(attrs, slog.String("status", m.Status.String()))
	}
	if m.SubscriptionID != nil {
		attrs = append(attrs, slog.Uint64("sub_id", uint64(*m.SubscriptionID)))
	}
	if m.ProcessingTime != nil {
		attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
	}
	if m.Payload != nil {
		attrs = append(attrs, slog.Any("value", m.Payload))
	}
	return attrs
}

func appendNonEmpty(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

var _ Logger = (*SlogAdapter)(nil)
