package pv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/softioc/softioc-go/pkg/timestamp"
)

// ErrInvalidValue is returned when a write payload cannot be decoded into
// the variable's value type. The variable is left unchanged.
var ErrInvalidValue = errors.New("invalid value")

// ProcessVariable is the type-erased handle engines use to serve a variable.
type ProcessVariable interface {
	Name() string
	Type() Type
	Count() int

	// Read refreshes the timestamp, clears the alarm and returns the
	// resulting snapshot.
	Read(ctx context.Context) (Reading, error)

	// Write decodes payload and commits it as a network write.
	Write(ctx context.Context, payload any) error

	// Put decodes payload and commits it as an owner update.
	Put(payload any) error

	// Peek returns the current snapshot without refreshing it.
	Peek() Reading

	Subscribe()
	Unsubscribe()
	Interested() bool

	// Attach sets the sink that receives monitor events. A nil sink
	// discards events.
	Attach(sink EventSink)
}

// InterestState is Idle without subscribers and Monitored otherwise.
type InterestState uint8

const (
	Idle InterestState = iota
	Monitored
)

// String returns the state name.
func (s InterestState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Monitored:
		return "MONITORED"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is the value, alarm and timestamp of a variable at one instant.
type Snapshot[T any] struct {
	Value     T
	Status    Status
	Severity  Severity
	Timestamp timestamp.Timestamp
}

// Option configures a Variable.
type Option func(*options)

type options struct {
	clock       timestamp.Clock
	logger      *slog.Logger
	sink        EventSink
	description string
}

// WithClock sets the clock used for timestamps.
func WithClock(c timestamp.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventSink attaches an event sink at construction.
func WithEventSink(s EventSink) Option {
	return func(o *options) { o.sink = s }
}

// WithDescription sets a human readable description.
func WithDescription(d string) Option {
	return func(o *options) { o.description = d }
}

// Variable is a process variable holding a value of type T.
// It is safe for concurrent use.
type Variable[T any] struct {
	name        string
	codec       Codec[T]
	clock       timestamp.Clock
	logger      *slog.Logger
	description string

	mu          sync.Mutex
	snap        Snapshot[T]
	subscribers int
	sink        EventSink
}

// New creates a variable named name using codec, starting at initial.
func New[T any](name string, codec Codec[T], initial T, opts ...Option) *Variable[T] {
	o := options{clock: timestamp.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.sink == nil {
		o.sink = noopSink{}
	}

	return &Variable[T]{
		name:        name,
		codec:       codec,
		clock:       o.clock,
		logger:      o.logger.With("pv", name),
		description: o.description,
		sink:        o.sink,
		snap: Snapshot[T]{
			Value:     codec.Clone(initial),
			Status:    StatusNoAlarm,
			Severity:  SeverityNoAlarm,
			Timestamp: timestamp.FromTime(o.clock.Now()),
		},
	}
}

// NewString creates a string variable.
func NewString(name, initial string, opts ...Option) *Variable[string] {
	return New[string](name, StringCodec{}, initial, opts...)
}

// NewDouble creates a float64 variable.
func NewDouble(name string, initial float64, opts ...Option) *Variable[float64] {
	return New[float64](name, DoubleCodec{}, initial, opts...)
}

// NewLong creates a 32-bit integer variable.
func NewLong(name string, initial int32, opts ...Option) *Variable[int32] {
	return New[int32](name, LongCodec{}, initial, opts...)
}

// NewDoubleArray creates a float64 array variable whose element count is
// fixed to len(initial).
func NewDoubleArray(name string, initial []float64, opts ...Option) *Variable[[]float64] {
	return New[[]float64](name, DoubleArrayCodec{MaxCount: len(initial)}, initial, opts...)
}

// Name returns the variable name.
func (v *Variable[T]) Name() string { return v.name }

// Type returns the value type.
func (v *Variable[T]) Type() Type { return v.codec.Type() }

// Count returns the declared element count.
func (v *Variable[T]) Count() int { return v.codec.Count() }

// Description returns the description set at construction.
func (v *Variable[T]) Description() string { return v.description }

// Read stamps the snapshot with the current time, clears the alarm and
// returns it. It fails only if ctx is already done.
func (v *Variable[T]) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.snap.Status = StatusNoAlarm
	v.snap.Severity = SeverityNoAlarm
	v.snap.Timestamp = v.now()
	return v.readingLocked(), nil
}

// Write decodes payload and commits it. A payload of the wrong type or
// shape returns an error wrapping ErrInvalidValue.
func (v *Variable[T]) Write(ctx context.Context, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := v.codec.Decode(payload)
	if err != nil {
		v.logger.Debug("rejected write", "error", err)
		return fmt.Errorf("%w: %s: %w", ErrInvalidValue, v.name, err)
	}
	v.commit(val)
	return nil
}

// Put decodes payload and commits it as an owner update.
func (v *Variable[T]) Put(payload any) error {
	val, err := v.codec.Decode(payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidValue, v.name, err)
	}
	v.commit(val)
	return nil
}

// SetValue commits val as an owner update, posting a monitor event when
// the variable is monitored.
func (v *Variable[T]) SetValue(val T) {
	v.commit(v.codec.Clone(val))
}

// Value returns a copy of the current value.
func (v *Variable[T]) Value() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.codec.Clone(v.snap.Value)
}

// Snapshot returns a copy of the current snapshot without refreshing it.
func (v *Variable[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.snap
	s.Value = v.codec.Clone(s.Value)
	return s
}

// Peek returns the current reading without refreshing it.
func (v *Variable[T]) Peek() Reading {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readingLocked()
}

// Subscribe registers one more interested subscriber.
func (v *Variable[T]) Subscribe() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.subscribers++
	if v.subscribers == 1 {
		v.logger.Debug("interest changed", "from", Idle, "to", Monitored)
	}
}

// Unsubscribe removes one interested subscriber. It is a no-op when there
// are none.
func (v *Variable[T]) Unsubscribe() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.subscribers == 0 {
		return
	}
	v.subscribers--
	if v.subscribers == 0 {
		v.logger.Debug("interest changed", "from", Monitored, "to", Idle)
	}
}

// Interested reports whether at least one subscriber is registered.
func (v *Variable[T]) Interested() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.subscribers > 0
}

// Subscribers returns the current subscriber count.
func (v *Variable[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.subscribers
}

// State returns the interest state.
func (v *Variable[T]) State() InterestState {
	if v.Interested() {
		return Monitored
	}
	return Idle
}

// Attach replaces the event sink. A nil sink discards events.
func (v *Variable[T]) Attach(sink EventSink) {
	if sink == nil {
		sink = noopSink{}
	}
	v.mu.Lock()
	v.sink = sink
	v.mu.Unlock()
}

// commit replaces the snapshot and, if monitored, posts the event before
// releasing the lock so that event order matches commit order.
func (v *Variable[T]) commit(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.snap = Snapshot[T]{
		Value:     val,
		Status:    StatusNoAlarm,
		Severity:  SeverityNoAlarm,
		Timestamp: v.now(),
	}
	if v.subscribers > 0 {
		v.sink.PostEvent(v.name, EventValue|EventLog, v.readingLocked())
	}
}

func (v *Variable[T]) now() timestamp.Timestamp {
	return timestamp.FromTime(v.clock.Now())
}

func (v *Variable[T]) readingLocked() Reading {
	return Reading{
		Value:     v.codec.Encode(v.snap.Value),
		Type:      v.codec.Type(),
		Count:     v.codec.Count(),
		Status:    v.snap.Status,
		Severity:  v.snap.Severity,
		Timestamp: v.snap.Timestamp,
	}
}

var (
	_ ProcessVariable = (*Variable[string])(nil)
	_ ProcessVariable = (*Variable[float64])(nil)
	_ ProcessVariable = (*Variable[int32])(nil)
	_ ProcessVariable = (*Variable[[]float64])(nil)
)
