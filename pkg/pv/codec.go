package pv

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxStringLength is the largest string value a StringCodec accepts, in
// bytes. It matches the width of an EPICS DBR_STRING.
const MaxStringLength = 40

// Codec converts between a Go value and the untyped payloads used on the
// wire, in autosave files and in database files.
type Codec[T any] interface {
	// Type returns the value type served to clients.
	Type() Type

	// Count returns the declared element count (1 for scalars).
	Count() int

	// Decode converts an untyped payload to T. It returns an error for
	// payloads of the wrong type or shape.
	Decode(payload any) (T, error)

	// Encode converts v to its untyped payload. The result must not alias v.
	Encode(v T) any

	// Clone returns a copy of v that shares no mutable memory with it.
	Clone(v T) T
}

// Codec errors.
var (
	ErrWrongType  = errors.New("wrong payload type")
	ErrOutOfRange = errors.New("value out of range")
	ErrTooLong    = errors.New("value too long")
)

// StringCodec handles string process variables.
type StringCodec struct{}

func (StringCodec) Type() Type { return TypeString }
func (StringCodec) Count() int { return 1 }

func (StringCodec) Decode(payload any) (string, error) {
	var s string
	switch v := payload.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return "", fmt.Errorf("%w: expected string, got %T", ErrWrongType, payload)
	}
	if len(s) > MaxStringLength {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLong, len(s), MaxStringLength)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrWrongType)
	}
	return s, nil
}

func (StringCodec) Encode(v string) any  { return v }
func (StringCodec) Clone(v string) string { return v }

// DoubleCodec handles float64 process variables.
type DoubleCodec struct{}

func (DoubleCodec) Type() Type { return TypeDouble }
func (DoubleCodec) Count() int { return 1 }

func (DoubleCodec) Decode(payload any) (float64, error) {
	f, ok := toFloat64(payload)
	if !ok {
		return 0, fmt.Errorf("%w: expected number, got %T", ErrWrongType, payload)
	}
	return f, nil
}

func (DoubleCodec) Encode(v float64) any    { return v }
func (DoubleCodec) Clone(v float64) float64 { return v }

// LongCodec handles 32-bit integer process variables.
type LongCodec struct{}

func (LongCodec) Type() Type { return TypeLong }
func (LongCodec) Count() int { return 1 }

func (LongCodec) Decode(payload any) (int32, error) {
	var n int64
	switch v := payload.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		return v, nil
	case int64:
		n = v
	case uint:
		if uint64(v) > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
		}
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
		}
		n = int64(v)
	case float32, float64:
		// JSON and YAML decoders produce floats for whole numbers.
		f, _ := toFloat64(v)
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrWrongType, f)
		}
		if f < math.MinInt32 || f > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %v", ErrOutOfRange, f)
		}
		return int32(f), nil
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrWrongType, payload)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	return int32(n), nil
}

func (LongCodec) Encode(v int32) any  { return int64(v) }
func (LongCodec) Clone(v int32) int32 { return v }

// DoubleArrayCodec handles float64 array process variables. MaxCount bounds
// the number of elements; zero means unbounded.
type DoubleArrayCodec struct {
	MaxCount int
}

func (DoubleArrayCodec) Type() Type { return TypeDoubleArray }

func (c DoubleArrayCodec) Count() int {
	if c.MaxCount <= 0 {
		return 1
	}
	return c.MaxCount
}

func (c DoubleArrayCodec) Decode(payload any) ([]float64, error) {
	var out []float64
	switch v := payload.(type) {
	case []float64:
		out = make([]float64, len(v))
		copy(out, v)
	case []float32:
		out = make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
	case []int:
		out = make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
	case []any:
		out = make([]float64, len(v))
		for i, e := range v {
			f, ok := toFloat64(e)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", ErrWrongType, i, e)
			}
			out[i] = f
		}
	default:
		return nil, fmt.Errorf("%w: expected array of numbers, got %T", ErrWrongType, payload)
	}
	if c.MaxCount > 0 && len(out) > c.MaxCount {
		return nil, fmt.Errorf("%w: %d elements exceeds %d", ErrTooLong, len(out), c.MaxCount)
	}
	return out, nil
}

func (c DoubleArrayCodec) Encode(v []float64) any { return c.Clone(v) }

func (DoubleArrayCodec) Clone(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

var (
	_ Codec[string]    = StringCodec{}
	_ Codec[float64]   = DoubleCodec{}
	_ Codec[int32]     = LongCodec{}
	_ Codec[[]float64] = DoubleArrayCodec{}
)
