package timestamp

import (
	"fmt"
	"time"
)

// Epoch is the process-variable epoch, 1990-01-01T00:00:00Z.
var Epoch = time.Unix(EpochOffsetSeconds, 0).UTC()

// Timestamp is a Convention B instant: seconds past Epoch and nanoseconds
// within the second. Sec is negative before Epoch. The zero value is Epoch
// itself and is treated as "never set".
type Timestamp struct {
	Sec  int64  `cbor:"1,keyasint" json:"sec"`
	Nsec uint32 `cbor:"2,keyasint" json:"nsec"`
}

// FromTime converts t to a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp{Sec: t.Unix() - EpochOffsetSeconds, Nsec: uint32(t.Nanosecond())}
}

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp {
	return FromTime(time.Now())
}

// Millis returns the instant as Unix milliseconds.
func (ts Timestamp) Millis() int64 {
	return ToMillis(ts.Sec, int64(ts.Nsec))
}

// NanoRemainder returns the sub-millisecond part dropped by Millis.
func (ts Timestamp) NanoRemainder() int64 {
	return NanoRemainder(int64(ts.Nsec))
}

// Time returns the instant as a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Sec+EpochOffsetSeconds, int64(ts.Nsec)).UTC()
}

// IsZero reports whether ts is the zero Timestamp.
func (ts Timestamp) IsZero() bool {
	return ts.Sec == 0 && ts.Nsec == 0
}

// Compare returns -1, 0 or +1 depending on whether ts is before, equal to,
// or after other.
func (ts Timestamp) Compare(other Timestamp) int {
	switch {
	case ts.Sec < other.Sec:
		return -1
	case ts.Sec > other.Sec:
		return 1
	case ts.Nsec < other.Nsec:
		return -1
	case ts.Nsec > other.Nsec:
		return 1
	default:
		return 0
	}
}

// Before reports whether ts is strictly earlier than other.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts.Compare(other) < 0
}

// After reports whether ts is strictly later than other.
func (ts Timestamp) After(other Timestamp) bool {
	return ts.Compare(other) > 0
}

// String formats the instant as RFC 3339 with nanoseconds.
func (ts Timestamp) String() string {
	return fmt.Sprintf("%s (%d.%09d)", ts.Time().Format(time.RFC3339Nano), ts.Sec, ts.Nsec)
}
