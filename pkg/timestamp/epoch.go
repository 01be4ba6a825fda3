package timestamp

// Epoch constants.
const (
	// EpochOffsetDays is the number of days from 1970-01-01 to 1990-01-01.
	EpochOffsetDays = 7305

	// EpochOffsetSeconds is the number of seconds from 1970-01-01 to 1990-01-01.
	EpochOffsetSeconds int64 = EpochOffsetDays * 86400

	// NanosPerMilli is the number of nanoseconds in a millisecond.
	NanosPerMilli int64 = 1_000_000

	// MillisPerSecond is the number of milliseconds in a second.
	MillisPerSecond int64 = 1000

	// NanosPerSecond is the number of nanoseconds in a second.
	NanosPerSecond int64 = 1_000_000_000
)

// ToMillis converts a Convention B instant (seconds past 1990, nanoseconds
// within the second) to Unix milliseconds. Sub-millisecond precision is
// truncated; use NanoRemainder to keep it.
func ToMillis(sec, nsec int64) int64 {
	return (sec+EpochOffsetSeconds)*MillisPerSecond + nsec/NanosPerMilli
}

// NanoRemainder returns the sub-millisecond part of nsec that ToMillis drops.
func NanoRemainder(nsec int64) int64 {
	return nsec % NanosPerMilli
}

// SecondsFromMillis converts Unix milliseconds to whole seconds past 1990.
func SecondsFromMillis(millis int64) int64 {
	return millis/MillisPerSecond - EpochOffsetSeconds
}

// NanosFromMillis rebuilds the nanoseconds within the second from the
// millisecond part of millis plus an externally carried remainder.
func NanosFromMillis(millis, remainder int64) int64 {
	return (millis%MillisPerSecond)*NanosPerMilli + remainder
}

// FromMillis assembles a Convention B timestamp from Unix milliseconds and
// a nanosecond remainder in [0, 999999]. Instants before 1990 have a
// negative Sec, so ToMillis inverts FromMillis for every millis >= 0.
func FromMillis(millis, remainder int64) Timestamp {
	return Timestamp{
		Sec:  SecondsFromMillis(millis),
		Nsec: uint32(NanosFromMillis(millis, remainder)),
	}
}
