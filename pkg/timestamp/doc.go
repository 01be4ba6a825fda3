// Package timestamp converts between the two time conventions used by
// softioc.
//
// # Conventions
//
// Convention A counts whole milliseconds since the Unix epoch
// (1970-01-01T00:00:00Z). It is what most host code and storage use.
//
// Convention B is the protocol-native form: whole seconds since the
// process-variable epoch (1990-01-01T00:00:00Z) plus a nanosecond
// remainder within that second.
//
// The two reference instants are 7305 days apart:
//
//	EpochOffsetSeconds = 7305 * 86400 = 631152000
//
// # Carrying sub-millisecond precision
//
// Convention A cannot hold nanoseconds. Callers that need the full instant
// carry the sub-millisecond part next to the millisecond value:
//
//	millis := timestamp.ToMillis(sec, nsec)
//	rem := timestamp.NanoRemainder(nsec)
//	// ... store millis and rem ...
//	ts := timestamp.FromMillis(millis, rem) // identical to (sec, nsec)
package timestamp
