// Package pv implements process variables: named, typed values served to
// remote clients together with an alarm status, an alarm severity and a
// timestamp.
//
// A process variable is a Variable[T] parameterised by a Codec[T] that
// converts between the Go value and the untyped payloads carried on the
// wire. All variants share the same state machine:
//
//   - Read refreshes the timestamp and clears the alarm, then returns a
//     consistent snapshot.
//   - Write and SetValue replace the value atomically and, when at least
//     one subscriber is interested, post a monitor event to the attached
//     EventSink before the lock is released. Subscribers therefore see
//     events in commit order.
//   - Subscribe and Unsubscribe maintain a subscriber count. The variable
//     is Idle with no subscribers and Monitored otherwise. Subscribing does
//     not replay the current value.
//
// Concrete constructors exist for the common shapes:
//
//	temp := pv.NewString("TEMP", "20.0")
//	setpoint := pv.NewDouble("SP", 1.5)
//	counter := pv.NewLong("COUNT", 0)
//	wave := pv.NewDoubleArray("WAVE", make([]float64, 16))
//
// Engines drive variables through the type-erased ProcessVariable
// interface and receive events through EventSink.
package pv
