package wire

// Operation is a request operation.
type Operation uint8

const (
	// OpSearch resolves a name to its type and element count.
	OpSearch Operation = 1

	// OpRead returns the current reading, refreshing its timestamp.
	OpRead Operation = 2

	// OpWrite replaces the value.
	OpWrite Operation = 3

	// OpSubscribe registers a monitor. Events follow with message ID 0.
	OpSubscribe Operation = 4

	// OpUnsubscribe cancels a monitor by subscription ID.
	OpUnsubscribe Operation = 5
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpSearch:
		return "Search"
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	case OpSubscribe:
		return "Subscribe"
	case OpUnsubscribe:
		return "Unsubscribe"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is known.
func (o Operation) IsValid() bool {
	return o >= OpSearch && o <= OpUnsubscribe
}

// NeedsName reports whether requests with this operation must carry a
// process variable name.
func (o Operation) NeedsName() bool {
	return o != OpUnsubscribe
}
