package wire

// Status is a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusNotFound indicates no process variable has the requested name,
	// or the subscription ID is unknown.
	StatusNotFound Status = 1

	// StatusInvalidValue indicates a write payload of the wrong type or shape.
	StatusInvalidValue Status = 2

	// StatusInvalidRequest indicates a malformed request.
	StatusInvalidRequest Status = 3

	// StatusUnsupported indicates an unknown operation.
	StatusUnsupported Status = 4

	// StatusInternal indicates a server-side failure.
	StatusInternal Status = 5

	// StatusBusy indicates the server is shutting down or overloaded.
	StatusBusy Status = 6
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusInvalidValue:
		return "INVALID_VALUE"
	case StatusInvalidRequest:
		return "INVALID_REQUEST"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusInternal:
		return "INTERNAL"
	case StatusBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
