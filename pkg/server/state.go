package server

// State is the server lifecycle state.
type State uint8

const (
	// StateIdle - constructed, not started. Configuration is mutable.
	StateIdle State = iota

	// StateStarting - binding the engine.
	StateStarting

	// StateRunning - bound and serving.
	StateRunning

	// StateStopping - Stop in progress.
	StateStopping

	// StateStopped - stopped. Terminal.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}
