package engine

// State is the engine lifecycle state. Transitions:
//
//	IDLE -> PROCESSING -> COMPLETED | ERROR
//	PROCESSING <-> PAUSED
//
// A new run may start from IDLE, COMPLETED or ERROR; never from PROCESSING
// or PAUSED.
type State int

const (
	StateIdle State = iota
	StateProcessing
	StatePaused
	StateCompleted
	StateError
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateProcessing:
		return "PROCESSING"
	case StatePaused:
		return "PAUSED"
	case StateCompleted:
		return "COMPLETED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// canStartRun reports whether a new run may begin from this state
func (s State) canStartRun() bool {
	return s == StateIdle || s == StateCompleted || s == StateError
}

// isRunning reports whether a run is in flight (processing or paused)
func (s State) isRunning() bool {
	return s == StateProcessing || s == StatePaused
}
