package syncer

// State is the lifecycle phase of one device's sync loop.
type State int

const (
	// StateIdle means no sync loop exists for the device.
	StateIdle State = iota
	// StateActivating means the telemetry clock is being selected,
	// possibly retrying.
	StateActivating
	// StateActive means the push loop is running.
	StateActive
	// StateFailed means activation exhausted its attempts.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the externally visible sync state of one device.
type Status struct {
	State State
	// Attempt is the 1-based activation attempt, only meaningful while
	// State is StateActivating.
	Attempt int
}
