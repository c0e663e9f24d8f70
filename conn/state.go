package conn

import "time"

// State is the connection lifecycle state.
type State int

const (
	// Disconnected means no source is held. The initial state.
	Disconnected State = iota

	// Connecting means a connection attempt is in flight.
	Connecting

	// Connected means the source is delivering bytes and decoded messages
	// flow to subscribers.
	Connected

	// Error means the last attempt failed or the transport faulted. Only
	// an explicit Connect leaves this state.
	Error

	// Paused means the source stays open and draining, but decoded
	// messages are discarded instead of published.
	Paused
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Status is a point-in-time connection snapshot. Every state transition
// publishes exactly one Status on the status feed.
type Status struct {
	State       State
	Message     string
	Timestamp   time.Time
	ErrorDetail string
}
