package notifier

import "time"

// State is the delivery state of a single event.
type State int

const (
	StatePending State = iota
	StateAttempting
	StateDelivered
	StateAbandoned
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateAttempting:
		return "Attempting"
	case StateDelivered:
		return "Delivered"
	case StateAbandoned:
		return "Abandoned"
	default:
		return "Unknown"
	}
}

// Transition is reported to an Observer each time an event changes state.
type Transition struct {
	EventID string
	State   State

	// Failures is the number of failed attempts so far. For StateAttempting
	// it is the n in Attempting(n).
	Failures int

	// Delay is the wait before the next attempt. Set for StateAttempting only.
	Delay time.Duration

	// Err is the last attempt error for StateAttempting and StateAbandoned.
	Err error
}

// Observer receives every state transition. It is called synchronously
// from a worker goroutine and must not block.
type Observer func(Transition)
