package lifecycle

import "context"

// State represents the lifecycle state of the server.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Observer is called after every successful transition, outside any lock.
type Observer func(previous, current State, reason string)

// Manager manages the lifecycle state machine.
type Manager interface {
	// State returns the current lifecycle state.
	State() State

	// CanStart returns true if the server may be started.
	CanStart() bool

	// CanStop returns true if the server may be stopped.
	CanStop() bool

	// TransitionTo attempts to transition to a new state.
	// Returns an error if the transition is not valid.
	TransitionTo(newState State, reason string) error

	// Go runs fn in a tracked goroutine.
	Go(fn func())

	// Wait blocks until every tracked goroutine returns or ctx is done.
	// Returns ErrShutdownTimeout if ctx expires first.
	Wait(ctx context.Context) error
}
