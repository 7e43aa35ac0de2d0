package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bft-labs/assetcdn/internal/domain"
	"github.com/bft-labs/assetcdn/pkg/log"
)

// Common lifecycle errors.
var (
	ErrNotRunning      = domain.ErrNotRunning
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
)

// ShutdownTimeout is the default maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// DefaultManager implements Manager.
type DefaultManager struct {
	mu       sync.RWMutex
	state    State
	since    time.Time
	wg       sync.WaitGroup
	logger   log.Logger
	observer Observer
}

// NewManager creates a new lifecycle manager in StateStopped.
// observer may be nil.
func NewManager(logger log.Logger, observer Observer) *DefaultManager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &DefaultManager{
		state:    StateStopped,
		since:    time.Now(),
		logger:   logger,
		observer: observer,
	}
}

// State returns the current lifecycle state.
func (m *DefaultManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Since returns when the current state was entered.
func (m *DefaultManager) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// TransitionTo attempts to transition to a new state.
// Leaving Stopped or Crashed for anything but Starting yields ErrNotRunning;
// any other illegal move yields ErrAlreadyRunning.
func (m *DefaultManager) TransitionTo(newState State, reason string) error {
	m.mu.Lock()
	oldState := m.state

	if !slices.Contains(transitions[oldState], newState) {
		m.mu.Unlock()
		base := ErrAlreadyRunning
		if oldState == StateStopped || oldState == StateCrashed {
			base = ErrNotRunning
		}
		return fmt.Errorf("%w: cannot move from %s to %s", base, oldState, newState)
	}

	m.state = newState
	m.since = time.Now()
	m.mu.Unlock()

	if m.observer != nil {
		m.observer(oldState, newState, reason)
	}

	m.logger.Info("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)

	return nil
}

// CanStart returns true if the server may be started.
func (m *DefaultManager) CanStart() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateStopped || m.state == StateCrashed
}

// CanStop returns true if the server may be stopped.
func (m *DefaultManager) CanStop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateRunning || m.state == StateStarting
}

// Go runs fn in a goroutine that Wait accounts for.
func (m *DefaultManager) Go(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (m *DefaultManager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, forcing exit")
		return ErrShutdownTimeout
	}
}

var _ Manager = (*DefaultManager)(nil)
