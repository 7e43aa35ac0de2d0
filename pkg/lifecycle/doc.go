// Package lifecycle provides the server state machine.
//
// A Manager tracks whether the server is Stopped, Starting, Running,
// Stopping or Crashed, rejects illegal transitions, and counts the
// goroutines that must finish before a stop completes.
//
// # Usage
//
//	m := lifecycle.NewManager(logger, nil)
//
//	if err := m.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
//	    return err
//	}
//
//	m.Go(func() {
//	    _ = srv.Serve(ln)
//	})
//	_ = m.TransitionTo(lifecycle.StateRunning, "listener bound")
//
//	// Graceful shutdown
//	_ = m.TransitionTo(lifecycle.StateStopping, "Stop() called")
//	if err := m.Wait(ctx); err != nil {
//	    return err // lifecycle.ErrShutdownTimeout
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
