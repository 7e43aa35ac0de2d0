package domain

import "errors"

// Domain errors represent error conditions in the assetcdn domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrNotFound is returned when an asset is absent or its path escapes the asset root.
	ErrNotFound = errors.New("assetcdn: not found")

	// ErrInvalidRange is returned when a Range header is malformed or unsatisfiable.
	ErrInvalidRange = errors.New("assetcdn: invalid range")

	// ErrRateLimited is returned when a client exceeds its admission ceiling.
	ErrRateLimited = errors.New("assetcdn: rate limited")

	// ErrUpstreamDelivery is returned by a notification attempt that failed.
	// It never leaves the notifier.
	ErrUpstreamDelivery = errors.New("assetcdn: upstream delivery failed")

	// ErrInternalIO is returned for unexpected filesystem failures.
	ErrInternalIO = errors.New("assetcdn: internal i/o failure")

	// ErrAlreadyExists is returned when a write targets a path that is already published.
	ErrAlreadyExists = errors.New("assetcdn: already exists")

	// ErrTooLarge is returned when a write exceeds the configured size cap.
	ErrTooLarge = errors.New("assetcdn: asset too large")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("assetcdn: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("assetcdn: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("assetcdn: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("assetcdn: invalid configuration")
)
