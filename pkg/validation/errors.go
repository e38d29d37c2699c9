package validation

import "errors"

var (
	// ErrExecutorClosed is returned when a submission arrives after Shutdown.
	ErrExecutorClosed = errors.New("validation executor is closed")
	// ErrDisposed is returned by orchestrator operations after Dispose.
	ErrDisposed = errors.New("validation orchestrator is disposed")
	// ErrShutdownTimeout is returned when Shutdown gives up waiting for an
	// in-flight validation run.
	ErrShutdownTimeout = errors.New("timed out waiting for validation to stop")
)
