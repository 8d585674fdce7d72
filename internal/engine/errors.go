package engine

import "errors"

// Sentinel errors surfaced across the supervisor boundary. Callers match
// them with errors.Is; raw filesystem and process errors never leak past
// the facade.
var (
	// ErrAlreadyRunning means a live engine owns the data directory and is
	// serving on the expected port. Not retryable by this component.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrStartFailure means the engine process exited early or never became
	// reachable within the startup window.
	ErrStartFailure = errors.New("engine start failed")

	// ErrUnresolvableArtifact means the lock artifact could be neither read
	// nor removed, so ownership of the data directory is unknown.
	ErrUnresolvableArtifact = errors.New("unresolvable lock artifact")
)

// errCorruptLock marks a lock artifact whose first line does not parse to a
// positive PID. Recovered locally: the artifact is deleted and start proceeds.
var errCorruptLock = errors.New("corrupt lock artifact")

// errLockConflict marks a spawn failure caused by a lock artifact written by
// a concurrently-starting instance. The resolver pass is retried exactly once.
var errLockConflict = errors.New("lock artifact reappeared during start")
