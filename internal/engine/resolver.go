package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Decision classifies the state of the data directory's lock artifact,
// evaluated once per start attempt before any engine process is spawned.
type Decision int

const (
	// DecisionNoArtifact: no lock artifact (or a corrupt one that was
	// removed); start proceeds directly.
	DecisionNoArtifact Decision = iota
	// DecisionStaleProcessDead: the artifact names a dead PID; crash
	// remnant, removed.
	DecisionStaleProcessDead
	// DecisionStaleProcessAliveWrongPort: the owning PID is alive but
	// nothing serves on the expected port; the holder was terminated and
	// the artifact removed.
	DecisionStaleProcessAliveWrongPort
	// DecisionLegitimateOwner: the owning PID is alive and the port is
	// occupied; the start attempt must abort.
	DecisionLegitimateOwner
	// DecisionUnreadable: the artifact could not be read (I/O error other
	// than absence) but was successfully removed.
	DecisionUnreadable
)

func (d Decision) String() string {
	switch d {
	case DecisionNoArtifact:
		return "no_artifact"
	case DecisionStaleProcessDead:
		return "stale_process_dead"
	case DecisionStaleProcessAliveWrongPort:
		return "stale_process_alive_wrong_port"
	case DecisionLegitimateOwner:
		return "legitimate_owner"
	case DecisionUnreadable:
		return "unreadable"
	}
	return "unknown"
}

// resolver decides how to recover the data directory before a spawn. The
// probe functions are injectable for tests; production wiring is in
// newResolver.
type resolver struct {
	dataDir    string
	port       int
	probeWait  time.Duration
	killGrace  time.Duration
	ownerAlive func(pid int, lockMtime time.Time) bool
	occupied   func(port int, timeout time.Duration) bool
	kill       func(pid int) error
	logger     *slog.Logger
}

func newResolver(dataDir string, port int, probeWait, killGrace time.Duration, logger *slog.Logger) *resolver {
	return &resolver{
		dataDir:    dataDir,
		port:       port,
		probeWait:  probeWait,
		killGrace:  killGrace,
		ownerAlive: artifactOwnerAlive,
		occupied:   portOccupied,
		kill:       forceKill,
		logger:     logger,
	}
}

// resolve runs the recovery state machine. Port occupancy is the
// authoritative signal of "actually serving"; PID liveness alone is not,
// since a PID can be hung or recycled. Both signals are consulted so a
// legitimate running engine is never double-started and an innocuous crash
// remnant never blocks a start forever.
//
// Only DecisionLegitimateOwner aborts the start; for every other decision
// the data directory has been cleared for spawning when err is nil.
func (r *resolver) resolve() (Decision, error) {
	lockPath := lockFilePath(r.dataDir)

	pid, mtime, err := readLockFile(lockPath)
	switch {
	case err == nil:
		// fallthrough to liveness checks below
	case os.IsNotExist(err):
		return DecisionNoArtifact, nil
	case errors.Is(err, errCorruptLock):
		r.logger.Warn("removing corrupt lock artifact", "path", lockPath)
		if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return DecisionUnreadable, fmt.Errorf("%w: %s: remove failed: %v", ErrUnresolvableArtifact, lockPath, rmErr)
		}
		return DecisionNoArtifact, nil
	default:
		// Unreadable for a reason other than absence (e.g. permission
		// denied). Try to remove it anyway; if that also fails the
		// directory cannot be safely claimed.
		if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return DecisionUnreadable, fmt.Errorf("%w: %s: %v", ErrUnresolvableArtifact, lockPath, err)
		}
		r.logger.Warn("removed unreadable lock artifact", "path", lockPath, "read_error", err)
		return DecisionUnreadable, nil
	}

	if !r.ownerAlive(pid, mtime) {
		r.logger.Info("lock artifact owner is dead, removing", "pid", pid)
		if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return DecisionStaleProcessDead, fmt.Errorf("%w: %s: remove failed: %v", ErrUnresolvableArtifact, lockPath, rmErr)
		}
		return DecisionStaleProcessDead, nil
	}

	if r.occupied(r.port, r.probeWait) {
		// Alive owner serving on the expected port. Never delete the
		// artifact or spawn a second instance here.
		return DecisionLegitimateOwner, fmt.Errorf("%w: pid %d is serving on port %d", ErrAlreadyRunning, pid, r.port)
	}

	// Alive but not listening: a zombie or foreign holder of the data
	// directory. Terminate it, wait a grace period, and reclaim the
	// directory regardless of whether the kill succeeded; the free port is
	// what makes proceeding safe.
	r.logger.Warn("lock artifact owner alive but not serving, terminating", "pid", pid, "port", r.port)
	if killErr := r.kill(pid); killErr != nil {
		r.logger.Warn("failed to terminate stale owner, proceeding since port is free", "pid", pid, "error", killErr)
	}
	r.waitForExit(pid, mtime)
	if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
		return DecisionStaleProcessAliveWrongPort, fmt.Errorf("%w: %s: remove failed: %v", ErrUnresolvableArtifact, lockPath, rmErr)
	}
	return DecisionStaleProcessAliveWrongPort, nil
}

// waitForExit polls until the killed holder disappears or the grace period
// elapses.
func (r *resolver) waitForExit(pid int, mtime time.Time) {
	deadline := time.Now().Add(r.killGrace)
	for time.Now().Before(deadline) {
		if !r.ownerAlive(pid, mtime) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
