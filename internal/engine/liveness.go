package engine

import (
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// pidAlive reports whether a process with the given pid currently exists.
// It uses the host's native process-query facility (no signal delivery) and
// never errors: an unverifiable pid is treated as not alive.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// artifactOwnerAlive reports whether pid is alive AND could plausibly be the
// process that wrote the lock artifact. A process whose start time is later
// than the artifact's mtime cannot be the writer; the pid was recycled by
// the OS and the artifact is stale.
func artifactOwnerAlive(pid int, lockMtime time.Time) bool {
	if !pidAlive(pid) {
		return false
	}
	start := procStartUnix(pid)
	// One second of slack covers filesystems with coarse mtime resolution.
	if start > 0 && !lockMtime.IsZero() && start > lockMtime.Unix()+1 {
		return false
	}
	return true
}
