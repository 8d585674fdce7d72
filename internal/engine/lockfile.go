package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// lockFileName is the marker the engine writes inside its data directory
// while running. The first line is the owning PID; the remaining lines are
// engine-specific and are not interpreted here.
const lockFileName = "postmaster.pid"

func lockFilePath(dataDir string) string {
	return filepath.Join(dataDir, lockFileName)
}

// readLockFile returns the PID named by the lock artifact along with the
// artifact's modification time. Presence of the artifact does not imply a
// live owner; it may be a crash remnant. A first line that does not parse
// to a positive decimal PID yields errCorruptLock.
func readLockFile(path string) (int, time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, time.Time{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, time.Time{}, err
	}
	first, _, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return 0, time.Time{}, errCorruptLock
	}
	return pid, fi.ModTime(), nil
}
