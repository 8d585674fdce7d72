//go:build !windows

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeBinary installs an executable shell script named name in binDir.
func writeFakeBinary(t *testing.T, binDir, name, script string) {
	t.Helper()
	path := filepath.Join(binDir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
}

func TestEnsureInitializedRunsBootstrap(t *testing.T) {
	binDir := t.TempDir()
	dataDir := filepath.Join(t.TempDir(), "data")
	// The fake initdb validates it received a pwfile and writes the markers
	// the way the real bootstrap would.
	writeFakeBinary(t, binDir, "initdb", `
data=""
pwfile=""
while [ $# -gt 0 ]; do
  case "$1" in
    -D) data="$2"; shift 2;;
    --pwfile) pwfile="$2"; shift 2;;
    *) shift;;
  esac
done
[ -n "$data" ] || exit 1
[ -s "$pwfile" ] || exit 1
mkdir -p "$data"
echo 16 > "$data/PG_VERSION"
echo "# conf" > "$data/postgresql.conf"
`)

	c := newTestController(binDir, dataDir)
	if err := c.ensureInitialized(context.Background()); err != nil {
		t.Fatalf("ensureInitialized: %v", err)
	}
	if !c.initialized() {
		t.Fatalf("expected markers after bootstrap")
	}

	// Second call is a no-op even with a broken binary in place.
	writeFakeBinary(t, binDir, "initdb", "exit 1\n")
	if err := c.ensureInitialized(context.Background()); err != nil {
		t.Fatalf("ensureInitialized on initialized dir: %v", err)
	}
}

func TestEnsureInitializedBootstrapFailure(t *testing.T) {
	binDir := t.TempDir()
	writeFakeBinary(t, binDir, "initdb", "echo boom >&2\nexit 1\n")

	c := newTestController(binDir, filepath.Join(t.TempDir(), "data"))
	err := c.ensureInitialized(context.Background())
	if !errors.Is(err, ErrStartFailure) {
		t.Fatalf("expected ErrStartFailure, got %v", err)
	}
}

func TestSpawnReadyAndTerminate(t *testing.T) {
	binDir := t.TempDir()
	dataDir := t.TempDir()
	// The fake engine writes its own pid into the lock artifact and idles.
	writeFakeBinary(t, binDir, "postgres", `
data=""
while [ $# -gt 0 ]; do
  case "$1" in
    -D) data="$2"; shift 2;;
    *) shift;;
  esac
done
echo $$ > "$data/postmaster.pid"
while true; do sleep 1; done
`)

	c := newTestController(binDir, dataDir)
	c.occupied = func(port int, timeout time.Duration) bool { return true }
	c.ping = func(ctx context.Context, connURL string) error { return nil }

	p, err := c.spawn(context.Background(), 5433)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if !pidAlive(p.pid) {
		t.Fatalf("spawned pid %d not alive", p.pid)
	}

	if err := c.terminate(p, time.Second); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for pidAlive(p.pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if pidAlive(p.pid) {
		t.Fatalf("pid %d still alive after terminate", p.pid)
	}
}

func TestSpawnEarlyExitIsStartFailure(t *testing.T) {
	binDir := t.TempDir()
	writeFakeBinary(t, binDir, "postgres", "echo fatal >&2\nexit 1\n")

	c := newTestController(binDir, t.TempDir())
	c.occupied = func(port int, timeout time.Duration) bool { return false }

	_, err := c.spawn(context.Background(), 5433)
	if !errors.Is(err, ErrStartFailure) {
		t.Fatalf("expected ErrStartFailure, got %v", err)
	}
}

func TestSpawnLockConflictDetected(t *testing.T) {
	binDir := t.TempDir()
	dataDir := t.TempDir()
	// The fake engine refuses to start because a live foreign pid (this test
	// process) already holds the lock artifact.
	writeFakeBinary(t, binDir, "postgres", fmt.Sprintf(`
data=""
while [ $# -gt 0 ]; do
  case "$1" in
    -D) data="$2"; shift 2;;
    *) shift;;
  esac
done
echo %d > "$data/postmaster.pid"
exit 1
`, os.Getpid()))

	c := newTestController(binDir, dataDir)
	c.occupied = func(port int, timeout time.Duration) bool { return false }

	_, err := c.spawn(context.Background(), 5433)
	if !errors.Is(err, errLockConflict) {
		t.Fatalf("expected errLockConflict, got %v", err)
	}
}

func TestSpawnMissingBinary(t *testing.T) {
	c := newTestController(t.TempDir(), t.TempDir())
	_, err := c.spawn(context.Background(), 5433)
	if !errors.Is(err, ErrStartFailure) {
		t.Fatalf("expected ErrStartFailure for missing binary, got %v", err)
	}
}
