package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
)

// Credentials is the superuser pair for the embedded engine. Access is
// loopback-only; this is not an externally reachable credential.
type Credentials struct {
	User     string
	Password string
}

// initMarkerFiles signal an already-bootstrapped data directory. Both must
// be present to skip the one-time bootstrap.
var initMarkerFiles = [...]string{"PG_VERSION", "postgresql.conf"}

// proc is a handle to a spawned engine process.
type proc struct {
	pid  int
	cmd  *exec.Cmd
	done chan error // receives the cmd.Wait result exactly once
}

// controller owns the initdb/postgres/terminate calls against the
// underlying engine binaries. The readiness probes are injectable for
// tests.
type controller struct {
	binDir       string
	dataDir      string
	creds        Credentials
	database     string
	startTimeout time.Duration
	probeWait    time.Duration
	stdout       io.Writer
	stderr       io.Writer
	logger       *slog.Logger

	occupied func(port int, timeout time.Duration) bool
	ping     func(ctx context.Context, connURL string) error
}

func newController(binDir, dataDir string, creds Credentials, database string, startTimeout, probeWait time.Duration, stdout, stderr io.Writer, logger *slog.Logger) *controller {
	return &controller{
		binDir:       binDir,
		dataDir:      dataDir,
		creds:        creds,
		database:     database,
		startTimeout: startTimeout,
		probeWait:    probeWait,
		stdout:       stdout,
		stderr:       stderr,
		logger:       logger,
		occupied:     portOccupied,
		ping:         pingEngine,
	}
}

// initialized reports whether the data directory carries the engine's own
// bootstrap markers.
func (c *controller) initialized() bool {
	for _, name := range initMarkerFiles {
		if _, err := os.Stat(filepath.Join(c.dataDir, name)); err != nil {
			return false
		}
	}
	return true
}

// ensureInitialized runs the engine's one-time bootstrap when the data
// directory lacks its markers. Safe to call on an already-initialized
// directory; it is a no-op then.
func (c *controller) ensureInitialized(ctx context.Context) error {
	if c.initialized() {
		return nil
	}
	if err := os.MkdirAll(c.dataDir, 0o700); err != nil {
		return fmt.Errorf("%w: create data directory: %v", ErrStartFailure, err)
	}

	// initdb reads the superuser password from a file to keep it off the
	// command line.
	pwFile, err := os.CreateTemp("", "trademon-pw-*")
	if err != nil {
		return fmt.Errorf("%w: write password file: %v", ErrStartFailure, err)
	}
	pwPath := pwFile.Name()
	defer func() { _ = os.Remove(pwPath) }()
	if _, err := pwFile.WriteString(c.creds.Password + "\n"); err != nil {
		_ = pwFile.Close()
		return fmt.Errorf("%w: write password file: %v", ErrStartFailure, err)
	}
	if err := pwFile.Close(); err != nil {
		return fmt.Errorf("%w: write password file: %v", ErrStartFailure, err)
	}

	c.logger.Info("bootstrapping engine data directory", "data_dir", c.dataDir)
	cmd := exec.CommandContext(ctx, filepath.Join(c.binDir, "initdb"),
		"-D", c.dataDir,
		"-U", c.creds.User,
		"-A", "password",
		"--pwfile", pwPath,
		"-E", "UTF8",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: initdb: %v: %s", ErrStartFailure, err, tail(out))
	}
	return nil
}

// spawn starts the long-running engine process bound to 127.0.0.1:port and
// waits until it is confirmed serving: lock artifact written by our PID,
// port occupied, and a successful ping. Fails with ErrStartFailure when the
// process exits early or the window elapses, and with errLockConflict when
// the early exit was caused by another instance claiming the directory
// mid-start.
func (c *controller) spawn(ctx context.Context, port int) (*proc, error) {
	cmd := exec.Command(filepath.Join(c.binDir, "postgres"),
		"-D", c.dataDir,
		"-p", strconv.Itoa(port),
		"-c", "listen_addresses=127.0.0.1",
	)
	configureSysProcAttr(cmd)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: exec: %v", ErrStartFailure, err)
	}
	p := &proc{pid: cmd.Process.Pid, cmd: cmd, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()

	c.logger.Info("engine process started, waiting for readiness", "pid", p.pid, "port", port)
	if err := c.awaitReady(ctx, p, port); err != nil {
		// Reap whatever is left so no zombie survives a failed start.
		_ = c.terminate(p, 2*time.Second)
		return nil, err
	}
	return p, nil
}

// awaitReady polls until the engine is confirmed listening or the startup
// window closes.
func (c *controller) awaitReady(ctx context.Context, p *proc, port int) error {
	lockPath := lockFilePath(c.dataDir)
	connURL := ConnectionURL(c.creds, port, c.database)
	deadline := time.Now().Add(c.startTimeout)
	for {
		select {
		case err := <-p.done:
			p.done <- err
			return c.classifyEarlyExit(lockPath, p.pid, err)
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrStartFailure, ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: not reachable within %s", ErrStartFailure, c.startTimeout)
		}
		pid, _, err := readLockFile(lockPath)
		if err != nil || pid != p.pid {
			continue
		}
		if !c.occupied(port, c.probeWait) {
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = c.ping(pingCtx, connURL)
		cancel()
		if err == nil {
			return nil
		}
	}
}

// classifyEarlyExit distinguishes a mid-start race (another instance wrote
// the lock artifact, so the engine refused to start) from a plain failure.
func (c *controller) classifyEarlyExit(lockPath string, ownPid int, exitErr error) error {
	if pid, _, err := readLockFile(lockPath); err == nil && pid != ownPid && pidAlive(pid) {
		return fmt.Errorf("%w: pid %d claimed the data directory", errLockConflict, pid)
	}
	return fmt.Errorf("%w: engine exited during startup: %v", ErrStartFailure, exitErr)
}

// terminate stops the engine gracefully, escalating to a forced kill when
// the wait elapses. Best effort: the caller clears its state regardless.
func (c *controller) terminate(p *proc, wait time.Duration) error {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	_ = signalGroup(p.pid, syscall.SIGTERM)
	select {
	case err := <-p.done:
		p.done <- err
		return nil
	case <-time.After(wait):
	}
	_ = signalGroup(p.pid, syscall.SIGKILL)
	select {
	case err := <-p.done:
		p.done <- err
		return nil
	case <-time.After(200 * time.Millisecond):
		return fmt.Errorf("engine pid %d did not exit after SIGKILL", p.pid)
	}
}

// ConnectionURL builds the descriptor other components use to address the
// running engine.
func ConnectionURL(creds Credentials, port int, database string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(creds.User, creds.Password),
		Host:     "127.0.0.1:" + strconv.Itoa(port),
		Path:     "/" + database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// pingEngine verifies end-to-end reachability with a real client handshake,
// not just a TCP accept.
func pingEngine(ctx context.Context, connURL string) error {
	conn, err := pgx.Connect(ctx, connURL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()
	return conn.Ping(ctx)
}

// tail returns the last few lines of command output for error messages.
func tail(out []byte) string {
	const max = 400
	if len(out) <= max {
		return string(out)
	}
	return "..." + string(out[len(out)-max:])
}
