package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/trademon/trademon/internal/history"
	"github.com/trademon/trademon/internal/metrics"
)

// Config parameterizes the managed engine instance.
type Config struct {
	DataDir  string // absolute path to the engine data directory
	BinDir   string // directory holding the initdb and postgres binaries
	Port     int    // default listening port when Start is called with 0
	User     string
	Password string
	Database string // default catalog embedded in the connection URL

	StartTimeout time.Duration // bound on the spawn readiness window
	StopWait     time.Duration // graceful-stop wait before forced kill
	ProbeWait    time.Duration // bound on the port bind probe
	KillGrace    time.Duration // wait after force-killing a stale holder

	EngineStdout io.Writer // engine process stdout; discarded when nil
	EngineStderr io.Writer
	Logger       *slog.Logger
}

const (
	DefaultPort     = 5433
	DefaultUser     = "trademon"
	DefaultDatabase = "postgres"
)

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 10 * time.Second
	}
	if c.StopWait <= 0 {
		c.StopWait = 5 * time.Second
	}
	if c.ProbeWait <= 0 {
		c.ProbeWait = defaultProbeTimeout
	}
	if c.KillGrace <= 0 {
		c.KillGrace = 500 * time.Millisecond
	}
	if c.EngineStdout == nil {
		c.EngineStdout = io.Discard
	}
	if c.EngineStderr == nil {
		c.EngineStderr = io.Discard
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Status is a snapshot of the managed engine instance.
type Status struct {
	Running     bool      `json:"running"`
	Initialized bool      `json:"initialized"`
	PID         int       `json:"pid,omitempty"`
	Port        int       `json:"port,omitempty"`
	URL         string    `json:"url,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
}

// runner abstracts the engine process controller so supervisor behavior can
// be tested without real engine binaries.
type runner interface {
	initialized() bool
	ensureInitialized(ctx context.Context) (bootstrapped bool, err error)
	spawn(ctx context.Context, port int) (*proc, error)
	terminate(p *proc, wait time.Duration) error
}

// controllerRunner adapts controller to the runner interface.
type controllerRunner struct{ c *controller }

func (r controllerRunner) initialized() bool { return r.c.initialized() }
func (r controllerRunner) ensureInitialized(ctx context.Context) (bool, error) {
	if r.c.initialized() {
		return false, nil
	}
	return true, r.c.ensureInitialized(ctx)
}
func (r controllerRunner) spawn(ctx context.Context, port int) (*proc, error) {
	return r.c.spawn(ctx, port)
}
func (r controllerRunner) terminate(p *proc, wait time.Duration) error {
	return r.c.terminate(p, wait)
}

// Supervisor is the only entry point the rest of the application uses to
// drive the embedded engine. It owns the single managed engine instance for
// the lifetime of the host process; no other component may start or stop
// the engine directly.
type Supervisor struct {
	mu        sync.Mutex
	cfg       Config
	url       string
	proc      *proc
	port      int
	startedAt time.Time

	run     runner
	resolve func(port int) (Decision, error)
	sinks   []history.Sink
	logger  *slog.Logger
}

// New builds a supervisor for the given engine configuration.
func New(cfg Config) *Supervisor {
	cfg = cfg.withDefaults()
	ctrl := newController(cfg.BinDir, cfg.DataDir,
		Credentials{User: cfg.User, Password: cfg.Password},
		cfg.Database, cfg.StartTimeout, cfg.ProbeWait,
		cfg.EngineStdout, cfg.EngineStderr, cfg.Logger)
	s := &Supervisor{
		cfg:    cfg,
		run:    controllerRunner{c: ctrl},
		logger: cfg.Logger,
	}
	s.resolve = func(port int) (Decision, error) {
		return newResolver(cfg.DataDir, port, cfg.ProbeWait, cfg.KillGrace, cfg.Logger).resolve()
	}
	return s
}

// SetHistorySinks configures audit sinks for lifecycle events. Passing no
// sinks clears the list.
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.mu.Lock()
	s.sinks = append([]history.Sink(nil), sinks...)
	s.mu.Unlock()
}

// Start brings the engine up on port (the configured default when port is
// 0) and returns its connection URL. Idempotent: when a descriptor is
// already cached it is returned without touching the filesystem or spawning
// anything. Concurrent callers serialize on the supervisor mutex, so
// overlapping starts collapse into a single spawn. On failure the instance
// state is reset so a retry is always safe.
func (s *Supervisor) Start(ctx context.Context, port int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.url != "" {
		return s.url, nil
	}
	if port <= 0 {
		port = s.cfg.Port
	}
	began := time.Now()

	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		dec, err := s.resolve(port)
		if err != nil {
			s.resetLocked()
			return "", err
		}
		if dec != DecisionNoArtifact {
			metrics.IncRecovery(dec.String())
			s.record(ctx, history.EventRecovered, 0, port, dec.String())
		}

		bootstrapped, err := s.run.ensureInitialized(ctx)
		if err != nil {
			s.resetLocked()
			return "", err
		}
		if bootstrapped {
			metrics.IncBootstrap()
			s.record(ctx, history.EventBootstrapped, 0, port, "")
		}

		p, err := s.run.spawn(ctx, port)
		if err != nil {
			if errors.Is(err, errLockConflict) {
				if attempt == 0 {
					s.logger.Warn("lock artifact reappeared during start, re-running recovery", "error", err)
					lastErr = err
					continue
				}
				s.resetLocked()
				return "", fmt.Errorf("%w: %v", ErrAlreadyRunning, err)
			}
			s.resetLocked()
			return "", err
		}

		s.proc = p
		s.port = port
		s.startedAt = time.Now()
		s.url = ConnectionURL(Credentials{User: s.cfg.User, Password: s.cfg.Password}, port, s.cfg.Database)
		metrics.SetEngineUp(true)
		metrics.IncStart()
		metrics.ObserveStartDuration(time.Since(began).Seconds())
		s.record(ctx, history.EventStarted, p.pid, port, "")
		s.logger.Info("engine serving", "pid", p.pid, "port", port)
		return s.url, nil
	}

	s.resetLocked()
	return "", fmt.Errorf("%w: %v", ErrAlreadyRunning, lastErr)
}

// Stop terminates the engine and clears all cached state. A no-op when
// nothing is running. Termination failure is logged, never returned: the
// state is cleared regardless so a future Start can re-resolve the
// directory.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil && s.url == "" {
		return nil
	}
	if s.proc != nil {
		pid := s.proc.pid
		if err := s.run.terminate(s.proc, s.cfg.StopWait); err != nil {
			s.logger.Warn("engine termination failed, clearing state anyway", "pid", pid, "error", err)
		}
		metrics.IncStop()
		s.record(ctx, history.EventStopped, pid, s.port, "")
		s.logger.Info("engine stopped", "pid", pid)
	}
	s.resetLocked()
	metrics.SetEngineUp(false)
	return nil
}

// ConnectionDescriptor returns the cached connection URL, if any. Pure
// accessor, no side effects.
func (s *Supervisor) ConnectionDescriptor() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, s.url != ""
}

// Status returns a snapshot of the managed instance.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:     s.proc != nil,
		Initialized: s.run.initialized(),
		URL:         s.url,
	}
	if s.proc != nil {
		st.PID = s.proc.pid
		st.Port = s.port
		st.StartedAt = s.startedAt
	}
	return st
}

func (s *Supervisor) resetLocked() {
	s.url = ""
	s.proc = nil
	s.port = 0
	s.startedAt = time.Time{}
}

func (s *Supervisor) record(ctx context.Context, typ history.EventType, pid, port int, detail string) {
	if len(s.sinks) == 0 {
		return
	}
	evt := history.Event{
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		PID:        pid,
		Port:       port,
		DataDir:    s.cfg.DataDir,
		Detail:     detail,
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	for _, sink := range s.sinks {
		if err := sink.Send(sendCtx, evt); err != nil {
			s.logger.Warn("history sink send failed", "type", string(typ), "error", err)
		}
	}
}
