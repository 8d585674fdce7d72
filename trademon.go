package trademon

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/trademon/trademon/internal/config"
	"github.com/trademon/trademon/internal/engine"
	"github.com/trademon/trademon/internal/gateway"
	"github.com/trademon/trademon/internal/history"
	historyfactory "github.com/trademon/trademon/internal/history/factory"
	"github.com/trademon/trademon/internal/metrics"
	"github.com/trademon/trademon/internal/mirror"
	"github.com/trademon/trademon/internal/server"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type EngineConfig = engine.Config

type EngineStatus = engine.Status

type Decision = engine.Decision

type HistorySink = history.Sink

type HistoryEvent = history.Event

type Trade = mirror.Trade

// Sentinel errors callers match with errors.Is.
var (
	ErrAlreadyRunning       = engine.ErrAlreadyRunning
	ErrStartFailure         = engine.ErrStartFailure
	ErrUnresolvableArtifact = engine.ErrUnresolvableArtifact
)

// Supervisor is a thin facade over internal/engine.Supervisor.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *engine.Supervisor }

func New(c EngineConfig) *Supervisor { return &Supervisor{inner: engine.New(c)} }

// Start brings the engine up on port (0 uses the configured default) and
// returns its connection URL. Idempotent while the engine is running.
func (s *Supervisor) Start(ctx context.Context, port int) (string, error) {
	return s.inner.Start(ctx, port)
}

// Stop terminates the engine and clears cached state. No-op when idle.
func (s *Supervisor) Stop(ctx context.Context) error { return s.inner.Stop(ctx) }

// ConnectionDescriptor returns the cached connection URL, if any.
func (s *Supervisor) ConnectionDescriptor() (string, bool) { return s.inner.ConnectionDescriptor() }

// Status returns a snapshot of the managed engine instance.
func (s *Supervisor) Status() EngineStatus { return s.inner.Status() }

// SetHistorySinks configures audit sinks for lifecycle events.
func (s *Supervisor) SetHistorySinks(sinks ...HistorySink) { s.inner.SetHistorySinks(sinks...) }

// NewHistorySink builds a sink from a DSN (sqlite://, postgres://,
// clickhouse://).
func NewHistorySink(dsn string) (HistorySink, error) { return historyfactory.NewSinkFromDSN(dsn) }

// OpenTradeMirror opens the trading engine's store read-only.
func OpenTradeMirror(path string) (*mirror.Reader, error) { return mirror.Open(path) }

// NewGateway builds a health-check client for the companion trading engine.
func NewGateway(baseURL string, timeout time.Duration) *gateway.Client {
	return gateway.New(gateway.Config{BaseURL: baseURL, Timeout: timeout})
}

// LoadConfig parses and validates a TOML config file.
func LoadConfig(path string) (*cfg.FileConfig, error) { return cfg.Load(path) }

// NewHTTPHandler returns the lifecycle API as an http.Handler for mounting
// in an existing server. trades and health may be nil.
func NewHTTPHandler(s *Supervisor, trades server.TradeSource, health server.HealthChecker, basePath string, enableMetrics bool) http.Handler {
	return server.NewRouter(s.inner, trades, health, basePath, enableMetrics).Handler()
}

// NewHTTPServer starts an HTTP server exposing the lifecycle API.
func NewHTTPServer(addr string, s *Supervisor) *http.Server {
	return server.NewServer(addr, server.NewRouter(s.inner, nil, nil, "", false))
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.RegisterDefault() }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
