package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trademon/trademon/internal/engine"
	"github.com/trademon/trademon/internal/metrics"
	"github.com/trademon/trademon/internal/mirror"
)

// Lifecycle is the subset of the engine supervisor the HTTP layer needs.
type Lifecycle interface {
	Start(ctx context.Context, port int) (string, error)
	Stop(ctx context.Context) error
	ConnectionDescriptor() (string, bool)
	Status() engine.Status
}

// TradeSource reads recent trades from the trading engine's store.
type TradeSource interface {
	Trades(ctx context.Context, limit int) ([]mirror.Trade, error)
}

// HealthChecker reports whether the companion trading engine is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router provides embeddable HTTP handlers for the engine lifecycle.
// Endpoints:
//
//	POST {basePath}/engine/start   query: port=... (optional)
//	POST {basePath}/engine/stop
//	GET  {basePath}/engine/status
//	GET  {basePath}/trades         query: limit=... (optional)
//	GET  {basePath}/healthz
//	GET  {basePath}/metrics        (when metrics are enabled)
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	sup      Lifecycle
	trades   TradeSource   // nil disables /trades
	gw       HealthChecker // nil skips the trading-engine probe in /healthz
	basePath string
	metrics  bool
}

// NewRouter constructs a Router. trades and gw are optional.
func NewRouter(sup Lifecycle, trades TradeSource, gw HealthChecker, basePath string, enableMetrics bool) *Router {
	return &Router{
		sup:      sup,
		trades:   trades,
		gw:       gw,
		basePath: sanitizeBase(basePath),
		metrics:  enableMetrics,
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/engine/start", r.handleStart)
	group.POST("/engine/stop", r.handleStop)
	group.GET("/engine/status", r.handleStatus)
	group.GET("/trades", r.handleTrades)
	group.GET("/healthz", r.handleHealthz)
	if r.metrics {
		group.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Callers shut it down via http.Server's Shutdown or Close.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type startResp struct {
	URL string `json:"url"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleStart(c *gin.Context) {
	port := 0
	if ps := c.Query("port"); ps != "" {
		p, err := strconv.Atoi(ps)
		if err != nil || p <= 0 || p > 65535 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid port"})
			return
		}
		port = p
	}
	url, err := r.sup.Start(c.Request.Context(), port)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, engine.ErrAlreadyRunning) {
			code = http.StatusConflict
		}
		writeJSON(c, code, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, startResp{URL: url})
}

func (r *Router) handleStop(c *gin.Context) {
	if err := r.sup.Stop(c.Request.Context()); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.sup.Status())
}

func (r *Router) handleTrades(c *gin.Context) {
	if r.trades == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "trade mirror not configured"})
		return
	}
	limit := 0
	if ls := c.Query("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n < 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid limit"})
			return
		}
		limit = n
	}
	trades, err := r.trades.Trades(c.Request.Context(), limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if trades == nil {
		trades = []mirror.Trade{}
	}
	writeJSON(c, http.StatusOK, trades)
}

type healthResp struct {
	Engine        string `json:"engine"`
	TradingEngine string `json:"trading_engine,omitempty"`
}

func (r *Router) handleHealthz(c *gin.Context) {
	resp := healthResp{Engine: "down"}
	code := http.StatusServiceUnavailable
	if _, ok := r.sup.ConnectionDescriptor(); ok {
		resp.Engine = "up"
		code = http.StatusOK
	}
	if r.gw != nil {
		if err := r.gw.Health(c.Request.Context()); err != nil {
			resp.TradingEngine = "down"
			code = http.StatusServiceUnavailable
		} else {
			resp.TradingEngine = "up"
		}
	}
	writeJSON(c, code, resp)
}
