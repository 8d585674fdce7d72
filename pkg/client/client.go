// Package client is a thin HTTP client for the trademon lifecycle API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Client provides HTTP client functionality to communicate with a running
// trademon server. The server binds loopback only, so the client speaks
// plain HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8085",
		Timeout: 15 * time.Second,
	}
}

// New creates a new trademon API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8085"
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the server is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/engine/status", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("server unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode != http.StatusNotFound
}

// StartEngine asks the server to start the engine. port 0 uses the server's
// configured default. Returns the connection URL.
func (c *Client) StartEngine(ctx context.Context, port int) (string, error) {
	url := c.baseURL + "/engine/start"
	if port > 0 {
		url += "?port=" + strconv.Itoa(port)
	}
	var out StartResponse
	if err := c.doJSON(ctx, http.MethodPost, url, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// StopEngine asks the server to stop the engine.
func (c *Client) StopEngine(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/engine/stop", nil)
}

// EngineStatus fetches the current engine status.
func (c *Client) EngineStatus(ctx context.Context) (EngineStatus, error) {
	var st EngineStatus
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/engine/status", &st)
	return st, err
}

// Trades fetches the most recent trades. limit 0 uses the server default.
func (c *Client) Trades(ctx context.Context, limit int) ([]Trade, error) {
	url := c.baseURL + "/trades"
	if limit > 0 {
		url += "?limit=" + strconv.Itoa(limit)
	}
	var out []Trade
	err := c.doJSON(ctx, http.MethodGet, url, &out)
	return out, err
}

// doJSON performs the request and decodes a JSON body into out when out is
// non-nil. Non-2xx responses are turned into errors from the server's error
// payload.
func (c *Client) doJSON(ctx context.Context, method, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "url", url, "error", err)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("API error: %s", errResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
