package client

import "time"

// StartResponse carries the connection URL returned by /engine/start.
type StartResponse struct {
	URL string `json:"url"`
}

// EngineStatus mirrors the server's engine status payload.
type EngineStatus struct {
	Running     bool      `json:"running"`
	Initialized bool      `json:"initialized"`
	PID         int       `json:"pid,omitempty"`
	Port        int       `json:"port,omitempty"`
	URL         string    `json:"url,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}

// Trade mirrors the server's trade payload.
type Trade struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
