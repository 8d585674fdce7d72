// Package mirror reads trade records from the companion trading engine's
// file-backed store. The store is owned and written by that process; this
// reader opens it strictly read-only and never mutates it.
package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// Trade is a single executed trade as recorded by the trading engine.
type Trade struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Reader is a read-only view over the trading engine's SQLite store.
type Reader struct {
	db *sql.DB
}

// Open opens the store at path read-only. The file must already exist; this
// component never creates or migrates the companion's store.
func Open(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("mirror: store not found: %w", err)
	}
	dsn := "file:" + url.PathEscape(path) + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("mirror: open store: %w", err)
	}
	return &Reader{db: db}, nil
}

// Trades returns the most recent trades, newest first, capped at limit.
func (r *Reader) Trades(ctx context.Context, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, side, quantity, price, executed_at
		FROM trades ORDER BY executed_at DESC, id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("mirror: query trades: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("mirror: scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
