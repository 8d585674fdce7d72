package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/trademon/trademon/internal/history"
)

func TestSinkSend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	events := []history.Event{
		{Type: history.EventBootstrapped, OccurredAt: time.Now().UTC(), Port: 5433, DataDir: "/data"},
		{Type: history.EventStarted, OccurredAt: time.Now().UTC(), PID: 42, Port: 5433, DataDir: "/data"},
		{Type: history.EventRecovered, OccurredAt: time.Now().UTC(), Port: 5433, DataDir: "/data", Detail: "stale_process_dead"},
	}
	for _, e := range events {
		if err := s.Send(ctx, e); err != nil {
			t.Fatalf("send %s: %v", e.Type, err)
		}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM engine_history;`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(events) {
		t.Fatalf("rows = %d, want %d", count, len(events))
	}

	var detail string
	err = s.db.QueryRow(`SELECT detail FROM engine_history WHERE event = 'recovered';`).Scan(&detail)
	if err != nil {
		t.Fatalf("select detail: %v", err)
	}
	if detail != "stale_process_dead" {
		t.Fatalf("detail = %q", detail)
	}
}

func TestSinkDSNPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := New("sqlite://" + path)
	if err != nil {
		t.Fatalf("new with prefix: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Send(context.Background(), history.Event{
		Type: history.EventStopped, OccurredAt: time.Now().UTC(), PID: 7, Port: 5433, DataDir: "/data",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSinkEmptyDSN(t *testing.T) {
	if _, err := New("   "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
