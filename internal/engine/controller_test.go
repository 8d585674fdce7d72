package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestController(binDir, dataDir string) *controller {
	return newController(binDir, dataDir,
		Credentials{User: "tester", Password: "pw"},
		"postgres", 2*time.Second, 100*time.Millisecond,
		os.Stdout, os.Stderr, testLogger())
}

func TestConnectionURL(t *testing.T) {
	got := ConnectionURL(Credentials{User: "u", Password: "p"}, 5433, "postgres")
	want := "postgres://u:p@127.0.0.1:5433/postgres?sslmode=disable"
	if got != want {
		t.Fatalf("ConnectionURL = %q, want %q", got, want)
	}
}

func TestConnectionURLEscapesCredentials(t *testing.T) {
	got := ConnectionURL(Credentials{User: "u ser", Password: "p@ss/word"}, 5433, "postgres")
	if strings.Contains(got, "p@ss/word") {
		t.Fatalf("password not escaped: %q", got)
	}
	if !strings.HasPrefix(got, "postgres://") {
		t.Fatalf("unexpected scheme: %q", got)
	}
}

func TestInitializedMarkers(t *testing.T) {
	dataDir := t.TempDir()
	c := newTestController(t.TempDir(), dataDir)

	if c.initialized() {
		t.Fatalf("empty directory must not count as initialized")
	}
	if err := os.WriteFile(filepath.Join(dataDir, "PG_VERSION"), []byte("16\n"), 0o600); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if c.initialized() {
		t.Fatalf("single marker must not count as initialized")
	}
	if err := os.WriteFile(filepath.Join(dataDir, "postgresql.conf"), []byte("# conf\n"), 0o600); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if !c.initialized() {
		t.Fatalf("both markers present, expected initialized")
	}
}

func TestTail(t *testing.T) {
	short := []byte("short output")
	if got := tail(short); got != string(short) {
		t.Fatalf("tail(short) = %q", got)
	}
	long := []byte(strings.Repeat("x", 1000))
	got := tail(long)
	if len(got) != 403 || !strings.HasPrefix(got, "...") {
		t.Fatalf("tail(long) length %d, prefix %q", len(got), got[:3])
	}
}
