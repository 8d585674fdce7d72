package factory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trademon/trademon/internal/history/sqlite"
)

func TestNewSinkFromDSNSQLite(t *testing.T) {
	for _, dsn := range []string{
		filepath.Join(t.TempDir(), "a.db"),
		"sqlite://" + filepath.Join(t.TempDir(), "b.db"),
	} {
		sink, err := NewSinkFromDSN(dsn)
		require.NoError(t, err, "dsn %s", dsn)
		s, ok := sink.(*sqlite.Sink)
		require.True(t, ok, "expected *sqlite.Sink for %s, got %T", dsn, sink)
		require.NoError(t, s.Close())
	}
}

func TestNewSinkFromDSNUnsupported(t *testing.T) {
	_, err := NewSinkFromDSN("redis://localhost:6379")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported DSN")
}

func TestNewSinkFromDSNEmpty(t *testing.T) {
	_, err := NewSinkFromDSN("  ")
	require.Error(t, err)
}
