package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLock(t *testing.T, dir, content string) string {
	t.Helper()
	path := lockFilePath(dir)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write lock file: %v", err)
	}
	return path
}

func TestReadLockFileValid(t *testing.T) {
	dir := t.TempDir()
	path := writeLock(t, dir, "4242\n/var/data\n1699999999\n5433\n")

	pid, mtime, err := readLockFile(path)
	if err != nil {
		t.Fatalf("readLockFile: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("expected pid 4242, got %d", pid)
	}
	if mtime.IsZero() || time.Since(mtime) > time.Minute {
		t.Fatalf("unexpected mtime %v", mtime)
	}
}

func TestReadLockFileWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := writeLock(t, dir, "  77  \n")

	pid, _, err := readLockFile(path)
	if err != nil {
		t.Fatalf("readLockFile: %v", err)
	}
	if pid != 77 {
		t.Fatalf("expected pid 77, got %d", pid)
	}
}

func TestReadLockFileMissing(t *testing.T) {
	_, _, err := readLockFile(filepath.Join(t.TempDir(), lockFileName))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadLockFileCorrupt(t *testing.T) {
	cases := []string{"", "\n", "abc\n", "-5\n", "0\n", "12.5\n"}
	for _, content := range cases {
		dir := t.TempDir()
		path := writeLock(t, dir, content)
		_, _, err := readLockFile(path)
		if !errors.Is(err, errCorruptLock) {
			t.Fatalf("content %q: expected errCorruptLock, got %v", content, err)
		}
	}
}
