package engine

import (
	"net"
	"strconv"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func TestPortOccupiedFree(t *testing.T) {
	port := freePort(t)
	if portOccupied(port, time.Second) {
		t.Fatalf("expected port %d to be free", port)
	}
}

func TestPortOccupiedBusy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	if !portOccupied(port, time.Second) {
		t.Fatalf("expected port %d to be occupied", port)
	}
}

func TestPortOccupiedReleasedAfterProbe(t *testing.T) {
	// The probe must not leave its own socket bound.
	port := freePort(t)
	if portOccupied(port, time.Second) {
		t.Fatalf("expected port %d to be free", port)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("port %d still bound after probe: %v", port, err)
	}
	_ = ln.Close()
}
