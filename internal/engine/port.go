package engine

import (
	"net"
	"strconv"
	"time"
)

// defaultProbeTimeout bounds the bind attempt in portOccupied.
const defaultProbeTimeout = 500 * time.Millisecond

// portOccupied reports whether any process is listening on 127.0.0.1:port.
// It attempts to bind the port itself: a successful bind (closed
// immediately) means the port is free. A bind error, or a bind that does
// not complete within timeout, means occupied. No socket is left open on
// any exit path.
func portOccupied(port int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	type bindResult struct {
		ln  net.Listener
		err error
	}
	ch := make(chan bindResult, 1)
	go func() {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		ch <- bindResult{ln: ln, err: err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return true
		}
		_ = r.ln.Close()
		return false
	case <-time.After(timeout):
		// The bind is still pending; make sure the socket is closed
		// whenever it eventually completes.
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.ln.Close()
			}
		}()
		return true
	}
}
