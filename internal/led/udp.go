package led

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/coreman2200/funtimes-leafcast/internal/proto"
)

const DefaultPort = 60222

// NetworkError wraps a failed datagram write. It is never fatal: the protocol
// is best-effort and the next frame supersedes this one.
type NetworkError struct {
	Addr string
	Err  error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("udp send %s: %v", e.Addr, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// UDP streams frames to a panel controller, one datagram per Send, no retries.
type UDP struct {
	mu   sync.Mutex
	conn net.Conn
	addr string
	buf  []byte

	sent     atomic.Uint64
	failures atomic.Uint64
}

// DialUDP resolves host:port and binds a local socket for it.
func DialUDP(host string, port int) (*UDP, error) {
	if port <= 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	c, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &UDP{conn: c, addr: addr}, nil
}

// Send encodes and writes one datagram. Encoding errors are returned as-is;
// write errors come back as *NetworkError.
func (u *UDP) Send(entries []proto.Entry) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return &NetworkError{Addr: u.addr, Err: net.ErrClosed}
	}
	b, err := proto.AppendEncode(u.buf[:0], entries)
	if err != nil {
		return err
	}
	u.buf = b
	if _, err := u.conn.Write(b); err != nil {
		u.failures.Add(1)
		return &NetworkError{Addr: u.addr, Err: err}
	}
	u.sent.Add(1)
	return nil
}

func (u *UDP) Addr() string { return u.addr }

// Sent and Failures count datagrams since dial.
func (u *UDP) Sent() uint64     { return u.sent.Load() }
func (u *UDP) Failures() uint64 { return u.failures.Load() }

func (u *UDP) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	err := u.conn.Close()
	u.conn = nil
	return err
}
