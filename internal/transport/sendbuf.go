package transport

import (
	"net"
	"sync"
	"time"
)

// sendConn sits between the TLS engine and the socket. Reads pass through
// untouched. Writes are accepted in full: whatever the socket does not
// take within the poll window is kept in a backlog and drained on later
// calls. The record layer therefore never observes a write timeout, which
// crypto/tls would treat as a permanent stream error.
type sendConn struct {
	conn   net.Conn
	window time.Duration

	mu      sync.Mutex
	backlog []byte
}

func newSendConn(conn net.Conn, window time.Duration) *sendConn {
	return &sendConn{conn: conn, window: window}
}

func (c *sendConn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

func (c *sendConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.backlog) == 0 {
		n, err := c.writeSocket(p)
		if n == len(p) && err == nil {
			return n, nil
		}
		if err != nil && !isRetryable(err) {
			return n, err
		}
		c.backlog = append(c.backlog, p[n:]...)
		return len(p), nil
	}

	c.backlog = append(c.backlog, p...)
	return len(p), nil
}

// flush tries to drain the backlog. A still non-empty backlog after a nil
// return simply means the socket was not ready; only fatal socket errors
// are reported.
func (c *sendConn) flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.backlog) == 0 {
		return nil
	}
	n, err := c.writeSocket(c.backlog)
	c.backlog = c.backlog[n:]
	if len(c.backlog) == 0 {
		c.backlog = nil
	}
	if err != nil && !isRetryable(err) {
		return err
	}
	return nil
}

func (c *sendConn) buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.backlog)
}

// writeSocket performs one bounded write attempt. Callers hold c.mu.
func (c *sendConn) writeSocket(p []byte) (int, error) {
	c.conn.SetWriteDeadline(time.Now().Add(c.window))
	n, err := c.conn.Write(p)
	c.conn.SetWriteDeadline(time.Time{})
	return n, err
}

// abort unblocks any in-flight handshake I/O without closing the socket;
// the socket stays owned by the accept side.
func (c *sendConn) abort() {
	c.conn.SetDeadline(time.Now())
}

// Close is called by the TLS engine when a handshake is interrupted. The
// session must never close the underlying socket, so only pending I/O is
// cut loose.
func (c *sendConn) Close() error {
	c.abort()
	return nil
}

func (c *sendConn) LocalAddr() net.Addr                { return c.conn.LocalAddr() }
func (c *sendConn) RemoteAddr() net.Addr               { return c.conn.RemoteAddr() }
func (c *sendConn) SetDeadline(t time.Time) error      { return c.conn.SetDeadline(t) }
func (c *sendConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *sendConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
