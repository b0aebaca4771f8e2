package daemon

import (
	"net"
	"time"

	"spdytls/internal/transport"

	"github.com/go-faster/errors"
)

// Conn adapts an established session to net.Conn for the protocol servers
// behind the queue listeners. Read and Write re-drive the session on
// ErrAgain, so the servers above see ordinary blocking semantics.
type Conn struct {
	sess *transport.Session
	raw  net.Conn
}

func newConn(sess *transport.Session, raw net.Conn) *Conn {
	return &Conn{sess: sess, raw: raw}
}

// Session exposes the underlying session, e.g. for Pending checks.
func (c *Conn) Session() *transport.Session {
	return c.sess
}

func (c *Conn) Read(p []byte) (int, error) {
	idle := 0
	for {
		n, err := c.sess.Recv(p)
		if errors.Is(err, transport.ErrAgain) {
			idle = wait(idle)
			continue
		}
		return n, err
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	var written, idle int
	for written < len(p) {
		n, err := c.sess.Send(p[written:])
		written += n
		if errors.Is(err, transport.ErrAgain) {
			idle = wait(idle)
			continue
		}
		if err != nil {
			return written, err
		}
		idle = 0
	}
	return written, nil
}

// Close tears down the session, then the socket it was bound to.
func (c *Conn) Close() error {
	if err := c.sess.Close(); err != nil && !errors.Is(err, transport.ErrSessionClosed) {
		c.raw.Close()
		return err
	}
	return c.raw.Close()
}

func (c *Conn) LocalAddr() net.Addr  { return c.raw.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// Deadlines are managed per call by the session's poll window.
func (c *Conn) SetDeadline(t time.Time) error      { return nil }
func (c *Conn) SetReadDeadline(t time.Time) error  { return nil }
func (c *Conn) SetWriteDeadline(t time.Time) error { return nil }

// wait backs an idle retry loop off toward 20ms so a quiet connection
// does not spin on its poll window.
func wait(idle int) int {
	delay := time.Duration(idle+1) * time.Millisecond
	if delay > 20*time.Millisecond {
		delay = 20 * time.Millisecond
	}
	time.Sleep(delay)
	return idle + 1
}
