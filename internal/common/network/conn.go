package network

import (
	"net"
	"time"
)

// PrefixConn is a net.Conn with some bytes of the stream already consumed
// by a peek; Read re-injects them ahead of the socket.
type PrefixConn struct {
	// prefix holds data already read from the begin of the stream
	prefix []byte
	conn   net.Conn
}

// NewPrefixConn creates new connection with an already read prefix
func NewPrefixConn(prefix []byte, conn net.Conn) *PrefixConn {
	return &PrefixConn{
		prefix: prefix,
		conn:   conn,
	}
}

func (p *PrefixConn) Read(data []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(data, p.prefix)
		p.prefix = p.prefix[n:]
		return n, nil
	}
	return p.conn.Read(data)
}

func (p *PrefixConn) Write(data []byte) (int, error) {
	return p.conn.Write(data)
}

func (p *PrefixConn) Close() error {
	return p.conn.Close()
}

func (p *PrefixConn) LocalAddr() net.Addr {
	return p.conn.LocalAddr()
}

func (p *PrefixConn) RemoteAddr() net.Addr {
	return p.conn.RemoteAddr()
}

func (p *PrefixConn) SetDeadline(t time.Time) error {
	return p.conn.SetDeadline(t)
}

func (p *PrefixConn) SetReadDeadline(t time.Time) error {
	return p.conn.SetReadDeadline(t)
}

func (p *PrefixConn) SetWriteDeadline(t time.Time) error {
	return p.conn.SetWriteDeadline(t)
}
