package transport

import (
	"context"
	"crypto/tls"
	"net"
)

// Engine is the capability set a cryptographic backend must provide:
// handshake with protocol negotiation, record encryption and decryption,
// and an orderly shutdown notification. Session logic is written against
// this interface only, so the backend can be swapped without touching the
// protocol layers above.
type Engine interface {
	// Handshake runs the cryptographic handshake to completion.
	Handshake(ctx context.Context) error
	// Protocol returns the negotiated application protocol, or ""
	// when the peer negotiated nothing.
	Protocol() string
	// Read copies decrypted bytes into p.
	Read(p []byte) (int, error)
	// Write encrypts p into the record layer.
	Write(p []byte) (int, error)
	// CloseNotify tells the peer the secure channel is going away.
	// It must not close the underlying transport.
	CloseNotify() error
}

// stdEngine adapts crypto/tls as the server-side backend.
type stdEngine struct {
	conn *tls.Conn
}

func newStdEngine(raw net.Conn, cfg *tls.Config) *stdEngine {
	return &stdEngine{conn: tls.Server(raw, cfg)}
}

func (e *stdEngine) Handshake(ctx context.Context) error {
	return e.conn.HandshakeContext(ctx)
}

func (e *stdEngine) Protocol() string {
	return e.conn.ConnectionState().NegotiatedProtocol
}

func (e *stdEngine) Read(p []byte) (int, error) {
	return e.conn.Read(p)
}

func (e *stdEngine) Write(p []byte) (int, error) {
	return e.conn.Write(p)
}

func (e *stdEngine) CloseNotify() error {
	return e.conn.CloseWrite()
}
