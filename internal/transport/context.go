package transport

import (
	"crypto/tls"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// DefaultProtocols is the advertised negotiation list: SPDY first so a
// negotiating client picks it, plain HTTP as the fallback.
var DefaultProtocols = []string{"spdy/3", "http/1.1"}

// DefaultPollWindow bounds how long a single Recv or internal flush may
// wait on the socket before reporting ErrAgain.
const DefaultPollWindow = 2 * time.Millisecond

// ContextConfig describes one listening daemon's cryptographic material.
type ContextConfig struct {
	// CertFile is the path to the PEM server certificate chain.
	CertFile string
	// KeyFile is the path to the PEM private key matching CertFile.
	KeyFile string
	// Protocols is the ordered application protocol list offered during
	// negotiation. Defaults to DefaultProtocols.
	Protocols []string
	// PollWindow overrides DefaultPollWindow.
	PollWindow time.Duration
}

// Context carries a daemon's certificate, key and advertised protocols.
// It is read-only after construction and shared by every session created
// under it; it must outlive them all.
type Context struct {
	rt        *Runtime
	tlsConfig *tls.Config
	protocols []string
	window    time.Duration

	mu       sync.Mutex
	closed   bool
	sessions int
}

// NewContext builds a daemon context from a certificate and key file. A
// malformed or mismatched pair fails here, before the listener starts.
func NewContext(rt *Runtime, cfg ContextConfig) (*Context, error) {
	if rt == nil {
		return nil, errors.New("nil runtime")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "load certificate and key")
	}

	protocols := cfg.Protocols
	if len(protocols) == 0 {
		protocols = DefaultProtocols
	}
	protocols = append([]string(nil), protocols...)

	window := cfg.PollWindow
	if window <= 0 {
		window = DefaultPollWindow
	}

	if err := rt.register(); err != nil {
		return nil, err
	}

	return &Context{
		rt: rt,
		tlsConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   protocols,
			MinVersion:   tls.VersionTLS12,
		},
		protocols: protocols,
		window:    window,
	}, nil
}

// Protocols returns the advertised negotiation list in offer order.
func (c *Context) Protocols() []string {
	return append([]string(nil), c.protocols...)
}

// Close releases the context. It fails while any session created from it
// is still open.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("context already closed")
	}
	if c.sessions > 0 {
		return errors.Errorf("%d sessions still open", c.sessions)
	}
	c.closed = true
	c.rt.deregister()
	return nil
}

func (c *Context) addSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("context is closed")
	}
	c.sessions++
	return nil
}

func (c *Context) removeSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions--
}
