package daemon

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"spdytls/internal/common/logger"
	"spdytls/internal/common/network"
	"spdytls/internal/transport"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// tlsPrelude is the first bytes of a ClientHello handshake record:
// content type 0x16, legacy record version 3.1.
var tlsPrelude = []byte{0x16, 0x03, 0x01}

// Daemon owns the listening socket: it accepts connections, creates a TLS
// session for each one, drives the handshake and hands the established
// connection to the queue listener matching the negotiated protocol. The
// protocol servers above consume those listeners like any net.Listener.
type Daemon struct {
	lg       *zap.SugaredLogger
	config   *Config
	tctx     *transport.Context
	listener net.Listener
	// mapper holds one queue listener per advertised protocol
	mapper map[string]*network.QueueListener
	// fallback receives sessions whose peer negotiated nothing
	fallback string
}

// NewDaemon builds the daemon and its TLS context. A bad certificate or
// key pair fails here and the listener never starts.
func NewDaemon(ctx context.Context, rt *transport.Runtime, config *Config) (*Daemon, error) {
	lg := logger.FromContext(ctx).Named("daemon")

	protocols := config.Protocols
	if len(protocols) == 0 {
		protocols = transport.DefaultProtocols
	}

	tctx, err := transport.NewContext(rt, transport.ContextConfig{
		CertFile:  config.CertFile,
		KeyFile:   config.KeyFile,
		Protocols: protocols,
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialize TLS context")
	}

	address := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	listenerConfig := net.ListenConfig{}
	listener, err := listenerConfig.Listen(ctx, "tcp", address)
	if err != nil {
		tctx.Close()
		return nil, errors.Wrapf(err, "unable to start listener on %s", address)
	}
	lg.Infof("Listener started at %s", listener.Addr())

	mapper := make(map[string]*network.QueueListener, len(protocols))
	for _, proto := range protocols {
		mapper[proto] = network.NewQueueListener(listener.Addr())
	}

	return &Daemon{
		lg:       lg,
		config:   config,
		tctx:     tctx,
		listener: listener,
		mapper:   mapper,
		fallback: protocols[len(protocols)-1],
	}, nil
}

// ListenerFor returns the queue listener serving the given negotiated
// protocol, or nil if the daemon does not advertise it.
func (d *Daemon) ListenerFor(proto string) net.Listener {
	l, ok := d.mapper[proto]
	if !ok {
		return nil
	}
	return l
}

// Addr returns the daemon's listening address.
func (d *Daemon) Addr() net.Addr {
	return d.listener.Addr()
}

// Start serves until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(d.acceptLoop)
	g.Go(func() error {
		<-ctx.Done()
		if err := d.Close(); err != nil {
			d.lg.Warnf("Close listener: %v", err)
		}
		d.lg.Info("Stop listener")
		return nil
	})

	return g.Wait()
}

func (d *Daemon) acceptLoop() error {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "accept connection")
		}
		go d.handleConnection(conn)
	}
}

func (d *Daemon) handleConnection(conn net.Conn) {
	lg := d.lg
	lg.Debugf("New TCP connection from %s", conn.RemoteAddr())

	// non-TLS traffic is rejected before a session is spent on it
	conn.SetReadDeadline(time.Now().Add(routeTimeout))
	prelude := make([]byte, preludeLength)
	if _, err := io.ReadFull(conn, prelude); err != nil {
		lg.Debugf("Failed to read prelude from %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}
	if !bytes.Equal(prelude, tlsPrelude) {
		lg.Debugf("Not a TLS handshake from %s: %v", conn.RemoteAddr(), prelude)
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})
	prefixed := network.NewPrefixConn(prelude, conn)

	sess, err := d.tctx.NewSession(prefixed)
	if err != nil {
		lg.Errorf("Failed to create session for %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	// elapsed-time handshake budget; the core exposes no timers
	deadline := time.Now().Add(d.config.HandshakeTimeout)
	for {
		err := sess.Handshake()
		if err == nil {
			break
		}
		if errors.Is(err, transport.ErrAgain) {
			if time.Now().Before(deadline) {
				continue
			}
			lg.Debugf("Handshake timed out from %s", conn.RemoteAddr())
			sess.Close()
			conn.Close()
			return
		}
		lg.Debugf("Handshake failed from %s: %v", conn.RemoteAddr(), err)
		sess.Close()
		conn.Close()
		return
	}

	proto, ok := sess.Protocol()
	if !ok {
		proto = d.fallback
	}
	lg.Infof("New %s connection from %s", proto, conn.RemoteAddr())

	l, found := d.mapper[proto]
	if !found {
		lg.Debugf("No listener for protocol %q from %s", proto, conn.RemoteAddr())
		sess.Close()
		conn.Close()
		return
	}

	routed := newConn(sess, prefixed)
	select {
	case l.Queue() <- routed:
	case <-time.After(routeTimeout):
		lg.Warnf("Accept of %s connection from %s timed out on protocol listener", proto, conn.RemoteAddr())
		routed.Close()
	}
}

// Close shuts the main listener and every protocol listener down and
// releases the TLS context.
func (d *Daemon) Close() error {
	for proto, l := range d.mapper {
		if err := l.Close(); err != nil {
			d.lg.Warnf("Close %s listener: %v", proto, err)
		}
	}
	err := d.listener.Close()
	if cerr := d.tctx.Close(); cerr != nil {
		// sessions handed to protocol servers may still be draining
		d.lg.Warnf("Close TLS context: %v", cerr)
	}
	return err
}
