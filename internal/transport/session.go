package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/go-faster/errors"
)

type sessionState int

const (
	stateCreated sessionState = iota
	stateHandshaking
	stateEstablished
	stateClosed
	stateFailed
)

// Session is the TLS state machine for one accepted connection. It is
// created right after accept, reaches established through a handshake
// driven transparently by Recv and Send, and is closed exactly once by
// the connection's owner.
//
// A session belongs to exactly one connection goroutine: Recv calls must
// be sequential and so must Send calls. Different sessions are fully
// independent and share nothing beyond the read-only daemon context.
type Session struct {
	tctx   *Context
	raw    net.Conn
	sc     *sendConn
	engine Engine
	window time.Duration

	state sessionState

	hsStarted bool
	hsDone    chan struct{}
	hsErr     error
	hsCancel  context.CancelFunc

	proto      string
	negotiated bool

	// stash holds plaintext pulled off the engine by a Pending probe,
	// served to the next Recv ahead of the engine.
	stash []byte
}

// NewSession binds fresh TLS state to an already-accepted connection.
// Success does not mean the handshake is done: it completes across later
// Recv/Send calls, resuming every time one of them reports ErrAgain.
func (c *Context) NewSession(conn net.Conn) (*Session, error) {
	if conn == nil {
		return nil, errors.New("nil connection")
	}
	if err := c.addSession(); err != nil {
		return nil, err
	}
	sc := newSendConn(conn, c.window)
	return &Session{
		tctx:   c,
		raw:    conn,
		sc:     sc,
		engine: newStdEngine(sc, c.tlsConfig),
		window: c.window,
		hsDone: make(chan struct{}),
	}, nil
}

// Handshake drives the handshake one bounded step. It returns nil once
// the session is established, ErrAgain while negotiation is still in
// flight and a fatal error when the handshake failed. Recv and Send call
// it implicitly; the daemon may also call it directly to learn the
// negotiated protocol before handing the session to an engine.
func (s *Session) Handshake() error {
	switch s.state {
	case stateEstablished:
		return nil
	case stateClosed, stateFailed:
		return ErrSessionClosed
	}

	if !s.hsStarted {
		s.hsStarted = true
		s.state = stateHandshaking
		hctx, cancel := context.WithCancel(context.Background())
		s.hsCancel = cancel
		go func() {
			s.hsErr = s.engine.Handshake(hctx)
			close(s.hsDone)
		}()
	}

	// Records produced by the handshake may be sitting behind a
	// congested socket.
	if err := s.sc.flush(); err != nil {
		s.state = stateFailed
		return errors.Wrap(err, "handshake flush")
	}

	select {
	case <-s.hsDone:
		s.hsCancel()
	case <-time.After(s.window):
		return ErrAgain
	}

	if s.hsErr != nil {
		s.state = stateFailed
		if isPeerClosed(s.hsErr) {
			return io.EOF
		}
		return errors.Wrap(s.hsErr, "handshake")
	}
	s.state = stateEstablished
	s.proto = s.engine.Protocol()
	s.negotiated = s.proto != ""
	return nil
}

// Protocol returns the application protocol the peer selected during the
// handshake. ok is false before the handshake completes or when the peer
// negotiated nothing; the caller then falls back to its default protocol.
func (s *Session) Protocol() (proto string, ok bool) {
	if s.state != stateEstablished {
		return "", false
	}
	return s.proto, s.negotiated
}

// Recv copies up to len(buf) decrypted bytes into buf. The result is
// exactly one of: a positive count, (0, io.EOF) after an orderly peer
// close, (0, ErrAgain) when no progress is possible without blocking, or
// (0, err) on an unrecoverable failure after which the session must be
// closed. ErrAgain is never returned alongside data.
func (s *Session) Recv(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if err := s.Handshake(); err != nil {
		return 0, err
	}

	if len(s.stash) > 0 {
		n := copy(buf, s.stash)
		s.stash = s.stash[n:]
		if len(s.stash) == 0 {
			s.stash = nil
		}
		return n, nil
	}

	// A pending write may be what blocks the read side, e.g. during a
	// record-layer renegotiation.
	if err := s.sc.flush(); err != nil {
		s.state = stateFailed
		return 0, errors.Wrap(err, "recv flush")
	}

	s.raw.SetReadDeadline(time.Now().Add(s.window))
	n, err := s.engine.Read(buf)
	s.raw.SetReadDeadline(time.Time{})

	if n > 0 {
		return n, nil
	}
	switch {
	case err == nil:
		return 0, ErrAgain
	case isPeerClosed(err):
		return 0, io.EOF
	case isRetryable(err):
		return 0, ErrAgain
	default:
		s.state = stateFailed
		return 0, errors.Wrap(err, "recv")
	}
}

// Send encrypts up to len(buf) bytes toward the peer and reports how many
// were accepted. Partial writes are legal: the caller retries with the
// unsent tail. (0, ErrAgain) means the transport could not take a single
// byte; the same retry contract as Recv applies.
func (s *Session) Send(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if err := s.Handshake(); err != nil {
		return 0, err
	}

	if err := s.sc.flush(); err != nil {
		if isPeerClosed(err) {
			return 0, io.EOF
		}
		s.state = stateFailed
		return 0, errors.Wrap(err, "send flush")
	}
	if s.sc.buffered() > 0 {
		// Earlier records are still queued; taking more would grow the
		// backlog without bound.
		return 0, ErrAgain
	}

	n, err := s.engine.Write(buf)
	if err != nil {
		if n > 0 {
			return n, nil
		}
		switch {
		case isPeerClosed(err):
			return 0, io.EOF
		case isRetryable(err):
			return 0, ErrAgain
		default:
			s.state = stateFailed
			return 0, errors.Wrap(err, "send")
		}
	}
	return n, nil
}

// Pending reports whether decrypted bytes are already buffered inside the
// TLS layer, so the next Recv is guaranteed to return data without a new
// socket readiness event. Event loops must check it before sleeping, or
// buffered records would stall until an unrelated wakeup.
func (s *Session) Pending() bool {
	if s.state != stateEstablished {
		return false
	}
	if len(s.stash) > 0 {
		return true
	}

	// A deadline already in the past keeps the probe off the socket:
	// the engine only drains records it holds internally.
	s.raw.SetReadDeadline(time.Unix(1, 0))
	probe := make([]byte, 4096)
	n, _ := s.engine.Read(probe)
	s.raw.SetReadDeadline(time.Time{})

	if n > 0 {
		s.stash = append(s.stash, probe[:n]...)
	}
	return len(s.stash) > 0
}

// Close performs an orderly TLS shutdown, sending a close notification if
// the connection is still writable, and releases session state. It must
// be called exactly once; the underlying socket stays open and remains
// the caller's to close.
func (s *Session) Close() error {
	if s.state == stateClosed {
		return ErrSessionClosed
	}
	prev := s.state
	s.state = stateClosed

	if prev == stateHandshaking {
		s.hsCancel()
		s.sc.abort()
		<-s.hsDone
	}

	var notifyErr error
	if prev == stateEstablished {
		notifyErr = s.engine.CloseNotify()
		s.sc.flush()
	}

	s.stash = nil
	s.tctx.removeSession()

	if notifyErr != nil && !isRetryable(notifyErr) && !isPeerClosed(notifyErr) {
		return errors.Wrap(notifyErr, "close notify")
	}
	return nil
}
