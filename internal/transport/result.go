package transport

import (
	"io"
	"net"
	"os"
	"syscall"

	"github.com/go-faster/errors"
)

var (
	// ErrAgain means the operation could not make progress without
	// blocking. It is not a failure: the caller re-drives the whole
	// event cycle and calls again when the socket is ready. Callers
	// must never treat it as end-of-stream.
	ErrAgain = errors.New("operation would block, retry later")

	// ErrSessionClosed is returned by operations on a session that
	// already reached a terminal state.
	ErrSessionClosed = errors.New("session is closed")
)

// Code is the closed result vocabulary crossing the boundary to the
// protocol engine. Successful calls carry a byte count instead.
type Code int

const (
	// CodeClosed means the peer performed an orderly close.
	CodeClosed Code = 0
	// CodeError means an unrecoverable failure; the session must be closed.
	CodeError Code = -2
	// CodeAgain means no progress was possible without blocking.
	CodeAgain Code = -3
)

func (c Code) String() string {
	switch c {
	case CodeClosed:
		return "closed"
	case CodeError:
		return "error"
	case CodeAgain:
		return "again"
	default:
		return "unknown"
	}
}

// Classify maps a non-nil Recv/Send error into the closed code set. No
// library-specific error value crosses the engine boundary unclassified.
func Classify(err error) Code {
	switch {
	case errors.Is(err, io.EOF):
		return CodeClosed
	case errors.Is(err, ErrAgain):
		return CodeAgain
	default:
		return CodeError
	}
}

// isRetryable reports whether err only means the transport was not ready.
func isRetryable(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EWOULDBLOCK) ||
		errors.Is(err, syscall.EINTR)
}

// isPeerClosed reports whether err means the other party closed the
// connection, orderly or not distinguishable by the record layer.
func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
