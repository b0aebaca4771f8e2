package transport

import (
	"crypto/rand"
	"sync"

	"github.com/go-faster/errors"
)

// Runtime is the process-wide cryptographic state. Exactly one instance is
// created before any daemon context and closed once, after every context
// and session is gone. Passing it explicitly to context construction
// enforces the lifecycle by construction order instead of ambient globals.
type Runtime struct {
	mu       sync.Mutex
	closed   bool
	contexts int
}

// NewRuntime verifies the cryptographic environment is usable. A process
// without a working entropy source cannot serve TLS, so the caller must
// abort startup on error.
func NewRuntime() (*Runtime, error) {
	var probe [16]byte
	if _, err := rand.Read(probe[:]); err != nil {
		return nil, errors.Wrap(err, "entropy source unavailable")
	}
	return &Runtime{}, nil
}

// Close releases the runtime. It fails while any daemon context created
// from it is still open.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("runtime already closed")
	}
	if r.contexts > 0 {
		return errors.Errorf("%d daemon contexts still open", r.contexts)
	}
	r.closed = true
	return nil
}

func (r *Runtime) register() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("runtime is closed")
	}
	r.contexts++
	return nil
}

func (r *Runtime) deregister() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts--
}
