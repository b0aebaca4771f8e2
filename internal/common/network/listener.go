package network

import (
	"net"
	"sync"
)

// QueueListener implements net.Listener over a channel of routed
// connections. The daemon feeds it with established sessions for one
// negotiated protocol.
type QueueListener struct {
	addr  net.Addr
	queue chan net.Conn
	done  chan struct{}
	once  sync.Once
}

// NewQueueListener returns a listener fed through Queue
func NewQueueListener(addr net.Addr) *QueueListener {
	return &QueueListener{
		addr:  addr,
		queue: make(chan net.Conn),
		done:  make(chan struct{}),
	}
}

// Queue returns the channel the daemon delivers connections on
func (l *QueueListener) Queue() chan<- net.Conn {
	return l.queue
}

// Accept waits for the next routed connection
func (l *QueueListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.queue:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *QueueListener) Close() error {
	l.once.Do(func() {
		close(l.done)
	})
	return nil
}

func (l *QueueListener) Addr() net.Addr {
	return l.addr
}
