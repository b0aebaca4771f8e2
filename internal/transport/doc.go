// Package transport terminates TLS on accepted connections and exposes
// the non-blocking I/O contract the protocol engine above is built
// against: Recv, Send, Pending and Close on a per-connection Session,
// created under a per-listener Context, created under a process-wide
// Runtime.
//
// Every Recv and Send resolves to exactly one of four outcomes: a
// positive byte count, io.EOF after an orderly peer close, ErrAgain when
// retrying later is required, or a fatal error after which the session
// must be closed. ErrAgain is ordinary control flow, not a failure; the
// event loop re-checks readiness (and Pending, for plaintext already
// buffered inside the TLS layer) and calls again.
//
// The cryptographic backend sits behind the Engine interface, so the
// protocol layers never depend on a specific TLS library's types.
package transport
