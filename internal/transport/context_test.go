package transport

import (
	"net"
	"testing"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt
}

func TestNewContextValidPair(t *testing.T) {
	rt := newTestRuntime(t)
	defer rt.Close()

	certFile, keyFile := writeCertFiles(t)
	tctx, err := NewContext(rt, ContextConfig{CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer tctx.Close()

	protos := tctx.Protocols()
	if len(protos) != 2 || protos[0] != "spdy/3" || protos[1] != "http/1.1" {
		t.Fatalf("unexpected default protocols: %v", protos)
	}
}

func TestNewContextMissingFiles(t *testing.T) {
	rt := newTestRuntime(t)

	if _, err := NewContext(rt, ContextConfig{CertFile: "no-such-cert.pem", KeyFile: "no-such-key.pem"}); err == nil {
		t.Fatal("expected error for missing files")
	}
	// a failed init must not leak a context registration
	if err := rt.Close(); err != nil {
		t.Fatalf("runtime Close: %v", err)
	}
}

func TestNewContextMalformedPair(t *testing.T) {
	rt := newTestRuntime(t)
	defer rt.Close()

	certFile := writeFile(t, "cert.pem", []byte("not a certificate"))
	keyFile := writeFile(t, "key.pem", []byte("not a key"))
	if _, err := NewContext(rt, ContextConfig{CertFile: certFile, KeyFile: keyFile}); err == nil {
		t.Fatal("expected error for malformed pair")
	}
}

func TestNewContextMismatchedPair(t *testing.T) {
	rt := newTestRuntime(t)
	defer rt.Close()

	certFile, _ := writeCertFiles(t)
	_, keyFile := writeCertFiles(t)
	if _, err := NewContext(rt, ContextConfig{CertFile: certFile, KeyFile: keyFile}); err == nil {
		t.Fatal("expected error for mismatched certificate and key")
	}
}

func TestContextCloseWithOpenSession(t *testing.T) {
	rt := newTestRuntime(t)
	defer rt.Close()

	certFile, keyFile := writeCertFiles(t)
	tctx, err := NewContext(rt, ContextConfig{CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sess, err := tctx.NewSession(server)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if err := tctx.Close(); err == nil {
		t.Fatal("expected error closing context with an open session")
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("session Close: %v", err)
	}
	if err := tctx.Close(); err != nil {
		t.Fatalf("context Close after session: %v", err)
	}
}

func TestNewSessionOnClosedContext(t *testing.T) {
	rt := newTestRuntime(t)
	defer rt.Close()

	certFile, keyFile := writeCertFiles(t)
	tctx, err := NewContext(rt, ContextConfig{CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if err := tctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	if _, err := tctx.NewSession(server); err == nil {
		t.Fatal("expected error creating session on closed context")
	}
}
