package transport

import (
	"crypto/tls"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spdytls/internal/common/certgen"

	"github.com/go-faster/errors"
)

// writeCertFiles persists a fresh self-signed pair into a temp dir.
func writeCertFiles(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	certPEM, keyPEM, err := certgen.Generate("transport-test")
	if err != nil {
		t.Fatalf("certgen.Generate: %v", err)
	}
	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := certgen.WriteFiles(certFile, keyFile, certPEM, keyPEM); err != nil {
		t.Fatalf("certgen.WriteFiles: %v", err)
	}
	return certFile, keyFile
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// pair is a server session handshaken against a real TLS client over a
// loopback TCP connection.
type pair struct {
	sess   *Session
	client *tls.Conn
	raw    net.Conn
	tctx   *Context
	rt     *Runtime
}

func newPair(t *testing.T, serverProtos, clientProtos []string) *pair {
	t.Helper()

	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	certFile, keyFile := writeCertFiles(t)
	tctx, err := NewContext(rt, ContextConfig{
		CertFile:  certFile,
		KeyFile:   keyFile,
		Protocols: serverProtos,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	// registered before the pair's own cleanup so it runs after it
	t.Cleanup(func() {
		tctx.Close()
		rt.Close()
	})
	p := newPairOnContext(t, tctx, clientProtos)
	p.rt = rt
	return p
}

// newPairOnContext handshakes a new session and client over loopback TCP
// against an existing context. The context stays the caller's to close.
func newPairOnContext(t *testing.T, tctx *Context, clientProtos []string) *pair {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	type dialResult struct {
		client *tls.Conn
		err    error
	}
	dialCh := make(chan dialResult, 1)
	go func() {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			dialCh <- dialResult{err: err}
			return
		}
		client := tls.Client(conn, &tls.Config{
			InsecureSkipVerify: true,
			NextProtos:         clientProtos,
		})
		dialCh <- dialResult{client: client, err: client.Handshake()}
	}()

	raw, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	sess, err := tctx.NewSession(raw)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	driveHandshake(t, sess)

	res := <-dialCh
	if res.err != nil {
		t.Fatalf("client handshake: %v", res.err)
	}

	p := &pair{sess: sess, client: res.client, raw: raw, tctx: tctx}
	t.Cleanup(func() {
		p.sess.Close()
		p.raw.Close()
		p.client.Close()
	})
	return p
}

func driveHandshake(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		err := s.Handshake()
		if err == nil {
			return
		}
		if !errors.Is(err, ErrAgain) {
			t.Fatalf("Handshake: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("handshake did not finish in time")
		}
	}
}

// recvRetry drives Recv through ErrAgain until data, EOF or a fatal error.
func recvRetry(t *testing.T, s *Session, buf []byte) (int, error) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		n, err := s.Recv(buf)
		if !errors.Is(err, ErrAgain) {
			return n, err
		}
		if time.Now().After(deadline) {
			t.Fatal("Recv did not make progress in time")
		}
	}
}
