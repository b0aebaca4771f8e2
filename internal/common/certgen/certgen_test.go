package certgen

import (
	"crypto/tls"
	"path/filepath"
	"testing"
)

func TestGenerateLoadsBack(t *testing.T) {
	certPEM, keyPEM, err := Generate("certgen-test")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	if err := WriteFiles(certPath, keyPath, certPEM, keyPEM); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadX509KeyPair: %v", err)
	}
	if len(cert.Certificate) == 0 {
		t.Fatal("loaded certificate is empty")
	}
}

func TestGenerateMismatchedPairRejected(t *testing.T) {
	certPEM, _, err := Generate("first")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, otherKeyPEM, err := Generate("second")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := tls.X509KeyPair(certPEM, otherKeyPEM); err == nil {
		t.Fatal("expected mismatched pair to be rejected")
	}
}
