package certgen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/go-faster/errors"
)

// Generate creates a self-signed server certificate for cn and returns the
// certificate and key as PEM blocks, ready to be persisted and loaded back
// through the file-based daemon context initialization.
func Generate(cn string) (certPEM, keyPEM []byte, err error) {
	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "generate private key")
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, nil, errors.Wrap(err, "generate serial number")
	}

	now := time.Now()
	template := &x509.Certificate{
		Subject: pkix.Name{
			CommonName: cn,
		},
		SerialNumber:          serial,
		NotBefore:             now.AddDate(0, 0, -1),
		NotAfter:              now.AddDate(0, 3, 0),
		BasicConstraintsValid: true,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature,
		DNSNames:              []string{"localhost", cn},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, privKey.Public(), privKey)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create certificate")
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshal private key")
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

// WriteFiles persists PEM blocks to certPath and keyPath. The key file is
// written with owner-only permissions.
func WriteFiles(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return errors.Wrap(err, "write certificate file")
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return errors.Wrap(err, "write key file")
	}
	return nil
}
