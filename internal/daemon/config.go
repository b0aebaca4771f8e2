package daemon

import (
	"os"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second

	// routeTimeout bounds the wait for a protocol listener to accept a
	// routed connection.
	routeTimeout = 2 * time.Second

	// preludeLength is the number of bytes peeked off a new connection
	// to verify it opens with a TLS handshake record.
	preludeLength = 3
)

// Config holds everything needed to run one TLS daemon.
type Config struct {
	// Host to listen on
	Host string
	// Port to listen on
	Port int
	// CertFile is the PEM server certificate path
	CertFile string
	// KeyFile is the PEM private key path
	KeyFile string
	// Protocols advertised during negotiation, in offer order
	Protocols []string
	// HandshakeTimeout is the elapsed-time budget for a handshake; the
	// transport core itself carries no timers
	HandshakeTimeout time.Duration
}

// fileConfig is the YAML shape of Config; the timeout is in seconds.
type fileConfig struct {
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	CertFile         string   `yaml:"cert_file"`
	KeyFile          string   `yaml:"key_file"`
	Protocols        []string `yaml:"protocols"`
	HandshakeTimeout int      `yaml:"handshake_timeout"`
}

// LoadConfig reads a YAML daemon config. A missing file yields defaults,
// so running without a config file is valid.
func LoadConfig(path string) (*Config, error) {
	fc := &fileConfig{
		Host: "0.0.0.0",
		Port: 8443,
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read config file")
	}
	if err == nil {
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, errors.Wrap(err, "parse config file")
		}
	}

	cfg := &Config{
		Host:             fc.Host,
		Port:             fc.Port,
		CertFile:         fc.CertFile,
		KeyFile:          fc.KeyFile,
		Protocols:        fc.Protocols,
		HandshakeTimeout: time.Duration(fc.HandshakeTimeout) * time.Second,
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return cfg, nil
}
