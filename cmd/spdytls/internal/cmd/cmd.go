package cmd

import (
	"fmt"
	"path/filepath"

	"spdytls/internal/common/certgen"
	"spdytls/internal/common/logger"
	"spdytls/internal/common/validators"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Cmd struct {
	Host       string
	Port       int
	CertFile   string
	KeyFile    string
	ConfigFile string
	Protocols  []string
	Debug      bool
}

func (c *Cmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Host, "host", "0.0.0.0", "listener host")
	fs.IntVar(&c.Port, "port", 8443, "listener port")
	fs.StringVarP(&c.CertFile, "tls-cert", "c", "", "TLS certificate path")
	fs.StringVarP(&c.KeyFile, "tls-key", "k", "", "TLS key path")
	fs.StringVarP(&c.ConfigFile, "config", "f", "spdytls.yaml", "config file path")
	fs.StringSliceVar(&c.Protocols, "protocols", nil, "advertised protocols in offer order")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logging")
}

func (c *Cmd) PreRunE(cmd *cobra.Command, args []string) error {
	if c.Debug {
		logger.SetDebug()
	}

	if !validators.ValidatePort(c.Port) {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if !validators.ValidateHost(c.Host) {
		return fmt.Errorf("invalid host: %s", c.Host)
	}
	if c.CertFile != "" && !validators.ValidateFileExists(c.CertFile) {
		return fmt.Errorf("invalid tls cert path: %s", c.CertFile)
	}
	if c.KeyFile != "" && !validators.ValidateFileExists(c.KeyFile) {
		return fmt.Errorf("invalid tls key path: %s", c.KeyFile)
	}
	return nil
}

// EnsureCertificate generates and persists a self-signed pair next to the
// config file when no certificate was configured, so the file-based
// context init always has input.
func (c *Cmd) EnsureCertificate(cmd *cobra.Command) error {
	if c.CertFile != "" && c.KeyFile != "" {
		return nil
	}
	lg := logger.FromContext(cmd.Context()).Named("cmd")

	dir := filepath.Dir(c.ConfigFile)
	certPath := filepath.Join(dir, "spdytls-cert.pem")
	keyPath := filepath.Join(dir, "spdytls-key.pem")

	if !validators.ValidateFileExists(certPath) || !validators.ValidateFileExists(keyPath) {
		certPEM, keyPEM, err := certgen.Generate("spdytls")
		if err != nil {
			return err
		}
		if err := certgen.WriteFiles(certPath, keyPath, certPEM, keyPEM); err != nil {
			return err
		}
		lg.Infof("Generated self-signed certificate at %s", certPath)
	}

	c.CertFile = certPath
	c.KeyFile = keyPath
	return nil
}
