package cmd

import (
	"context"
	"io"
	"net"
	"net/http"

	"spdytls/internal/common/logger"
	"spdytls/internal/daemon"
	"spdytls/internal/transport"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (c *Cmd) Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	lg := logger.FromContext(ctx)

	config, err := daemon.LoadConfig(c.ConfigFile)
	if err != nil {
		lg.Errorf("Failed to load config: %v", err)
		return err
	}
	c.applyFlags(cmd, config)

	if err := c.EnsureCertificate(cmd); err != nil {
		lg.Errorf("Failed to prepare certificate: %v", err)
		return err
	}
	config.CertFile = c.CertFile
	config.KeyFile = c.KeyFile

	rt, err := transport.NewRuntime()
	if err != nil {
		// a broken cryptographic runtime cannot be salvaged
		lg.Errorf("Failed to initialize crypto runtime: %v", err)
		return err
	}

	d, err := daemon.NewDaemon(ctx, rt, config)
	if err != nil {
		return errors.Wrap(err, "failed to initialize daemon")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Start(ctx) })

	// placeholder SPDY consumer until the framing engine lands: echoes
	// so negotiation is observable end to end
	if l := d.ListenerFor("spdy/3"); l != nil {
		g.Go(func() error { return serveEcho(ctx, l) })
	}

	// plain HTTP fallback for peers that negotiated http/1.1 or nothing
	if l := d.ListenerFor("http/1.1"); l != nil {
		g.Go(func() error { return serveFallback(ctx, l) })
	}

	err = g.Wait()
	if cerr := rt.Close(); cerr != nil {
		lg.Warnf("Close crypto runtime: %v", cerr)
	}
	return err
}

// applyFlags overrides file config with explicitly set flags.
func (c *Cmd) applyFlags(cmd *cobra.Command, config *daemon.Config) {
	fs := cmd.Flags()
	if fs.Changed("host") {
		config.Host = c.Host
	}
	if fs.Changed("port") {
		config.Port = c.Port
	}
	if fs.Changed("protocols") {
		config.Protocols = c.Protocols
	}
	if config.CertFile != "" && c.CertFile == "" {
		c.CertFile = config.CertFile
	}
	if config.KeyFile != "" && c.KeyFile == "" {
		c.KeyFile = config.KeyFile
	}
}

func serveEcho(ctx context.Context, l net.Listener) error {
	lg := logger.FromContext(ctx).Named("spdy")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return errors.Wrap(err, "accept spdy connection")
			}
			go func() {
				defer conn.Close()
				lg.Debugf("Echoing spdy/3 connection from %s", conn.RemoteAddr())
				io.Copy(conn, conn)
			}()
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		lg.Info("Stop spdy echo server")
		return nil
	})

	return g.Wait()
}

func serveFallback(ctx context.Context, l net.Listener) error {
	lg := logger.FromContext(ctx).Named("http")

	srv := &http.Server{Handler: fallbackHandler()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(l); err != nil {
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "serve HTTP fallback")
			}
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.Close()
		lg.Info("Stop HTTP fallback server")
		return nil
	})

	return g.Wait()
}

func fallbackHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "spdytls: http/1.1 fallback\n")
	})
	return mux
}
