package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"spdytls/cmd/spdytls/internal/cmd"
	"spdytls/internal/common/logger"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg, err := logger.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	ctx = logger.WithLogger(ctx, lg)

	c := &cmd.Cmd{}

	appRoot := &cobra.Command{
		Use:   "spdytls [command]",
		Short: "TLS transport daemon with SPDY protocol negotiation",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	appStart := &cobra.Command{
		Use:     "start [flags]",
		Short:   "Start the TLS daemon",
		PreRunE: c.PreRunE,
		RunE:    c.Run,
	}
	c.RegisterFlags(appStart.Flags())
	appRoot.AddCommand(appStart)

	if err := appRoot.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
