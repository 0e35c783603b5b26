// Command server runs the VaultGate HTTP server configured entirely from
// VAULTGATE_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/VaultGate/internal/config"
	"github.com/dharsanguruparan/VaultGate/internal/daemon"
	"github.com/dharsanguruparan/VaultGate/internal/logr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logr.New(logr.Config{Verbosity: cfg.LogVerbosity, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := daemon.Run(ctx, logger, cfg); err != nil {
		logger.Error(err, "server stopped")
		os.Exit(1)
	}
}
