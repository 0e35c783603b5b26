package main

import (
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/VaultGate/internal/config"
	"github.com/dharsanguruparan/VaultGate/internal/daemon"
	"github.com/dharsanguruparan/VaultGate/internal/logr"
)

func newServeCmd() *cobra.Command {
	var (
		logCfg  logr.Config
		address string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Address = address
			}
			logger, err := logr.New(logCfg)
			if err != nil {
				return err
			}
			return daemon.Run(cmd.Context(), logger, cfg)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listening address (defaults to VAULTGATE_ADDRESS)")
	logr.RegisterFlags(cmd.Flags(), &logCfg)
	return cmd
}
