package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/VaultGate/internal/config"
	"github.com/dharsanguruparan/VaultGate/internal/signing"
)

func newSignCmd() *cobra.Command {
	var (
		version string
		ttl     time.Duration
		expires int64
	)
	cmd := &cobra.Command{
		Use:   "sign URL",
		Short: "Print a signed URL for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if version == "" {
				version = cfg.SigningVersion
			}
			if !cmd.Flags().Changed("expires") {
				if ttl <= 0 {
					ttl = cfg.SignedURLTTL
				}
				expires = time.Now().Add(ttl).Unix()
			}
			signed, err := signing.NewSigner(cfg.Keys).Sign(args[0], expires, version)
			if err != nil {
				return fmt.Errorf("sign %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "Key version to sign with (defaults to VAULTGATE_SIGNING_VERSION)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Lifetime of the URL (defaults to VAULTGATE_SIGNED_TTL)")
	cmd.Flags().Int64Var(&expires, "expires", 0, "Absolute expiration in epoch seconds; overrides --ttl")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var now int64
	cmd := &cobra.Command{
		Use:   "verify URL",
		Short: "Check a signed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := config.LoadKeys()
			if err != nil {
				return err
			}
			at := time.Now()
			if cmd.Flags().Changed("now") {
				at = time.Unix(now, 0)
			}
			p, err := signing.NewVerifier(keys).Verify(args[0], at)
			if err != nil {
				return fmt.Errorf("rejected (%s): %w", signing.ReasonOf(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s valid until %s (key %s)\n",
				p.Resource, time.Unix(p.Expires, 0).UTC().Format(time.RFC3339), p.Version)
			return nil
		},
	}
	cmd.Flags().Int64Var(&now, "now", 0, "Check as of this epoch second instead of the current time")
	return cmd
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List configured key versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			for _, v := range cfg.Keys.Versions() {
				marker := " "
				if v == cfg.SigningVersion {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, v)
			}
			return nil
		},
	}
}
