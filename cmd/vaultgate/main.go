package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "vaultgate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaultgate",
		Short: "Issue and check signed URLs",
		Long: `vaultgate mints time-limited signed URLs, checks them, and runs the server that
guards protected resources behind them. Keys are read from VAULTGATE_KEYS,
VAULTGATE_KEYS_FILE or VAULTGATE_SECRET_KEY_<VERSION>.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newSignCmd(),
		newVerifyCmd(),
		newKeysCmd(),
		newServeCmd(),
		newPublishCmd(),
	)
	return cmd
}
