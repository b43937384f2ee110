package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CallLogCSV/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opt := logging.FromEnv()
	if opt.Service == "" {
		opt.Service = "calllogcsv"
	}
	logging.Init(opt)

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "calllogcsv: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calllogcsv",
		Short: "Export a call log as CSV",
		Long: `calllogcsv reads a call log (a JSON dump, the text printed by
"adb shell content query --uri content://call_log/calls", or the PostgreSQL
store) and writes it as a CSV document to a file, stdout or object storage.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newExportCmd(),
		newImportCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
