package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CallLogCSV/internal/config"
	"github.com/dharsanguruparan/CallLogCSV/internal/database"
	"github.com/dharsanguruparan/CallLogCSV/internal/logging"
	"github.com/dharsanguruparan/CallLogCSV/internal/repository"
)

func newImportCmd() *cobra.Command {
	var kind, input string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a call log dump into PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.Named("import")
			if k := strings.ToLower(kind); k != sourceJSON && k != sourceADB {
				return fmt.Errorf("unknown source %q (want json or adb)", kind)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			src, _, err := openSource(ctx, cfg, kind, input)
			if err != nil {
				return err
			}
			calls, err := src.Calls(ctx)
			if err != nil {
				return err
			}

			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return err
			}
			n, err := repository.NewCallRepository(pool).Insert(ctx, calls)
			if err != nil {
				return err
			}
			logger.Info().Int("calls", n).Str("source", kind).Msg("import finished")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d calls\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "source", sourceJSON, "dump format: json or adb")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "input file (- for stdin)")
	return cmd
}
