package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CallLogCSV/internal/config"
	"github.com/dharsanguruparan/CallLogCSV/internal/database"
	"github.com/dharsanguruparan/CallLogCSV/internal/export"
	"github.com/dharsanguruparan/CallLogCSV/internal/logging"
	"github.com/dharsanguruparan/CallLogCSV/internal/repository"
	"github.com/dharsanguruparan/CallLogCSV/internal/s3storage"
	"github.com/dharsanguruparan/CallLogCSV/internal/sink"
	"github.com/dharsanguruparan/CallLogCSV/internal/source"
)

// Source kinds accepted by --source.
const (
	sourceJSON = "json"
	sourceADB  = "adb"
	sourceDB   = "db"
)

type exportOptions struct {
	source string
	input  string
	out    string
	tz     string
	locale string
	quote  string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the call log as CSV",
		Example: `  adb shell content query --uri content://call_log/calls | calllogcsv export --source adb --out call_log.csv
  calllogcsv export --source db --out s3://exports/today.csv --tz Asia/Bangkok`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.apply(cfg)
			return runExport(cmd, cfg, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.source, "source", sourceJSON, "call log source: json, adb or db")
	f.StringVarP(&opts.input, "input", "i", "-", "input file for json and adb sources (- for stdin)")
	f.StringVarP(&opts.out, "out", "o", "", "destination: a file path, - for stdout or s3://<key>")
	f.StringVar(&opts.tz, "tz", "", "IANA timezone for the Date column (default: local)")
	f.StringVar(&opts.locale, "locale", "", "locale for the Date column, e.g. th_TH.UTF-8 (default: from LANG)")
	f.StringVar(&opts.quote, "quote", "", "field quoting: none or rfc4180")
	return cmd
}

// apply lets flags override configuration values.
func (o exportOptions) apply(cfg *config.Config) {
	if o.tz != "" {
		cfg.Timezone = o.tz
	}
	if o.locale != "" {
		cfg.Locale = o.locale
	}
	if o.quote != "" {
		cfg.Quote = strings.ToLower(o.quote)
	}
}

func runExport(cmd *cobra.Command, cfg *config.Config, opts exportOptions) error {
	ctx := cmd.Context()
	logger := logging.Named("export")

	formatter, err := cfg.Formatter()
	if err != nil {
		return err
	}
	var objects sink.ObjectWriter
	if strings.HasPrefix(strings.TrimSpace(opts.out), "s3://") {
		store, err := s3storage.New(cfg)
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
		objects = store
	}
	dst, err := sink.ParseDestination(opts.out, cmd.OutOrStdout(), objects)
	if err != nil {
		if errors.Is(err, sink.ErrNoDestination) {
			fmt.Fprintln(cmd.ErrOrStderr(), export.MsgNoDestination)
		}
		return err
	}
	src, closeSrc, err := openSource(ctx, cfg, opts.source, opts.input)
	if err != nil {
		return err
	}
	defer closeSrc()

	res, err := export.New(src, formatter, logger).Run(ctx, dst)
	for _, msg := range export.Messages(res, err) {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}
	return err
}

// openSource builds the requested call log source. The returned func
// releases any connection it opened.
func openSource(ctx context.Context, cfg *config.Config, kind, input string) (source.Source, func(), error) {
	switch strings.ToLower(kind) {
	case sourceJSON:
		return source.NewJSONSource(source.FileOpener(input)), func() {}, nil
	case sourceADB:
		return source.NewContentQuerySource(source.FileOpener(input)), func() {}, nil
	case sourceDB:
		if err := cfg.RequireDatabase(); err != nil {
			return nil, nil, err
		}
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewCallRepository(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q (want json, adb or db)", kind)
	}
}
