// Package export runs the linear flow behind every export: read the call log,
// normalise it, format it and hand the document to a sink in one write.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/CallLogCSV/internal/csvexport"
	"github.com/dharsanguruparan/CallLogCSV/internal/model"
	"github.com/dharsanguruparan/CallLogCSV/internal/sink"
	"github.com/dharsanguruparan/CallLogCSV/internal/source"
)

var (
	// ErrSourceUnavailable wraps failures reading the call log.
	ErrSourceUnavailable = errors.New("call log unavailable")
	// ErrWriteFailed wraps failures writing the document to the sink.
	ErrWriteFailed = errors.New("write failed")
)

// User-facing notices.
const (
	MsgSaved          = "Call log extracted and saved."
	MsgNoRecords      = "No call logs found."
	MsgNoPermission   = "Permissions not granted"
	MsgNoDestination  = "File not created"
	msgWriteErrPrefix = "Error writing file: "
	msgReadErrPrefix  = "Error reading call log: "
)

// Result describes a finished export.
type Result struct {
	Rows      int
	Bytes     int
	NoRecords bool
	Sink      string
}

// Exporter ties a call log source to a formatter.
type Exporter struct {
	source    source.Source
	formatter *csvexport.Formatter
	logger    *zerolog.Logger
}

// New constructs an Exporter.
func New(src source.Source, formatter *csvexport.Formatter, logger *zerolog.Logger) *Exporter {
	return &Exporter{source: src, formatter: formatter, logger: logger}
}

// Document reads and formats the call log without writing it anywhere.
func (e *Exporter) Document(ctx context.Context) (csvexport.Document, error) {
	raws, err := e.source.Calls(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("read call log")
		return csvexport.Document{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	doc := e.formatter.Format(model.NormalizeAll(raws))
	if doc.NoRecords() {
		e.logger.Info().Msg("call log is empty, exporting header only")
	}
	return doc, nil
}

// Run formats the call log and writes it to dst. An empty log still produces
// a header-only document; Result.NoRecords tells the caller to say so. A sink
// failure may leave a partial destination behind.
func (e *Exporter) Run(ctx context.Context, dst sink.Sink) (Result, error) {
	doc, err := e.Document(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Rows: doc.Rows, NoRecords: doc.NoRecords(), Sink: dst.Name()}
	data := doc.Bytes()
	if err := dst.Write(ctx, data); err != nil {
		e.logger.Error().Err(err).Str("sink", dst.Name()).Msg("write export")
		return res, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	res.Bytes = len(data)
	e.logger.Info().
		Int("rows", res.Rows).
		Int("bytes", res.Bytes).
		Str("sink", res.Sink).
		Msg("export written")
	return res, nil
}

// Message turns the outcome of Run into the notice shown to the user.
func Message(res Result, err error) string {
	switch {
	case err == nil && res.NoRecords:
		return MsgNoRecords
	case err == nil:
		return MsgSaved
	case errors.Is(err, sink.ErrNoDestination):
		return MsgNoDestination
	case errors.Is(err, ErrSourceUnavailable) && errors.Is(err, os.ErrPermission):
		return MsgNoPermission
	case errors.Is(err, ErrSourceUnavailable):
		return msgReadErrPrefix + detail(err)
	default:
		return msgWriteErrPrefix + detail(err)
	}
}

// Messages returns every notice for the outcome of Run, in display order. An
// empty log gets the no-records notice followed by the saved notice, since
// the header-only document is still written.
func Messages(res Result, err error) []string {
	if err == nil && res.NoRecords {
		return []string{MsgNoRecords, MsgSaved}
	}
	return []string{Message(res, err)}
}

// detail drops the sentinel prefix added by Run and keeps the cause.
func detail(err error) string {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := multi.Unwrap(); len(errs) > 0 {
			return errs[len(errs)-1].Error()
		}
	}
	return err.Error()
}
