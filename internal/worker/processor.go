package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/CallLogCSV/internal/export"
	"github.com/dharsanguruparan/CallLogCSV/internal/queue"
	"github.com/dharsanguruparan/CallLogCSV/internal/sink"
)

// ExportStore is the part of repository.ExportRepository the worker updates.
type ExportStore interface {
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, rows int) error
	MarkFailed(ctx context.Context, id string, msg string) error
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	exports  ExportStore
	exporter *export.Exporter
	objects  sink.ObjectWriter
	logger   *zerolog.Logger
	// lastAttempt reports whether asynq will not retry the task after this run.
	lastAttempt func(ctx context.Context) bool
}

// NewProcessor constructs a worker processor.
func NewProcessor(exports ExportStore, exporter *export.Exporter, objects sink.ObjectWriter, logger *zerolog.Logger) *Processor {
	return &Processor{exports: exports, exporter: exporter, objects: objects, logger: logger, lastAttempt: lastAttempt}
}

// lastAttempt reads the retry metadata asynq stores on the handler context.
// Contexts without it (the in-process pool, tests) run a task exactly once.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

// Handler registers the export job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ExportTask, p.HandleExport)
	return mux
}

// MsgShutdown is stored on exports abandoned by a stopping in-process pool.
const MsgShutdown = "Export cancelled: server shutting down"

// Abandon marks the export behind task failed without running it.
func (p *Processor) Abandon(ctx context.Context, task *asynq.Task) {
	payload, err := queue.DecodeExport(task)
	if err != nil {
		p.logger.Error().Err(err).Msg("abandon export task")
		return
	}
	if err := p.exports.MarkFailed(ctx, payload.ExportID, MsgShutdown); err != nil {
		p.logger.Error().Err(err).Str("export_id", payload.ExportID).Msg("mark abandoned export failed")
	}
}

// HandleExport writes one export to object storage and records the outcome.
func (p *Processor) HandleExport(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeExport(task)
	if err != nil {
		p.logger.Error().Err(err).Msg("drop export task")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	log := p.logger.With().Str("export_id", payload.ExportID).Logger()
	failure := func(err error, msg string) error {
		if !p.lastAttempt(ctx) {
			// The row stays "processing" until the retry settles it.
			log.Warn().Err(err).Msg("export attempt failed, retrying")
			return err
		}
		log.Error().Err(err).Msg("export failed")
		if markErr := p.exports.MarkFailed(ctx, payload.ExportID, msg); markErr != nil {
			log.Error().Err(markErr).Msg("mark export failed")
		}
		return err
	}
	if err := p.exports.MarkProcessing(ctx, payload.ExportID); err != nil {
		return failure(err, err.Error())
	}
	res, err := p.exporter.Run(ctx, sink.NewObjectSink(p.objects, payload.ObjectKey))
	if err != nil {
		return failure(err, export.Message(res, err))
	}
	if err := p.exports.MarkCompleted(ctx, payload.ExportID, res.Rows); err != nil {
		return failure(err, err.Error())
	}
	log.Info().Int("rows", res.Rows).Bool("no_records", res.NoRecords).Msg("export processed")
	return nil
}
