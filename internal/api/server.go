// Package api exposes the call log and its exports over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/CallLogCSV/internal/config"
	"github.com/dharsanguruparan/CallLogCSV/internal/csvexport"
	"github.com/dharsanguruparan/CallLogCSV/internal/model"
	"github.com/dharsanguruparan/CallLogCSV/internal/queue"
	"github.com/dharsanguruparan/CallLogCSV/internal/repository"
	"github.com/dharsanguruparan/CallLogCSV/internal/signing"
)

// CallStore is the part of repository.CallRepository the API needs.
type CallStore interface {
	Calls(ctx context.Context) ([]model.RawCall, error)
	Insert(ctx context.Context, calls []model.RawCall) (int, error)
}

// ExportStore is the part of repository.ExportRepository the API needs.
type ExportStore interface {
	Create(ctx context.Context, exp *repository.Export) error
	Get(ctx context.Context, id string) (*repository.Export, error)
}

// ObjectStore reads finished exports back out of object storage.
type ObjectStore interface {
	DownloadExport(ctx context.Context, objectKey string) ([]byte, error)
	PresignExportURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// Server exposes HTTP endpoints for the call log and background exports.
type Server struct {
	cfg       *config.Config
	formatter *csvexport.Formatter
	calls     CallStore
	exports   ExportStore
	objects   ObjectStore
	queue     queue.Enqueuer
	signer    *signing.Signer
	logger    *zerolog.Logger
	server    *http.Server
	once      sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, formatter *csvexport.Formatter, calls CallStore, exports ExportStore, objects ObjectStore, enqueuer queue.Enqueuer, logger *zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		formatter: formatter,
		calls:     calls,
		exports:   exports,
		objects:   objects,
		queue:     enqueuer,
		signer:    signing.NewSigner(cfg.SigningSecret),
		logger:    logger,
	}
}

// Routes builds the chi router. Run serves it; tests call it directly.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.RequestID, chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", headerEmpty},
		MaxAge:         300,
	}))
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Get("/calls", s.handleListCalls)
	r.Post("/calls", s.handleIngestCalls)
	r.Get("/calls.csv", s.handleCallsCSV)
	r.Route("/exports", func(r chi.Router) {
		r.Post("/", s.handleCreateExport)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetExport)
			r.Get("/url", s.handleExportURL)
			r.Get("/link", s.handleExportLink)
			r.Get("/download", s.handleExportDownload)
		})
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info().Str("addr", s.cfg.Address).Msg("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Dur("elapsed", time.Since(start)).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("request done")
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
