package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/CallLogCSV/internal/queue"
	"github.com/dharsanguruparan/CallLogCSV/internal/repository"
)

// ObjectKey is where the worker uploads the document for an export.
func ObjectKey(exportID string) string {
	return fmt.Sprintf("exports/%s.csv", exportID)
}

func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := uuid.NewString()
	exp := &repository.Export{ID: id, ObjectKey: ObjectKey(id)}
	if err := s.exports.Create(ctx, exp); err != nil {
		s.logger.Error().Err(err).Msg("create export")
		s.respondError(w, http.StatusInternalServerError, "failed to store export")
		return
	}
	payload := queue.ExportPayload{ExportID: id, ObjectKey: exp.ObjectKey}
	if err := queue.EnqueueExport(ctx, s.queue, payload); err != nil {
		s.logger.Error().Err(err).Str("export_id", id).Msg("enqueue export")
		s.respondError(w, http.StatusInternalServerError, "failed to queue export")
		return
	}
	w.Header().Set("Location", "/exports/"+id)
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": string(repository.StatusQueued),
	})
}

// loadExport resolves the {id} path parameter. It writes the error response
// itself and returns nil when the caller should stop.
func (s *Server) loadExport(w http.ResponseWriter, r *http.Request) *repository.Export {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		s.respondError(w, http.StatusNotFound, "export not found")
		return nil
	}
	exp, err := s.exports.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "export not found")
		return nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("export_id", id).Msg("load export")
		s.respondError(w, http.StatusInternalServerError, "failed to load export")
		return nil
	}
	return exp
}

// loadFinished is loadExport plus a check that the document exists.
func (s *Server) loadFinished(w http.ResponseWriter, r *http.Request) *repository.Export {
	exp := s.loadExport(w, r)
	if exp == nil {
		return nil
	}
	if !exp.Status.Done() {
		s.respondError(w, http.StatusConflict, fmt.Sprintf("export is %s", exp.Status))
		return nil
	}
	return exp
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	if exp := s.loadExport(w, r); exp != nil {
		s.respondJSON(w, http.StatusOK, exp)
	}
}

func (s *Server) handleExportURL(w http.ResponseWriter, r *http.Request) {
	exp := s.loadFinished(w, r)
	if exp == nil {
		return
	}
	u, err := s.objects.PresignExportURL(r.Context(), exp.ObjectKey, s.cfg.SignedURLTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("export_id", exp.ID).Msg("presign export")
		s.respondError(w, http.StatusInternalServerError, "failed to generate url")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"url": u})
}

func (s *Server) handleExportLink(w http.ResponseWriter, r *http.Request) {
	exp := s.loadFinished(w, r)
	if exp == nil {
		return
	}
	expires, sig := s.signer.Link(exp.ID, s.cfg.SignedURLTTL)
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", sig)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"url":     "/exports/" + exp.ID + "/download?" + q.Encode(),
		"expires": expires,
	})
}

func (s *Server) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	if !s.signer.Validate(id, q.Get("expires"), q.Get("sig")) {
		s.respondError(w, http.StatusForbidden, "invalid or expired link")
		return
	}
	exp := s.loadFinished(w, r)
	if exp == nil {
		return
	}
	data, err := s.objects.DownloadExport(r.Context(), exp.ObjectKey)
	if err != nil {
		s.logger.Error().Err(err).Str("export_id", exp.ID).Msg("download export")
		s.respondError(w, http.StatusBadGateway, "failed to read export")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(s.cfg.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if exp.Status == repository.StatusEmpty {
		w.Header().Set(headerEmpty, "true")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error().Err(err).Msg("write export response")
	}
}
