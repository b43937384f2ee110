package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/dharsanguruparan/CallLogCSV/internal/export"
	"github.com/dharsanguruparan/CallLogCSV/internal/model"
)

const headerEmpty = "X-Call-Log-Empty"

var validate = validator.New(validator.WithRequiredStructEnabled())

// callInput is one ingested row. Type and Date are pointers so a missing
// field can be told apart from code 0 or the epoch.
type callInput struct {
	Type     *int    `json:"type" validate:"required"`
	Number   string  `json:"number" validate:"max=64"`
	Name     *string `json:"name"`
	Date     *int64  `json:"date" validate:"required,gte=0"`
	Duration string  `json:"duration" validate:"max=32"`
}

func (in callInput) raw() model.RawCall {
	return model.RawCall{
		Type:       *in.Type,
		Number:     in.Number,
		CachedName: in.Name,
		Date:       *in.Date,
		Duration:   in.Duration,
	}
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	raws, err := s.calls.Calls(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list calls")
		s.respondError(w, http.StatusInternalServerError, "failed to read call log")
		return
	}
	s.respondJSON(w, http.StatusOK, model.NormalizeAll(raws))
}

func (s *Server) handleIngestCalls(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxIngestBytes)
	var inputs []callInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.respondError(w, http.StatusBadRequest, "expecting a JSON array of calls")
		return
	}
	calls := make([]model.RawCall, len(inputs))
	for i, in := range inputs {
		if err := validate.Struct(in); err != nil {
			s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("call %d: %v", i, err))
			return
		}
		calls[i] = in.raw()
	}
	n, err := s.calls.Insert(r.Context(), calls)
	if err != nil {
		s.logger.Error().Err(err).Int("stored", n).Msg("ingest calls")
		s.respondError(w, http.StatusInternalServerError, "failed to store calls")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]int{"stored": n})
}

// handleCallsCSV renders the call log synchronously. An empty log still
// returns the header line, flagged with X-Call-Log-Empty.
func (s *Server) handleCallsCSV(w http.ResponseWriter, r *http.Request) {
	doc, err := export.New(s.calls, s.formatter, s.logger).Document(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, export.Message(export.Result{}, err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(s.cfg.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Text)))
	if doc.NoRecords() {
		w.Header().Set(headerEmpty, "true")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Bytes()); err != nil {
		s.logger.Error().Err(err).Msg("write csv response")
	}
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
