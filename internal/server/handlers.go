package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kaimono/internal/metrics"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/query"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"records": s.Engine().Dataset().Len(),
	})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.Engine().Dataset().Info())
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"operations": query.Operations()})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	op, err := models.ParseOperation(chi.URLParam(r, "operation"))
	if err != nil {
		metrics.ObserveQuery("unknown", metrics.OutcomeInvalid, 0)
		s.respondError(w, http.StatusNotFound, err)
		return
	}

	var raw models.RawCriteria
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	} else {
		raw = rawFromQuery(r.URL.Query())
	}

	s.logger.Debug("query request",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("operation", string(op)),
	)
	start := time.Now()
	result, err := s.Engine().Run(r.Context(), op, raw)
	if err != nil {
		status := statusFor(err)
		outcome := metrics.OutcomeError
		if status == http.StatusBadRequest {
			outcome = metrics.OutcomeInvalid
		}
		metrics.ObserveQuery(string(op), outcome, time.Since(start))
		s.respondError(w, status, err)
		return
	}
	outcome := metrics.OutcomeMatched
	if result.Empty() {
		outcome = metrics.OutcomeEmpty
	}
	metrics.ObserveQuery(string(op), outcome, time.Since(start))
	s.respondJSON(w, http.StatusOK, result)
}

// rawFromQuery reads criteria from URL parameters named like the JSON body fields.
func rawFromQuery(q url.Values) models.RawCriteria {
	get := func(key string) models.Input { return models.Input(q.Get(key)) }
	return models.RawCriteria{
		Item:     get("item"),
		Color:    get("color"),
		Category: get("category"),
		Gender:   get("gender"),
		Size:     get("size"),
		Season:   get("season"),
		MinPrice: get("min_price"),
		MaxPrice: get("max_price"),
		MinAge:   get("min_age"),
		MaxAge:   get("max_age"),
		Rating:   get("rating"),
	}
}

func statusFor(err error) int {
	var ve *models.ValidationError
	var pe *models.ParseError
	switch {
	case errors.As(err, &ve), errors.As(err, &pe):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	body := errorResponse{Error: err.Error()}
	var ve *models.ValidationError
	var pe *models.ParseError
	switch {
	case errors.As(err, &ve):
		body.Field = ve.Field
	case errors.As(err, &pe):
		body.Field = pe.Field
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
		body.Error = http.StatusText(status)
	}
	s.respondJSON(w, status, body)
}
