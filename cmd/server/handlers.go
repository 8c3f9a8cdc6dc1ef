package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"stockprovider/internal/aggregate"
	"stockprovider/internal/quote"
)

// stockService is the slice of the aggregator the handlers need.
type stockService interface {
	History(ctx context.Context, req aggregate.Request) (quote.Series, error)
	LastValue(ctx context.Context, symbol string) (quote.Series, error)
}

type handlers struct {
	svc stockService
	log zerolog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) handleDaily(w http.ResponseWriter, r *http.Request) {
	h.handleHistory(w, r, quote.Daily)
}

func (h *handlers) handleWeekly(w http.ResponseWriter, r *http.Request) {
	h.handleHistory(w, r, quote.Weekly)
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request, g quote.Granularity) {
	req := aggregate.Request{
		Symbol:      chi.URLParam(r, "ticker"),
		Granularity: g,
	}

	q := r.URL.Query()
	if v := q.Get("years"); v != "" {
		years, err := strconv.Atoi(v)
		if err != nil || years <= 0 {
			writeError(w, http.StatusBadRequest, "the 'years' parameter must be a positive integer")
			return
		}
		req.LookbackYears = years
	}
	var parseErr bool
	req.Start, parseErr = dateParam(q.Get("start"))
	if parseErr {
		writeError(w, http.StatusBadRequest, "the 'start' parameter must be YYYY-MM-DD")
		return
	}
	req.End, parseErr = dateParam(q.Get("end"))
	if parseErr {
		writeError(w, http.StatusBadRequest, "the 'end' parameter must be YYYY-MM-DD")
		return
	}
	// Default window, as documented: last 5 years.
	if req.LookbackYears == 0 && req.Start == nil && req.End == nil {
		req.LookbackYears = 5
	}

	series, err := h.svc.History(r.Context(), req)
	if err != nil {
		h.writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *handlers) handleLastValue(w http.ResponseWriter, r *http.Request) {
	series, err := h.svc.LastValue(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		h.writeOutcome(w, err)
		return
	}
	if len(series) == 0 {
		h.writeOutcome(w, quote.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// writeOutcome maps pipeline outcomes to status codes: InvalidInput to
// 400, NotFound to 404, UpstreamUnavailable to 503.
func (h *handlers) writeOutcome(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quote.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid ticker or parameters")
	case errors.Is(err, quote.ErrNotFound):
		writeError(w, http.StatusNotFound, "data not found")
	case errors.Is(err, quote.ErrUpstreamUnavailable):
		writeError(w, http.StatusServiceUnavailable, "error fetching data from upstream")
	default:
		h.log.Error().Err(err).Msg("unexpected pipeline error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func dateParam(v string) (*time.Time, bool) {
	if v == "" {
		return nil, false
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, true
	}
	return &t, false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
