package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/go-chi/chi/v5"
)

// defaultSeriesMonths is the span of series and charts when from is omitted
const defaultSeriesMonths = 6

func periodType(r *http.Request) model.PeriodType {
	return model.PeriodType(chi.URLParam(r, "type"))
}

func (h *Handler) handleComputeReport(w http.ResponseWriter, r *http.Request) {
	at, err := parseDateInLoc(r, "date", h.loc, h.now())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := h.reports.Compute(r.Context(), periodType(r), at)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	at, err := parseDateInLoc(r, "date", h.loc, h.now())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := h.reports.Generate(r.Context(), periodType(r), at)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleStoredReports(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntQuery(r, "limit", 12)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	reports, err := h.reports.Stored(r.Context(), periodType(r), limit)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, reports)
}

func (h *Handler) handleReportSeries(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.seriesRange(w, r)
	if !ok {
		return
	}
	reports, err := h.reports.Series(r.Context(), periodType(r), from, to)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, reports)
}

func (h *Handler) handleReportChart(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.seriesRange(w, r)
	if !ok {
		return
	}
	png, err := h.reports.Chart(r.Context(), periodType(r), from, to)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// seriesRange reads from/to, defaulting to the last defaultSeriesMonths months
func (h *Handler) seriesRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	now := h.now()
	to, err := parseDateInLoc(r, "to", h.loc, now)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return from, to, false
	}
	from, err = parseDateInLoc(r, "from", h.loc, to.AddDate(0, -(defaultSeriesMonths-1), 0))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return from, to, false
	}
	return from, to, true
}
