package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// maxBodyBytes limits JSON bodies; backup imports get their own limit
const maxBodyBytes = 1 << 20

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func mapErrorToStatusCode(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError maps err to a status and hides internal failures
func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondWithError(w, code, "internal error")
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "validation failed"
		resp.Details = verr.Fields
	}
	respondWithJSON(w, code, resp)
}

// decodeAndValidate reads a JSON body into dst and runs the struct validator on it.
// It writes the 400 response itself and returns false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid request payload: %v", err))
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation failed",
				Details: formatValidationErrors(validationErrors),
			})
			return false
		}
		h.logger.Error("Unexpected validation error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal validation error")
		return false
	}
	return true
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "cpf":
			msg = "invalid CPF"
		case "oneof":
			msg = "must be one of: " + fe.Param()
		case "datetime":
			msg = "must match " + fe.Param()
		case "min", "gte":
			msg = "must be at least " + fe.Param()
		case "max", "lte":
			msg = "must be at most " + fe.Param()
		case "email":
			msg = "invalid e-mail"
		default:
			msg = "failed " + fe.Tag()
		}
		details[fe.Field()] = msg
	}
	return details
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

// parseDay parses a YYYY-MM-DD calendar day as UTC midnight, the form DATE columns use
func parseDay(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, strings.TrimSpace(s))
}

// parseOptionalDay parses query param name; an empty value yields the zero time
func parseOptionalDay(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := parseDay(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: use YYYY-MM-DD", name)
	}
	return t, nil
}

// parseDateInLoc reads query param name as a day in loc, defaulting to now
func parseDateInLoc(r *http.Request, name string, loc *time.Location, now time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return now.In(loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: use YYYY-MM-DD", name)
	}
	return t, nil
}

func parseIntQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return n, nil
}

func parseBoolQuery(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
