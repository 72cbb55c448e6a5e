package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxImportBytes bounds an uploaded backup export
const maxImportBytes = 64 << 20

type CreateBackupRequest struct {
	Reason model.BackupReason `json:"reason" validate:"omitempty,oneof=manual auto"`
}

func (h *Handler) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backups.List(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, backups)
}

func (h *Handler) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	req := CreateBackupRequest{Reason: model.BackupReasonManual}
	if r.ContentLength != 0 && !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = model.BackupReasonManual
	}

	b, err := h.backups.Create(r.Context(), req.Reason)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, b)
}

func (h *Handler) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid id parameter")
		return
	}
	res, err := h.backups.Restore(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRestoreLatest(w http.ResponseWriter, r *http.Request) {
	res, err := h.backups.RestoreLatest(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid id parameter")
		return
	}

	// buffered so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.backups.Export(r.Context(), id, &buf); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="backup-%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	b, err := h.backups.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, b)
}

func (h *Handler) handlePruneBackups(w http.ResponseWriter, r *http.Request) {
	keep, err := parseIntQuery(r, "keep", 0)
	if err != nil || keep < 1 {
		respondWithError(w, http.StatusBadRequest, "keep must be a positive integer")
		return
	}
	res, err := h.backups.Prune(r.Context(), keep)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}
