package http

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/service"
)

type ProfessorRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"omitempty,email"`
	CPF        string `json:"cpf" validate:"required,cpf"`
	Department string `json:"department" validate:"max=120"`
	External   bool   `json:"external"`
}

// DefenseRequest mirrors the request form: the date and the start time are separate fields
type DefenseRequest struct {
	StudentName  string                `json:"student_name" validate:"required,max=120"`
	StudentCPF   string                `json:"student_cpf" validate:"required,cpf"`
	Registration string                `json:"registration" validate:"required,max=30"`
	Program      string                `json:"program" validate:"required,max=120"`
	Kind         model.DefenseKind     `json:"kind" validate:"required,oneof=tcc mestrado doutorado"`
	Title        string                `json:"title" validate:"required,max=300"`
	AdvisorID    int64                 `json:"advisor_id" validate:"required,gt=0"`
	MemberIDs    []int64               `json:"member_ids" validate:"required,min=1,dive,gt=0"`
	Date         string                `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string                `json:"start_time" validate:"required,datetime=15:04"`
	Modality     model.DefenseModality `json:"modality" validate:"required,oneof=presencial remota"`
	Room         string                `json:"room" validate:"required_if=Modality presencial,max=60"`
}

func (h *Handler) handleListProfessors(w http.ResponseWriter, r *http.Request) {
	list, err := h.defense.ListProfessors(r.Context(), parseBoolQuery(r, "active"))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateProfessor(w http.ResponseWriter, r *http.Request) {
	var req ProfessorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.defense.CreateProfessor(r.Context(), service.ProfessorInput{
		Name:       req.Name,
		Email:      req.Email,
		CPF:        req.CPF,
		Department: req.Department,
		External:   req.External,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleListDefenses(w http.ResponseWriter, r *http.Request) {
	from, err := parseOptionalDay(r, "from")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseOptionalDay(r, "to")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	// calendar days in the configured zone, to inclusive
	if !from.IsZero() {
		from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, h.loc)
	}
	if !to.IsZero() {
		to = time.Date(to.Year(), to.Month(), to.Day()+1, 0, 0, 0, 0, h.loc)
	}

	list, err := h.defense.ListDefenses(r.Context(), from, to, model.DefenseStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) handleScheduleDefense(w http.ResponseWriter, r *http.Request) {
	var req DefenseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	startsAt, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.StartTime, h.loc)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date or start_time")
		return
	}

	d, err := h.defense.Schedule(r.Context(), service.DefenseInput{
		StudentName:  req.StudentName,
		StudentCPF:   req.StudentCPF,
		Registration: req.Registration,
		Program:      req.Program,
		Kind:         req.Kind,
		Title:        req.Title,
		AdvisorID:    req.AdvisorID,
		MemberIDs:    req.MemberIDs,
		StartsAt:     startsAt,
		Modality:     req.Modality,
		Room:         req.Room,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleGetDefense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.defense.GetDefense(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}

func (h *Handler) handleConfirmDefense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.defense.Confirm(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}

func (h *Handler) handleCancelDefense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.defense.Cancel(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}
