package http

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/shopspring/decimal"
)

type CreateCategoryRequest struct {
	Name  string     `json:"name" validate:"required,max=60"`
	Kind  model.Kind `json:"kind" validate:"required,oneof=income expense"`
	Color string     `json:"color" validate:"omitempty,hexcolor"`
}

type TransactionRequest struct {
	Description string          `json:"description" validate:"required,max=200"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        model.Kind      `json:"kind" validate:"required,oneof=income expense"`
	CategoryID  *int64          `json:"category_id" validate:"omitempty,gt=0"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

type PaymentRequest struct {
	Description string          `json:"description" validate:"required,max=200"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"due_date" validate:"required,datetime=2006-01-02"`
	CategoryID  *int64          `json:"category_id" validate:"omitempty,gt=0"`
}

type InstallmentRequest struct {
	Description  string          `json:"description" validate:"required,max=200"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Count        int             `json:"count" validate:"required,min=2,max=120"`
	FirstDueDate string          `json:"first_due_date" validate:"required,datetime=2006-01-02"`
	CategoryID   *int64          `json:"category_id" validate:"omitempty,gt=0"`
}

// PayRequest is optional on the pay endpoints; an empty body pays now
type PayRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.finance.ListCategories(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.finance.CreateCategory(r.Context(), req.Name, req.Kind, req.Color)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.finance.DeleteCategory(r.Context(), id); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
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
	if !to.IsZero() {
		// inclusive in the API, exclusive in the filter
		to = to.AddDate(0, 0, 1)
	}

	transactions, err := h.finance.ListTransactions(r.Context(), repository.TransactionFilter{
		From: from,
		To:   to,
		Kind: model.Kind(r.URL.Query().Get("kind")),
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, transactions)
}

func (h *Handler) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.finance.CreateTransaction(r.Context(), req.input())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.finance.GetTransaction(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (h *Handler) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req TransactionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.finance.UpdateTransaction(r.Context(), id, req.input())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (h *Handler) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.finance.DeleteTransaction(r.Context(), id); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.finance.ListPayments(r.Context(), model.PaymentStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, payments)
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	due, _ := parseDay(req.DueDate)

	p, err := h.finance.CreatePayment(r.Context(), service.PaymentInput{
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     due,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *Handler) handlePayPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	paidAt, ok := h.decodePayRequest(w, r)
	if !ok {
		return
	}

	p, err := h.finance.PayPayment(r.Context(), id, paidAt)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUnpayPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.finance.UnpayPayment(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.finance.DeletePayment(r.Context(), id); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	installments, err := h.finance.ListInstallments(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, installments)
}

func (h *Handler) handleCreateInstallment(w http.ResponseWriter, r *http.Request) {
	var req InstallmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	first, _ := parseDay(req.FirstDueDate)

	inst, err := h.finance.CreateInstallment(r.Context(), service.InstallmentInput{
		Description:  req.Description,
		TotalAmount:  req.TotalAmount,
		Count:        req.Count,
		FirstDueDate: first,
		CategoryID:   req.CategoryID,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, inst)
}

func (h *Handler) handleGetInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	inst, err := h.finance.GetInstallment(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, inst)
}

func (h *Handler) handleDeleteInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.finance.DeleteInstallment(r.Context(), id); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePayInstallmentItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseIDParam(r, "itemID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	paidAt, ok := h.decodePayRequest(w, r)
	if !ok {
		return
	}

	item, err := h.finance.PayInstallmentItem(r.Context(), itemID, paidAt)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

func (h *Handler) handleUnpayInstallmentItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseIDParam(r, "itemID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.finance.UnpayInstallmentItem(r.Context(), itemID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := parseIntQuery(r, "days", 30)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.finance.Upcoming(r.Context(), days)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.reports.Dashboard(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dash)
}

// decodePayRequest accepts an empty body or {"paid_at": ...}
func (h *Handler) decodePayRequest(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	if r.ContentLength == 0 {
		return nil, true
	}
	var req PayRequest
	if !h.decodeAndValidate(w, r, &req) {
		return nil, false
	}
	return req.PaidAt, true
}

func (req TransactionRequest) input() service.TransactionInput {
	date, _ := parseDay(req.Date)
	return service.TransactionInput{
		Description: req.Description,
		Amount:      req.Amount,
		Kind:        req.Kind,
		CategoryID:  req.CategoryID,
		Date:        date,
		Notes:       req.Notes,
	}
}
