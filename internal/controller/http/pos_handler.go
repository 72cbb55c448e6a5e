package http

import (
	"net/http"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/shopspring/decimal"
)

type FiliadoRequest struct {
	Name   string `json:"name" validate:"required,max=120"`
	CPF    string `json:"cpf" validate:"required,cpf"`
	CR     string `json:"cr" validate:"max=40"`
	Phone  string `json:"phone" validate:"max=30"`
	Email  string `json:"email" validate:"omitempty,email"`
	Active *bool  `json:"active"`
}

type ProdutoRequest struct {
	Name       string                `json:"name" validate:"required,max=120"`
	Category   model.ProdutoCategory `json:"category" validate:"required,oneof=municao arma pista alvo outros"`
	Price      decimal.Decimal       `json:"price"`
	TrackStock bool                  `json:"track_stock"`
	Stock      int                   `json:"stock" validate:"gte=0"`
	Active     *bool                 `json:"active"`
}

type OpenComandaRequest struct {
	FiliadoID    *int64 `json:"filiado_id" validate:"omitempty,gt=0"`
	CustomerName string `json:"customer_name" validate:"max=120"`
}

type AddItemRequest struct {
	ProdutoID int64 `json:"produto_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type CloseComandaRequest struct {
	PaymentMethod model.PaymentMethod `json:"payment_method" validate:"required,oneof=dinheiro pix debito credito"`
	Discount      decimal.Decimal     `json:"discount"`
}

func (h *Handler) handleListFiliados(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("cpf"); raw != "" {
		fl, err := h.pos.FindFiliadoByCPF(r.Context(), raw)
		if err != nil {
			h.respondWithServiceError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, []*model.Filiado{fl})
		return
	}

	list, err := h.pos.ListFiliados(r.Context(), parseBoolQuery(r, "active"))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateFiliado(w http.ResponseWriter, r *http.Request) {
	var req FiliadoRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	fl, err := h.pos.CreateFiliado(r.Context(), req.input())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, fl)
}

func (h *Handler) handleGetFiliado(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	fl, err := h.pos.GetFiliado(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, fl)
}

func (h *Handler) handleUpdateFiliado(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req FiliadoRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	fl, err := h.pos.UpdateFiliado(r.Context(), id, req.input())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, fl)
}

func (h *Handler) handleListProdutos(w http.ResponseWriter, r *http.Request) {
	list, err := h.pos.ListProdutos(r.Context(), parseBoolQuery(r, "active"))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateProduto(w http.ResponseWriter, r *http.Request) {
	var req ProdutoRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.pos.CreateProduto(r.Context(), req.input())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdateProduto(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ProdutoRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.pos.UpdateProduto(r.Context(), id, req.input())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) handleListComandas(w http.ResponseWriter, r *http.Request) {
	list, err := h.pos.ListComandas(r.Context(), model.ComandaStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) handleOpenComanda(w http.ResponseWriter, r *http.Request) {
	var req OpenComandaRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.pos.OpenComanda(r.Context(), req.FiliadoID, req.CustomerName)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGetComanda(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.pos.GetComanda(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req AddItemRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.pos.AddItem(r.Context(), id, req.ProdutoID, req.Quantity)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := parseIDParam(r, "itemID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.pos.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) handleCloseComanda(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req CloseComandaRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.pos.CloseComanda(r.Context(), id, req.PaymentMethod, req.Discount)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) handleCancelComanda(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.pos.CancelComanda(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateInLoc(r, "date", h.loc, h.now())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	sum, err := h.pos.DailySummary(r.Context(), date)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sum)
}

func (req FiliadoRequest) input() service.FiliadoInput {
	return service.FiliadoInput{
		Name:   req.Name,
		CPF:    req.CPF,
		CR:     req.CR,
		Phone:  req.Phone,
		Email:  req.Email,
		Active: req.Active == nil || *req.Active,
	}
}

func (req ProdutoRequest) input() service.ProdutoInput {
	return service.ProdutoInput{
		Name:       req.Name,
		Category:   req.Category,
		Price:      req.Price,
		TrackStock: req.TrackStock,
		Stock:      req.Stock,
		Active:     req.Active == nil || *req.Active,
	}
}
