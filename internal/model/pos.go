package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filiado is a club member.
type Filiado struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CPF       string    `json:"cpf"` // 11 digits, no mask
	CR        string    `json:"cr"`  // registry certificate (CR)
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type ProdutoCategory string

const (
	ProdutoMunicao ProdutoCategory = "municao"
	ProdutoArma    ProdutoCategory = "arma"
	ProdutoPista   ProdutoCategory = "pista"
	ProdutoAlvo    ProdutoCategory = "alvo"
	ProdutoOutros  ProdutoCategory = "outros"
)

// Valid checks the category is known
func (c ProdutoCategory) Valid() bool {
	switch c {
	case ProdutoMunicao, ProdutoArma, ProdutoPista, ProdutoAlvo, ProdutoOutros:
		return true
	}
	return false
}

type Produto struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Category   ProdutoCategory `json:"category"`
	Price      decimal.Decimal `json:"price"`
	TrackStock bool            `json:"track_stock"`
	Stock      int             `json:"stock"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ComandaStatus string

const (
	ComandaAberta    ComandaStatus = "aberta"
	ComandaFechada   ComandaStatus = "fechada"
	ComandaCancelada ComandaStatus = "cancelada"
)

type PaymentMethod string

const (
	PaymentDinheiro PaymentMethod = "dinheiro"
	PaymentPix      PaymentMethod = "pix"
	PaymentDebito   PaymentMethod = "debito"
	PaymentCredito  PaymentMethod = "credito"
)

// Valid checks the payment method is known
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentDinheiro, PaymentPix, PaymentDebito, PaymentCredito:
		return true
	}
	return false
}

// Comanda is an open tab at the range.
type Comanda struct {
	ID            int64           `json:"id"`
	FiliadoID     *int64          `json:"filiado_id"` // nil for walk-in customers
	CustomerName  string          `json:"customer_name"`
	Status        ComandaStatus   `json:"status"`
	OpenedAt      time.Time       `json:"opened_at"`
	ClosedAt      *time.Time      `json:"closed_at"`
	PaymentMethod *PaymentMethod  `json:"payment_method"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Items         []ItemComanda   `json:"items"`
}

// IsOpen checks if items can still be added
func (c *Comanda) IsOpen() bool {
	return c.Status == ComandaAberta
}

// Subtotal sums item subtotals before discount
func (c *Comanda) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}

type ItemComanda struct {
	ID          int64           `json:"id"`
	ComandaID   int64           `json:"comanda_id"`
	ProdutoID   int64           `json:"produto_id"`
	ProdutoName string          `json:"produto_name,omitempty"`
	Category    ProdutoCategory `json:"category,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DailySummary aggregates closed comandas of one day
type DailySummary struct {
	Date            time.Time                           `json:"date"`
	Comandas        int                                 `json:"comandas"`
	Total           decimal.Decimal                     `json:"total"`
	Discounts       decimal.Decimal                     `json:"discounts"`
	ByPaymentMethod map[PaymentMethod]decimal.Decimal   `json:"by_payment_method"`
	ByCategory      map[ProdutoCategory]decimal.Decimal `json:"by_category"`
}
