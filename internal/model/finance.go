package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid checks the kind is one of the known values
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type Transaction struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        Kind            `json:"kind"`
	CategoryID  *int64          `json:"category_id"` // nil = uncategorized
	Date        time.Time       `json:"date"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Signed returns the amount with the sign of its kind
func (t *Transaction) Signed() decimal.Decimal {
	if t.Kind == KindExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Payment is a single bill.
type Payment struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	CategoryID  *int64          `json:"category_id"`
	Status      PaymentStatus   `json:"status"`
	PaidAt      *time.Time      `json:"paid_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsPaid checks if the payment was settled
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

// IsOverdue checks if the payment is still pending after its due date
func (p *Payment) IsOverdue(now time.Time) bool {
	return !p.IsPaid() && p.DueDate.Before(dayStart(now))
}

// Installment is a purchase split into monthly items (parcelamento).
type Installment struct {
	ID           int64             `json:"id"`
	Description  string            `json:"description"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Count        int               `json:"count"`
	FirstDueDate time.Time         `json:"first_due_date"`
	CategoryID   *int64            `json:"category_id"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []InstallmentItem `json:"items"`
}

// PaidCount returns how many items were already paid
func (i *Installment) PaidCount() int {
	n := 0
	for _, item := range i.Items {
		if item.IsPaid() {
			n++
		}
	}
	return n
}

// Remaining returns the sum of unpaid items
func (i *Installment) Remaining() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.Items {
		if !item.IsPaid() {
			total = total.Add(item.Amount)
		}
	}
	return total
}

type InstallmentItem struct {
	ID            int64           `json:"id"`
	InstallmentID int64           `json:"installment_id"`
	Number        int             `json:"number"`
	DueDate       time.Time       `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PaymentStatus   `json:"status"`
	PaidAt        *time.Time      `json:"paid_at"`
}

// IsPaid checks if the item was settled
func (i *InstallmentItem) IsPaid() bool {
	return i.Status == PaymentStatusPaid
}

// IsOverdue checks if the item is still pending after its due date
func (i *InstallmentItem) IsOverdue(now time.Time) bool {
	return !i.IsPaid() && i.DueDate.Before(dayStart(now))
}

// Dataset is the whole finance state: everything a backup carries and reports read.
type Dataset struct {
	Categories   []*Category    `json:"categories"`
	Transactions []*Transaction `json:"transactions"`
	Payments     []*Payment     `json:"payments"`
	Installments []*Installment `json:"installments"`
}

// Counts summarises the size of a dataset
type Counts struct {
	Categories       int `json:"categories"`
	Transactions     int `json:"transactions"`
	Payments         int `json:"payments"`
	Installments     int `json:"installments"`
	InstallmentItems int `json:"installment_items"`
}

// Counts returns the number of records of each kind
func (d *Dataset) Counts() Counts {
	c := Counts{
		Categories:   len(d.Categories),
		Transactions: len(d.Transactions),
		Payments:     len(d.Payments),
		Installments: len(d.Installments),
	}
	for _, inst := range d.Installments {
		c.InstallmentItems += len(inst.Items)
	}
	return c
}

// UpcomingItem is a pending payment or installment item shown on the agenda
type UpcomingItem struct {
	Source        string          `json:"source"` // "payment" or "installment"
	ID            int64           `json:"id"`
	InstallmentID int64           `json:"installment_id,omitempty"`
	Description   string          `json:"description"`
	Number        int             `json:"number,omitempty"`
	Count         int             `json:"count,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	Overdue       bool            `json:"overdue"`
}

const (
	UpcomingSourcePayment     = "payment"
	UpcomingSourceInstallment = "installment"
)

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
