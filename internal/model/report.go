package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PeriodType string

const (
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Valid checks the period type is supported
func (p PeriodType) Valid() bool {
	return p == PeriodWeekly || p == PeriodMonthly
}

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Report is the rollup of one period. It is derived data and can always be recomputed.
type Report struct {
	ID          int64           `json:"id,omitempty"`
	PeriodType  PeriodType      `json:"period_type"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
	Balance     decimal.Decimal `json:"balance"`
	Pending     decimal.Decimal `json:"pending"`
	ByCategory  []CategoryTotal `json:"by_category"`
	Counts      ReportCounts    `json:"counts"`
	Source      string          `json:"source"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type CategoryTotal struct {
	CategoryID int64           `json:"category_id"` // 0 = uncategorized
	Name       string          `json:"name"`
	Kind       Kind            `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
}

type ReportCounts struct {
	Transactions         int `json:"transactions"`
	PaymentsPaid         int `json:"payments_paid"`
	InstallmentItemsPaid int `json:"installment_items_paid"`
	PendingItems         int `json:"pending_items"`
}
