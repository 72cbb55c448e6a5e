package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var brt = time.FixedZone("BRT", -3*60*60)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

type financeFixture struct {
	svc          *FinanceService
	categories   *memCategories
	transactions *memTransactions
	payments     *memPayments
	installments *memInstallments
}

func newFinanceFixture(now time.Time) *financeFixture {
	f := &financeFixture{
		categories: newMemCategories(
			&model.Category{ID: 1, Name: "Salário", Kind: model.KindIncome},
			&model.Category{ID: 2, Name: "Mercado", Kind: model.KindExpense},
		),
		transactions: newMemTransactions(),
		payments:     newMemPayments(),
		installments: newMemInstallments(),
	}
	f.svc = NewFinanceService(f.categories, f.transactions, f.payments, f.installments, brt, zap.NewNop())
	f.svc.now = fixedClock(now)
	return f
}

func TestFinanceService_CreateCategory(t *testing.T) {
	f := newFinanceFixture(time.Now())
	ctx := context.Background()

	c, err := f.svc.CreateCategory(ctx, "  Lazer ", model.KindExpense, "#ff0000")
	require.NoError(t, err)
	assert.Equal(t, "Lazer", c.Name)
	assert.NotZero(t, c.ID)

	_, err = f.svc.CreateCategory(ctx, "Lazer", model.KindExpense, "")
	assert.ErrorIs(t, err, ErrConflict)

	// same name, other kind
	_, err = f.svc.CreateCategory(ctx, "Lazer", model.KindIncome, "")
	assert.NoError(t, err)

	_, err = f.svc.CreateCategory(ctx, "", "other", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "kind")
}

func TestFinanceService_CreateTransaction(t *testing.T) {
	tests := []struct {
		name       string
		in         TransactionInput
		wantFields []string
	}{
		{
			name: "valid income",
			in:   TransactionInput{Description: "Salário", Amount: dec("5000"), Kind: model.KindIncome, CategoryID: ptr(int64(1)), Date: day(2024, 3, 1)},
		},
		{
			name: "uncategorized expense",
			in:   TransactionInput{Description: "Padaria", Amount: dec("12.5"), Kind: model.KindExpense, Date: day(2024, 3, 1)},
		},
		{
			name:       "empty description and zero amount",
			in:         TransactionInput{Description: "   ", Amount: decimal.Zero, Kind: model.KindExpense, Date: day(2024, 3, 1)},
			wantFields: []string{"description", "amount"},
		},
		{
			name:       "amount rounds to zero",
			in:         TransactionInput{Description: "x", Amount: dec("0.001"), Kind: model.KindExpense, Date: day(2024, 3, 1)},
			wantFields: []string{"amount"},
		},
		{
			name:       "unknown kind and missing date",
			in:         TransactionInput{Description: "x", Amount: dec("1"), Kind: "transfer"},
			wantFields: []string{"kind", "date"},
		},
		{
			name:       "category of the other kind",
			in:         TransactionInput{Description: "x", Amount: dec("1"), Kind: model.KindExpense, CategoryID: ptr(int64(1)), Date: day(2024, 3, 1)},
			wantFields: []string{"category_id"},
		},
		{
			name:       "missing category",
			in:         TransactionInput{Description: "x", Amount: dec("1"), Kind: model.KindIncome, CategoryID: ptr(int64(99)), Date: day(2024, 3, 1)},
			wantFields: []string{"category_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFinanceFixture(time.Now())
			tx, err := f.svc.CreateTransaction(context.Background(), tt.in)

			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				assert.NotZero(t, tx.ID)
				assert.Equal(t, time.UTC, tx.Date.Location())
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			for _, name := range tt.wantFields {
				assert.Contains(t, verr.Fields, name)
			}
			assert.Len(t, verr.Fields, len(tt.wantFields))
		})
	}
}

func TestFinanceService_UpdateTransaction(t *testing.T) {
	f := newFinanceFixture(time.Now())
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, TransactionInput{Description: "Feira", Amount: dec("100"), Kind: model.KindExpense, Date: day(2024, 3, 4)})
	require.NoError(t, err)

	updated, err := f.svc.UpdateTransaction(ctx, tx.ID, TransactionInput{Description: "Feira grande", Amount: dec("150.456"), Kind: model.KindExpense, CategoryID: ptr(int64(2)), Date: day(2024, 3, 5)})
	require.NoError(t, err)
	assert.Equal(t, "Feira grande", updated.Description)
	assert.True(t, dec("150.46").Equal(updated.Amount))

	stored, err := f.svc.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 3, 5), stored.Date)

	_, err = f.svc.UpdateTransaction(ctx, 999, TransactionInput{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.DeleteTransaction(ctx, tx.ID))
	assert.ErrorIs(t, f.svc.DeleteTransaction(ctx, tx.ID), ErrNotFound)
}

func TestFinanceService_PaymentLifecycle(t *testing.T) {
	now := time.Date(2024, 3, 8, 10, 30, 0, 0, brt)
	f := newFinanceFixture(now)
	ctx := context.Background()

	_, err := f.svc.CreatePayment(ctx, PaymentInput{Description: "Luz", Amount: dec("180"), DueDate: day(2024, 3, 10), CategoryID: ptr(int64(1))})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "payments only take expense categories")

	p, err := f.svc.CreatePayment(ctx, PaymentInput{Description: "Luz", Amount: dec("180"), DueDate: day(2024, 3, 10)})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, p.Status)

	paid, err := f.svc.PayPayment(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid())
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, now, *paid.PaidAt)

	_, err = f.svc.PayPayment(ctx, p.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	reverted, err := f.svc.UnpayPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, reverted.PaidAt)

	_, err = f.svc.UnpayPayment(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	explicit := time.Date(2024, 3, 1, 9, 0, 0, 0, brt)
	paid, err = f.svc.PayPayment(ctx, p.ID, &explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, *paid.PaidAt)

	_, err = f.svc.PayPayment(ctx, 42, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ListPayments(ctx, "late")
	require.ErrorAs(t, err, &verr)
}

func TestFinanceService_Installments(t *testing.T) {
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, brt)
	f := newFinanceFixture(now)
	ctx := context.Background()

	inst, err := f.svc.CreateInstallment(ctx, InstallmentInput{
		Description:  "Notebook",
		TotalAmount:  dec("1000"),
		Count:        3,
		FirstDueDate: day(2024, 1, 31),
		CategoryID:   ptr(int64(2)),
	})
	require.NoError(t, err)
	require.Len(t, inst.Items, 3)
	assert.Equal(t, 0, inst.PaidCount())

	item, err := f.svc.PayInstallmentItem(ctx, inst.Items[1].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Number)
	assert.Equal(t, now, *item.PaidAt)

	_, err = f.svc.PayInstallmentItem(ctx, inst.Items[1].ID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, err := f.svc.GetInstallment(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.PaidCount())
	assert.True(t, dec("666.67").Equal(stored.Remaining()), "remaining %s", stored.Remaining())

	_, err = f.svc.UnpayInstallmentItem(ctx, inst.Items[0].ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	tests := []struct {
		name  string
		in    InstallmentInput
		field string
	}{
		{"single installment", InstallmentInput{Description: "x", TotalAmount: dec("10"), Count: 1, FirstDueDate: day(2024, 1, 1)}, "count"},
		{"too many installments", InstallmentInput{Description: "x", TotalAmount: dec("1000"), Count: 121, FirstDueDate: day(2024, 1, 1)}, "count"},
		{"less than a cent each", InstallmentInput{Description: "x", TotalAmount: dec("0.05"), Count: 10, FirstDueDate: day(2024, 1, 1)}, "total_amount"},
		{"no first due date", InstallmentInput{Description: "x", TotalAmount: dec("10"), Count: 2}, "first_due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateInstallment(ctx, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestScheduleInstallment(t *testing.T) {
	items, err := ScheduleInstallment(dec("1000"), 3, time.Date(2024, 1, 31, 15, 0, 0, 0, brt))
	require.NoError(t, err)
	require.Len(t, items, 3)

	// the first item absorbs the leftover cent
	assert.True(t, dec("333.34").Equal(items[0].Amount))
	assert.True(t, dec("333.33").Equal(items[1].Amount))
	assert.True(t, dec("333.33").Equal(items[2].Amount))

	// day 31 is clamped to the last day of shorter months, then restored
	assert.Equal(t, day(2024, 1, 31), items[0].DueDate)
	assert.Equal(t, day(2024, 2, 29), items[1].DueDate)
	assert.Equal(t, day(2024, 3, 31), items[2].DueDate)

	for i, it := range items {
		assert.Equal(t, i+1, it.Number)
		assert.Equal(t, model.PaymentStatusPending, it.Status)
	}

	items, err = ScheduleInstallment(dec("120"), 12, day(2024, 11, 15))
	require.NoError(t, err)
	assert.Equal(t, day(2025, 10, 15), items[11].DueDate)

	_, err = ScheduleInstallment(dec("0.01"), 2, day(2024, 1, 1))
	assert.Error(t, err)
}

func TestUpcomingFrom(t *testing.T) {
	now := time.Date(2024, 3, 10, 22, 0, 0, 0, brt) // already the 11th in UTC

	payments := []*model.Payment{
		{ID: 1, Description: "Luz", Amount: dec("180"), DueDate: day(2024, 3, 12), Status: model.PaymentStatusPending},
		{ID: 2, Description: "Água", Amount: dec("90"), DueDate: day(2024, 3, 5), Status: model.PaymentStatusPending},
		{ID: 3, Description: "Gás", Amount: dec("60"), DueDate: day(2024, 3, 30), Status: model.PaymentStatusPending},
		{ID: 4, Description: "Net", Amount: dec("100"), DueDate: day(2024, 3, 11), Status: model.PaymentStatusPaid, PaidAt: &now},
	}
	installments := []*model.Installment{{
		ID: 7, Description: "Notebook", Count: 3,
		Items: []model.InstallmentItem{
			{ID: 20, Number: 1, DueDate: day(2024, 2, 12), Amount: dec("1000"), Status: model.PaymentStatusPaid, PaidAt: &now},
			{ID: 21, Number: 2, DueDate: day(2024, 3, 12), Amount: dec("1000"), Status: model.PaymentStatusPending},
			{ID: 22, Number: 3, DueDate: day(2024, 4, 12), Amount: dec("1000"), Status: model.PaymentStatusPending},
		},
	}}

	got := UpcomingFrom(payments, installments, now, 7, brt)
	require.Len(t, got, 3)

	assert.Equal(t, int64(2), got[0].ID)
	assert.True(t, got[0].Overdue)

	// same due date: the payment comes before the installment item
	assert.Equal(t, model.UpcomingSourcePayment, got[1].Source)
	assert.Equal(t, int64(1), got[1].ID)
	assert.False(t, got[1].Overdue)
	assert.Equal(t, model.UpcomingSourceInstallment, got[2].Source)
	assert.Equal(t, int64(7), got[2].InstallmentID)
	assert.Equal(t, 2, got[2].Number)
	assert.Equal(t, 3, got[2].Count)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, brt), got[2].DueDate)

	// days = 0 keeps only today and the overdue entries
	got = UpcomingFrom(payments, installments, now, 0, brt)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestFinanceService_Upcoming(t *testing.T) {
	f := newFinanceFixture(time.Date(2024, 3, 10, 9, 0, 0, 0, brt))
	ctx := context.Background()

	_, err := f.svc.CreatePayment(ctx, PaymentInput{Description: "Luz", Amount: dec("180"), DueDate: day(2024, 3, 12)})
	require.NoError(t, err)

	got, err := f.svc.Upcoming(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.svc.Upcoming(ctx, -1)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
