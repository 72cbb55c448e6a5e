package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/money"
	"github.com/Freeeeeet/bizsuite/internal/report"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxDescriptionLen = 200
	minInstallments   = 2
	maxInstallments   = 120
)

type TransactionInput struct {
	Description string
	Amount      decimal.Decimal
	Kind        model.Kind
	CategoryID  *int64
	Date        time.Time
	Notes       string
}

type PaymentInput struct {
	Description string
	Amount      decimal.Decimal
	DueDate     time.Time
	CategoryID  *int64
}

type InstallmentInput struct {
	Description  string
	TotalAmount  decimal.Decimal
	Count        int
	FirstDueDate time.Time
	CategoryID   *int64
}

type FinanceService struct {
	categoryRepo    CategoryRepo
	transactionRepo TransactionRepo
	paymentRepo     PaymentRepo
	installmentRepo InstallmentRepo
	loc             *time.Location
	logger          *zap.Logger
	now             func() time.Time
}

func NewFinanceService(
	categoryRepo CategoryRepo,
	transactionRepo TransactionRepo,
	paymentRepo PaymentRepo,
	installmentRepo InstallmentRepo,
	loc *time.Location,
	logger *zap.Logger,
) *FinanceService {
	return &FinanceService{
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
		paymentRepo:     paymentRepo,
		installmentRepo: installmentRepo,
		loc:             loc,
		logger:          logger,
		now:             time.Now,
	}
}

// CreateCategory adds a category; names are unique per kind
func (s *FinanceService) CreateCategory(ctx context.Context, name string, kind model.Kind, color string) (*model.Category, error) {
	f := fields{}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 60 {
		f.add("name", "must have 1 to 60 characters")
	}
	if !kind.Valid() {
		f.add("kind", "must be income or expense")
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	c := &model.Category{Name: name, Kind: kind, Color: color}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("category %q already exists: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.Info("Category created", zap.Int64("category_id", c.ID), zap.String("kind", string(kind)))
	return c, nil
}

// ListCategories returns every category
func (s *FinanceService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// DeleteCategory removes a category; its records become uncategorized
func (s *FinanceService) DeleteCategory(ctx context.Context, id int64) error {
	ok, err := s.categoryRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if !ok {
		return notFound("category", id)
	}
	return nil
}

// CreateTransaction records an income or expense
func (s *FinanceService) CreateTransaction(ctx context.Context, in TransactionInput) (*model.Transaction, error) {
	if err := s.validateTransaction(ctx, in); err != nil {
		return nil, err
	}

	t := &model.Transaction{
		Description: strings.TrimSpace(in.Description),
		Amount:      money.Round(in.Amount),
		Kind:        in.Kind,
		CategoryID:  in.CategoryID,
		Date:        dateOnly(in.Date),
		Notes:       in.Notes,
	}
	if err := s.transactionRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.Info("Transaction created",
		zap.Int64("transaction_id", t.ID),
		zap.String("kind", string(t.Kind)),
		zap.String("amount", t.Amount.StringFixed(2)),
	)
	return t, nil
}

// GetTransaction returns one transaction
func (s *FinanceService) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	t, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if t == nil {
		return nil, notFound("transaction", id)
	}
	return t, nil
}

// ListTransactions returns transactions filtered by date range and kind
func (s *FinanceService) ListTransactions(ctx context.Context, f repository.TransactionFilter) ([]*model.Transaction, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"kind": "must be income or expense"}}
	}
	transactions, err := s.transactionRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// UpdateTransaction replaces the editable fields of a transaction
func (s *FinanceService) UpdateTransaction(ctx context.Context, id int64, in TransactionInput) (*model.Transaction, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateTransaction(ctx, in); err != nil {
		return nil, err
	}

	t.Description = strings.TrimSpace(in.Description)
	t.Amount = money.Round(in.Amount)
	t.Kind = in.Kind
	t.CategoryID = in.CategoryID
	t.Date = dateOnly(in.Date)
	t.Notes = in.Notes

	ok, err := s.transactionRepo.Update(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if !ok {
		return nil, notFound("transaction", id)
	}
	return t, nil
}

// DeleteTransaction removes a transaction
func (s *FinanceService) DeleteTransaction(ctx context.Context, id int64) error {
	ok, err := s.transactionRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if !ok {
		return notFound("transaction", id)
	}
	return nil
}

// CreatePayment registers a pending bill
func (s *FinanceService) CreatePayment(ctx context.Context, in PaymentInput) (*model.Payment, error) {
	f := fields{}
	checkDescription(f, in.Description)
	checkAmount(f, "amount", in.Amount)
	if in.DueDate.IsZero() {
		f.add("due_date", "is required")
	}
	if err := s.checkCategory(ctx, f, in.CategoryID, model.KindExpense); err != nil {
		return nil, err
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	p := &model.Payment{
		Description: strings.TrimSpace(in.Description),
		Amount:      money.Round(in.Amount),
		DueDate:     dateOnly(in.DueDate),
		CategoryID:  in.CategoryID,
		Status:      model.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.logger.Info("Payment created", zap.Int64("payment_id", p.ID), zap.Time("due_date", p.DueDate))
	return p, nil
}

// ListPayments returns bills, optionally only those with status
func (s *FinanceService) ListPayments(ctx context.Context, status model.PaymentStatus) ([]*model.Payment, error) {
	if status != "" && status != model.PaymentStatusPending && status != model.PaymentStatusPaid {
		return nil, &ValidationError{Fields: map[string]string{"status": "must be pending or paid"}}
	}
	payments, err := s.paymentRepo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// PayPayment marks a bill as paid at paidAt (now when nil)
func (s *FinanceService) PayPayment(ctx context.Context, id int64, paidAt *time.Time) (*model.Payment, error) {
	p, err := s.getPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsPaid() {
		return nil, fmt.Errorf("payment %d is already paid: %w", id, ErrInvalidState)
	}

	at := s.paidAt(paidAt)
	ok, err := s.paymentRepo.SetStatus(ctx, id, model.PaymentStatusPaid, &at)
	if err != nil {
		return nil, fmt.Errorf("pay payment: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("payment %d changed concurrently: %w", id, ErrInvalidState)
	}

	p.Status = model.PaymentStatusPaid
	p.PaidAt = &at

	s.logger.Info("Payment paid", zap.Int64("payment_id", id), zap.Time("paid_at", at))
	return p, nil
}

// UnpayPayment reverts a paid bill to pending
func (s *FinanceService) UnpayPayment(ctx context.Context, id int64) (*model.Payment, error) {
	p, err := s.getPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPaid() {
		return nil, fmt.Errorf("payment %d is not paid: %w", id, ErrInvalidState)
	}

	ok, err := s.paymentRepo.SetStatus(ctx, id, model.PaymentStatusPending, nil)
	if err != nil {
		return nil, fmt.Errorf("unpay payment: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("payment %d changed concurrently: %w", id, ErrInvalidState)
	}

	p.Status = model.PaymentStatusPending
	p.PaidAt = nil

	s.logger.Info("Payment reverted to pending", zap.Int64("payment_id", id))
	return p, nil
}

// DeletePayment removes a bill
func (s *FinanceService) DeletePayment(ctx context.Context, id int64) error {
	ok, err := s.paymentRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if !ok {
		return notFound("payment", id)
	}
	return nil
}

// CreateInstallment splits a purchase into monthly items and stores them atomically
func (s *FinanceService) CreateInstallment(ctx context.Context, in InstallmentInput) (*model.Installment, error) {
	f := fields{}
	checkDescription(f, in.Description)
	checkAmount(f, "total_amount", in.TotalAmount)
	if in.Count < minInstallments || in.Count > maxInstallments {
		f.add("count", fmt.Sprintf("must be between %d and %d", minInstallments, maxInstallments))
	}
	if in.FirstDueDate.IsZero() {
		f.add("first_due_date", "is required")
	}
	if err := s.checkCategory(ctx, f, in.CategoryID, model.KindExpense); err != nil {
		return nil, err
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	items, err := ScheduleInstallment(in.TotalAmount, in.Count, in.FirstDueDate)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"total_amount": err.Error()}}
	}

	inst := &model.Installment{
		Description:  strings.TrimSpace(in.Description),
		TotalAmount:  money.Round(in.TotalAmount),
		Count:        in.Count,
		FirstDueDate: dateOnly(in.FirstDueDate),
		CategoryID:   in.CategoryID,
		Items:        items,
	}
	if err := s.installmentRepo.CreateWithItems(ctx, inst); err != nil {
		return nil, fmt.Errorf("create installment: %w", err)
	}

	s.logger.Info("Installment created",
		zap.Int64("installment_id", inst.ID),
		zap.Int("count", inst.Count),
		zap.String("total", inst.TotalAmount.StringFixed(2)),
	)
	return inst, nil
}

// GetInstallment returns an installment with its items
func (s *FinanceService) GetInstallment(ctx context.Context, id int64) (*model.Installment, error) {
	inst, err := s.installmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get installment: %w", err)
	}
	if inst == nil {
		return nil, notFound("installment", id)
	}
	return inst, nil
}

// ListInstallments returns all installments with items
func (s *FinanceService) ListInstallments(ctx context.Context) ([]*model.Installment, error) {
	installments, err := s.installmentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return installments, nil
}

// DeleteInstallment removes an installment and all its items
func (s *FinanceService) DeleteInstallment(ctx context.Context, id int64) error {
	ok, err := s.installmentRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete installment: %w", err)
	}
	if !ok {
		return notFound("installment", id)
	}
	return nil
}

// PayInstallmentItem marks one item as paid at paidAt (now when nil)
func (s *FinanceService) PayInstallmentItem(ctx context.Context, itemID int64, paidAt *time.Time) (*model.InstallmentItem, error) {
	item, err := s.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsPaid() {
		return nil, fmt.Errorf("installment item %d is already paid: %w", itemID, ErrInvalidState)
	}

	at := s.paidAt(paidAt)
	ok, err := s.installmentRepo.SetItemStatus(ctx, itemID, model.PaymentStatusPaid, &at)
	if err != nil {
		return nil, fmt.Errorf("pay installment item: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("installment item %d changed concurrently: %w", itemID, ErrInvalidState)
	}

	item.Status = model.PaymentStatusPaid
	item.PaidAt = &at

	s.logger.Info("Installment item paid",
		zap.Int64("installment_id", item.InstallmentID),
		zap.Int("number", item.Number),
		zap.Time("paid_at", at),
	)
	return item, nil
}

// UnpayInstallmentItem reverts a paid item to pending
func (s *FinanceService) UnpayInstallmentItem(ctx context.Context, itemID int64) (*model.InstallmentItem, error) {
	item, err := s.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsPaid() {
		return nil, fmt.Errorf("installment item %d is not paid: %w", itemID, ErrInvalidState)
	}

	ok, err := s.installmentRepo.SetItemStatus(ctx, itemID, model.PaymentStatusPending, nil)
	if err != nil {
		return nil, fmt.Errorf("unpay installment item: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("installment item %d changed concurrently: %w", itemID, ErrInvalidState)
	}

	item.Status = model.PaymentStatusPending
	item.PaidAt = nil
	return item, nil
}

// Upcoming lists pending payments and installment items due within days from today.
// Overdue entries are included and flagged.
func (s *FinanceService) Upcoming(ctx context.Context, days int) ([]model.UpcomingItem, error) {
	if days < 0 || days > 366 {
		return nil, &ValidationError{Fields: map[string]string{"days": "must be between 0 and 366"}}
	}

	payments, err := s.paymentRepo.List(ctx, model.PaymentStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	installments, err := s.installmentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}

	return UpcomingFrom(payments, installments, s.now(), days, s.loc), nil
}

// UpcomingFrom selects the unpaid entries due on or before today+days, sorted by due date
func UpcomingFrom(payments []*model.Payment, installments []*model.Installment, now time.Time, days int, loc *time.Location) []model.UpcomingItem {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	limit := today.AddDate(0, 0, days+1)

	var out []model.UpcomingItem
	for _, p := range payments {
		due := report.Civil(p.DueDate, loc)
		if p.IsPaid() || !due.Before(limit) {
			continue
		}
		out = append(out, model.UpcomingItem{
			Source:      model.UpcomingSourcePayment,
			ID:          p.ID,
			Description: p.Description,
			Amount:      p.Amount,
			DueDate:     due,
			Overdue:     due.Before(today),
		})
	}

	for _, inst := range installments {
		for _, it := range inst.Items {
			due := report.Civil(it.DueDate, loc)
			if it.IsPaid() || !due.Before(limit) {
				continue
			}
			out = append(out, model.UpcomingItem{
				Source:        model.UpcomingSourceInstallment,
				ID:            it.ID,
				InstallmentID: inst.ID,
				Description:   inst.Description,
				Number:        it.Number,
				Count:         inst.Count,
				Amount:        it.Amount,
				DueDate:       due,
				Overdue:       due.Before(today),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		if out[i].Source != out[j].Source {
			return out[i].Source > out[j].Source // payments first
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ScheduleInstallment builds the items of an installment plan. Amounts follow money.Split;
// due dates are monthly from first, keeping first's day when the month has it.
func ScheduleInstallment(total decimal.Decimal, count int, first time.Time) ([]model.InstallmentItem, error) {
	amounts, err := money.Split(total, count)
	if err != nil {
		return nil, err
	}

	first = dateOnly(first)
	items := make([]model.InstallmentItem, count)
	for i := range items {
		items[i] = model.InstallmentItem{
			Number:  i + 1,
			DueDate: addMonthsClamped(first, i),
			Amount:  amounts[i],
			Status:  model.PaymentStatusPending,
		}
	}
	return items, nil
}

// addMonthsClamped moves t by n months, clamping the day to the target month's length
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, t.Location())
}

// dateOnly keeps the calendar day of t at UTC midnight, the form DATE columns round trip to
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *FinanceService) validateTransaction(ctx context.Context, in TransactionInput) error {
	f := fields{}
	checkDescription(f, in.Description)
	checkAmount(f, "amount", in.Amount)
	if !in.Kind.Valid() {
		f.add("kind", "must be income or expense")
	}
	if in.Date.IsZero() {
		f.add("date", "is required")
	}
	if in.Kind.Valid() {
		if err := s.checkCategory(ctx, f, in.CategoryID, in.Kind); err != nil {
			return err
		}
	}
	return f.err()
}

// checkCategory adds a problem when the category is missing or of another kind.
// Only repository failures are returned.
func (s *FinanceService) checkCategory(ctx context.Context, f fields, id *int64, kind model.Kind) error {
	if id == nil {
		return nil
	}
	c, err := s.categoryRepo.GetByID(ctx, *id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	switch {
	case c == nil:
		f.add("category_id", fmt.Sprintf("category %d not found", *id))
	case c.Kind != kind:
		f.add("category_id", fmt.Sprintf("category %q is for %s, not %s", c.Name, c.Kind, kind))
	}
	return nil
}

func (s *FinanceService) getPayment(ctx context.Context, id int64) (*model.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if p == nil {
		return nil, notFound("payment", id)
	}
	return p, nil
}

func (s *FinanceService) getItem(ctx context.Context, itemID int64) (*model.InstallmentItem, error) {
	item, err := s.installmentRepo.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get installment item: %w", err)
	}
	if item == nil {
		return nil, notFound("installment item", itemID)
	}
	return item, nil
}

func (s *FinanceService) paidAt(at *time.Time) time.Time {
	if at != nil && !at.IsZero() {
		return *at
	}
	return s.now()
}

func checkDescription(f fields, description string) {
	n := utf8.RuneCountInString(strings.TrimSpace(description))
	if n == 0 || n > maxDescriptionLen {
		f.add("description", fmt.Sprintf("must have 1 to %d characters", maxDescriptionLen))
	}
}

func checkAmount(f fields, name string, amount decimal.Decimal) {
	if !money.Round(amount).IsPositive() {
		f.add(name, "must be greater than zero")
	}
}
