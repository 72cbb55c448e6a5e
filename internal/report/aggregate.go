package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/shopspring/decimal"
)

// maxSeriesPeriods protects Series from absurd ranges
const maxSeriesPeriods = 520

type categoryKey struct {
	id   int64
	kind model.Kind
}

// Aggregate computes the rollup of the period of type pt that contains t.
//
// Income is the sum of income transactions dated inside the period. Expense adds expense
// transactions dated inside the period, payments paid inside the period and installment
// items paid inside the period. Pending sums what is still unpaid and due inside the period.
func Aggregate(ds *model.Dataset, pt model.PeriodType, t time.Time, loc *time.Location) (*model.Report, error) {
	if loc == nil {
		loc = time.Local
	}
	start, end, err := Bounds(pt, t, loc)
	if err != nil {
		return nil, err
	}

	rep := &model.Report{
		PeriodType:  pt,
		PeriodStart: start,
		PeriodEnd:   end,
		Income:      decimal.Zero,
		Expense:     decimal.Zero,
		Pending:     decimal.Zero,
		ByCategory:  []model.CategoryTotal{},
	}

	names := make(map[int64]string, len(ds.Categories))
	for _, c := range ds.Categories {
		names[c.ID] = c.Name
	}
	totals := make(map[categoryKey]decimal.Decimal)
	add := func(categoryID *int64, kind model.Kind, amount decimal.Decimal) {
		key := categoryKey{kind: kind}
		if categoryID != nil {
			key.id = *categoryID
		}
		totals[key] = totals[key].Add(amount)
	}

	for _, tx := range ds.Transactions {
		if !within(Civil(tx.Date, loc), start, end) {
			continue
		}
		switch tx.Kind {
		case model.KindIncome:
			rep.Income = rep.Income.Add(tx.Amount)
		case model.KindExpense:
			rep.Expense = rep.Expense.Add(tx.Amount)
		default:
			continue
		}
		rep.Counts.Transactions++
		add(tx.CategoryID, tx.Kind, tx.Amount)
	}

	for _, p := range ds.Payments {
		if p.IsPaid() && p.PaidAt != nil {
			if within(p.PaidAt.In(loc), start, end) {
				rep.Expense = rep.Expense.Add(p.Amount)
				rep.Counts.PaymentsPaid++
				add(p.CategoryID, model.KindExpense, p.Amount)
			}
			continue
		}
		if !p.IsPaid() && within(Civil(p.DueDate, loc), start, end) {
			rep.Pending = rep.Pending.Add(p.Amount)
			rep.Counts.PendingItems++
		}
	}

	for _, inst := range ds.Installments {
		for i := range inst.Items {
			item := &inst.Items[i]
			if item.IsPaid() && item.PaidAt != nil {
				if within(item.PaidAt.In(loc), start, end) {
					rep.Expense = rep.Expense.Add(item.Amount)
					rep.Counts.InstallmentItemsPaid++
					add(inst.CategoryID, model.KindExpense, item.Amount)
				}
				continue
			}
			if !item.IsPaid() && within(Civil(item.DueDate, loc), start, end) {
				rep.Pending = rep.Pending.Add(item.Amount)
				rep.Counts.PendingItems++
			}
		}
	}

	rep.Balance = rep.Income.Sub(rep.Expense)

	for key, amount := range totals {
		name := names[key.id]
		if key.id == 0 {
			name = "Sem categoria"
		}
		rep.ByCategory = append(rep.ByCategory, model.CategoryTotal{
			CategoryID: key.id,
			Name:       name,
			Kind:       key.kind,
			Amount:     amount,
		})
	}
	sort.Slice(rep.ByCategory, func(i, j int) bool {
		a, b := rep.ByCategory[i], rep.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		return a.Kind < b.Kind
	})

	return rep, nil
}

// Series returns one report per period from the period containing from up to and
// including the period containing to.
func Series(ds *model.Dataset, pt model.PeriodType, from, to time.Time, loc *time.Location) ([]*model.Report, error) {
	if loc == nil {
		loc = time.Local
	}
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is before %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	start, _, err := Bounds(pt, from, loc)
	if err != nil {
		return nil, err
	}
	last, _, err := Bounds(pt, to, loc)
	if err != nil {
		return nil, err
	}

	var reports []*model.Report
	for cur := start; !cur.After(last); cur = Next(pt, cur) {
		if len(reports) >= maxSeriesPeriods {
			return nil, fmt.Errorf("range too large: more than %d periods", maxSeriesPeriods)
		}
		rep, err := Aggregate(ds, pt, cur, loc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
