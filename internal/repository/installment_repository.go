package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InstallmentRepository struct {
	pool *pgxpool.Pool
}

func NewInstallmentRepository(pool *pgxpool.Pool) *InstallmentRepository {
	return &InstallmentRepository{pool: pool}
}

const (
	installmentColumns = `id, description, total_amount, count, first_due_date, category_id, created_at`
	itemColumns        = `id, installment_id, number, due_date, amount, status, paid_at`
)

func scanInstallment(row pgx.Row) (*model.Installment, error) {
	var i model.Installment
	err := row.Scan(
		&i.ID,
		&i.Description,
		&i.TotalAmount,
		&i.Count,
		&i.FirstDueDate,
		&i.CategoryID,
		&i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func scanItem(row pgx.Row) (*model.InstallmentItem, error) {
	var it model.InstallmentItem
	err := row.Scan(
		&it.ID,
		&it.InstallmentID,
		&it.Number,
		&it.DueDate,
		&it.Amount,
		&it.Status,
		&it.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateWithItems inserts the installment and all of its items in one transaction
func (r *InstallmentRepository) CreateWithItems(ctx context.Context, inst *model.Installment) error {
	return base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO installments (description, total_amount, count, first_due_date, category_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		err := tx.QueryRow(
			ctx, query,
			inst.Description,
			inst.TotalAmount,
			inst.Count,
			inst.FirstDueDate,
			inst.CategoryID,
		).Scan(&inst.ID, &inst.CreatedAt)
		if err != nil {
			return fmt.Errorf("create installment: %w", err)
		}

		itemQuery := `
			INSERT INTO installment_items (installment_id, number, due_date, amount, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		for i := range inst.Items {
			it := &inst.Items[i]
			it.InstallmentID = inst.ID
			err := tx.QueryRow(ctx, itemQuery, it.InstallmentID, it.Number, it.DueDate, it.Amount, it.Status).Scan(&it.ID)
			if err != nil {
				return fmt.Errorf("create installment item %d: %w", it.Number, err)
			}
		}

		return nil
	})
}

// GetByID returns an installment with its items, or nil
func (r *InstallmentRepository) GetByID(ctx context.Context, id int64) (*model.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1`

	inst, err := scanInstallment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get installment by id: %w", err)
	}

	items, err := listItems(ctx, r.pool, `SELECT `+itemColumns+` FROM installment_items WHERE installment_id = $1 ORDER BY number`, id)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		inst.Items = append(inst.Items, *it)
	}

	return inst, nil
}

// List returns every installment with its items
func (r *InstallmentRepository) List(ctx context.Context) ([]*model.Installment, error) {
	return listInstallments(ctx, r.pool)
}

// Delete removes an installment and its items
func (r *InstallmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM installments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete installment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetItem returns a single installment item or nil
func (r *InstallmentRepository) GetItem(ctx context.Context, itemID int64) (*model.InstallmentItem, error) {
	query := `SELECT ` + itemColumns + ` FROM installment_items WHERE id = $1`

	it, err := scanItem(r.pool.QueryRow(ctx, query, itemID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get installment item: %w", err)
	}

	return it, nil
}

// SetItemStatus flips an item between pending and paid.
// Returns false when the item already had the requested status.
func (r *InstallmentRepository) SetItemStatus(ctx context.Context, itemID int64, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	query := `
		UPDATE installment_items
		SET status = $2, paid_at = $3
		WHERE id = $1 AND status <> $2
	`

	tag, err := r.pool.Exec(ctx, query, itemID, status, paidAt)
	if err != nil {
		return false, fmt.Errorf("set installment item status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func listInstallments(ctx context.Context, q base.Querier) ([]*model.Installment, error) {
	rows, err := q.Query(ctx, `SELECT `+installmentColumns+` FROM installments ORDER BY first_due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var (
		installments []*model.Installment
		byID         = make(map[int64]*model.Installment)
	)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		installments = append(installments, inst)
		byID[inst.ID] = inst
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}

	items, err := listItems(ctx, q, `SELECT `+itemColumns+` FROM installment_items ORDER BY installment_id, number`)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if inst, ok := byID[it.InstallmentID]; ok {
			inst.Items = append(inst.Items, *it)
		}
	}

	return installments, nil
}

func listItems(ctx context.Context, q base.Querier, query string, args ...any) ([]*model.InstallmentItem, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list installment items: %w", err)
	}
	defer rows.Close()

	var items []*model.InstallmentItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installment items: %w", err)
	}

	return items, nil
}
