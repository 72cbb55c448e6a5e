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

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, description, amount, due_date, category_id, status, paid_at, created_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID,
		&p.Description,
		&p.Amount,
		&p.DueDate,
		&p.CategoryID,
		&p.Status,
		&p.PaidAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a pending payment
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	query := `
		INSERT INTO payments (description, amount, due_date, category_id, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		p.Description,
		p.Amount,
		p.DueDate,
		p.CategoryID,
		p.Status,
		p.PaidAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

// GetByID returns a payment or nil
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by id: %w", err)
	}

	return p, nil
}

// List returns payments ordered by due date. An empty status lists all.
func (r *PaymentRepository) List(ctx context.Context, status model.PaymentStatus) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE $1 = '' OR status = $1
		ORDER BY due_date, id
	`

	return listPayments(ctx, r.pool, query, string(status))
}

// ListPendingDueBefore returns unpaid payments due before the given date
func (r *PaymentRepository) ListPendingDueBefore(ctx context.Context, before time.Time) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending' AND due_date < $1
		ORDER BY due_date, id
	`

	return listPayments(ctx, r.pool, query, before)
}

// SetStatus marks a payment paid (paidAt set) or pending (paidAt nil).
// Only rows currently in the opposite status are touched.
func (r *PaymentRepository) SetStatus(ctx context.Context, id int64, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, paid_at = $3
		WHERE id = $1 AND status <> $2
	`

	tag, err := r.pool.Exec(ctx, query, id, status, paidAt)
	if err != nil {
		return false, fmt.Errorf("set payment status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete removes a payment
func (r *PaymentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func listPayments(ctx context.Context, q base.Querier, query string, args ...any) ([]*model.Payment, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}
