package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DatasetRepository reads and replaces the whole finance state at once
type DatasetRepository struct {
	pool *pgxpool.Pool
}

func NewDatasetRepository(pool *pgxpool.Pool) *DatasetRepository {
	return &DatasetRepository{pool: pool}
}

// Load reads every finance table from a single consistent snapshot
func (r *DatasetRepository) Load(ctx context.Context) (*model.Dataset, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin load dataset: %w", err)
	}
	defer tx.Rollback(ctx)

	ds := &model.Dataset{}

	if ds.Categories, err = listCategories(ctx, tx); err != nil {
		return nil, err
	}
	if ds.Transactions, err = listTransactions(ctx, tx, `SELECT `+transactionColumns+` FROM transactions ORDER BY id`); err != nil {
		return nil, err
	}
	if ds.Payments, err = listPayments(ctx, tx, `SELECT `+paymentColumns+` FROM payments ORDER BY id`); err != nil {
		return nil, err
	}
	if ds.Installments, err = listInstallments(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit load dataset: %w", err)
	}

	return ds, nil
}

// Replace wipes the finance tables and writes ds with its original ids.
// Sequences are moved past the highest restored id.
func (r *DatasetRepository) Replace(ctx context.Context, ds *model.Dataset) error {
	return base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `TRUNCATE installment_items, installments, payments, transactions, categories RESTART IDENTITY`)
		if err != nil {
			return fmt.Errorf("truncate finance tables: %w", err)
		}

		for _, c := range ds.Categories {
			_, err := tx.Exec(ctx,
				`INSERT INTO categories (id, name, kind, color, created_at) VALUES ($1, $2, $3, $4, $5)`,
				c.ID, c.Name, c.Kind, c.Color, c.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("restore category %d: %w", c.ID, err)
			}
		}

		for _, t := range ds.Transactions {
			_, err := tx.Exec(ctx,
				`INSERT INTO transactions (`+transactionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				t.ID, t.Description, t.Amount, t.Kind, t.CategoryID, t.Date, t.Notes, t.CreatedAt, t.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("restore transaction %d: %w", t.ID, err)
			}
		}

		for _, p := range ds.Payments {
			_, err := tx.Exec(ctx,
				`INSERT INTO payments (`+paymentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				p.ID, p.Description, p.Amount, p.DueDate, p.CategoryID, p.Status, p.PaidAt, p.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("restore payment %d: %w", p.ID, err)
			}
		}

		for _, inst := range ds.Installments {
			_, err := tx.Exec(ctx,
				`INSERT INTO installments (`+installmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				inst.ID, inst.Description, inst.TotalAmount, inst.Count, inst.FirstDueDate, inst.CategoryID, inst.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("restore installment %d: %w", inst.ID, err)
			}
			for _, it := range inst.Items {
				_, err := tx.Exec(ctx,
					`INSERT INTO installment_items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					it.ID, inst.ID, it.Number, it.DueDate, it.Amount, it.Status, it.PaidAt,
				)
				if err != nil {
					return fmt.Errorf("restore installment item %d: %w", it.ID, err)
				}
			}
		}

		for _, table := range []string{"categories", "transactions", "payments", "installments", "installment_items"} {
			query := fmt.Sprintf(
				`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %[1]s`,
				table,
			)
			if _, err := tx.Exec(ctx, query); err != nil {
				return fmt.Errorf("reset %s sequence: %w", table, err)
			}
		}

		return nil
	})
}
