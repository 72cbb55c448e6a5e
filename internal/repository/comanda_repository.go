package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ComandaRepository struct {
	pool *pgxpool.Pool
}

func NewComandaRepository(pool *pgxpool.Pool) *ComandaRepository {
	return &ComandaRepository{pool: pool}
}

const comandaColumns = `id, filiado_id, customer_name, status, opened_at, closed_at, payment_method, discount, total`

func scanComanda(row pgx.Row) (*model.Comanda, error) {
	var c model.Comanda
	err := row.Scan(
		&c.ID,
		&c.FiliadoID,
		&c.CustomerName,
		&c.Status,
		&c.OpenedAt,
		&c.ClosedAt,
		&c.PaymentMethod,
		&c.Discount,
		&c.Total,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Open inserts a new open comanda. A second open comanda for the same member yields ErrDuplicate.
func (r *ComandaRepository) Open(ctx context.Context, c *model.Comanda) error {
	query := `
		INSERT INTO comandas (filiado_id, customer_name, status)
		VALUES ($1, $2, 'aberta')
		RETURNING id, status, opened_at, discount, total
	`

	err := r.pool.QueryRow(ctx, query, c.FiliadoID, c.CustomerName).Scan(&c.ID, &c.Status, &c.OpenedAt, &c.Discount, &c.Total)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("open comanda: %w", err)
	}

	return nil
}

// GetByID returns a comanda with its items, or nil
func (r *ComandaRepository) GetByID(ctx context.Context, id int64) (*model.Comanda, error) {
	c, err := scanComanda(r.pool.QueryRow(ctx, `SELECT `+comandaColumns+` FROM comandas WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get comanda by id: %w", err)
	}

	if err := r.loadItems(ctx, []*model.Comanda{c}); err != nil {
		return nil, err
	}

	return c, nil
}

// List returns comandas, newest first. An empty status lists all.
func (r *ComandaRepository) List(ctx context.Context, status model.ComandaStatus) ([]*model.Comanda, error) {
	query := `
		SELECT ` + comandaColumns + `
		FROM comandas
		WHERE $1 = '' OR status = $1
		ORDER BY opened_at DESC, id DESC
	`
	return r.list(ctx, query, string(status))
}

// ListClosedBetween returns comandas closed in [from, to) with their items
func (r *ComandaRepository) ListClosedBetween(ctx context.Context, from, to time.Time) ([]*model.Comanda, error) {
	query := `
		SELECT ` + comandaColumns + `
		FROM comandas
		WHERE status = 'fechada' AND closed_at >= $1 AND closed_at < $2
		ORDER BY closed_at, id
	`
	return r.list(ctx, query, from, to)
}

// AddItem locks the comanda and the product, checks stock, decrements it when tracked
// and records the item with the current product price.
func (r *ComandaRepository) AddItem(ctx context.Context, comandaID, produtoID int64, quantity int) (*model.ItemComanda, error) {
	var item model.ItemComanda

	err := base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockOpenComanda(ctx, tx, comandaID); err != nil {
			return err
		}

		var (
			price      decimal.Decimal
			trackStock bool
			stock      int
		)
		err := tx.QueryRow(ctx, `
			SELECT name, category, price, track_stock, stock
			FROM produtos
			WHERE id = $1
			FOR UPDATE
		`, produtoID).Scan(&item.ProdutoName, &item.Category, &price, &trackStock, &stock)
		if err != nil {
			return fmt.Errorf("lock produto: %w", err)
		}

		if trackStock {
			if stock < quantity {
				return ErrInsufficientStock
			}
			if _, err := tx.Exec(ctx, `UPDATE produtos SET stock = stock - $2 WHERE id = $1`, produtoID, quantity); err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}

		item.ComandaID = comandaID
		item.ProdutoID = produtoID
		item.Quantity = quantity
		item.UnitPrice = price
		item.Subtotal = price.Mul(decimal.NewFromInt(int64(quantity)))

		err = tx.QueryRow(ctx, `
			INSERT INTO itens_comanda (comanda_id, produto_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`, item.ComandaID, item.ProdutoID, item.Quantity, item.UnitPrice, item.Subtotal).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert comanda item: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// RemoveItem deletes an item from an open comanda and gives its units back to stock
func (r *ComandaRepository) RemoveItem(ctx context.Context, comandaID, itemID int64) (bool, error) {
	removed := false

	err := base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockOpenComanda(ctx, tx, comandaID); err != nil {
			return err
		}

		var (
			produtoID int64
			quantity  int
		)
		err := tx.QueryRow(ctx, `
			DELETE FROM itens_comanda
			WHERE id = $1 AND comanda_id = $2
			RETURNING produto_id, quantity
		`, itemID, comandaID).Scan(&produtoID, &quantity)
		if err != nil {
			if base.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("delete comanda item: %w", err)
		}
		removed = true

		_, err = tx.Exec(ctx, `UPDATE produtos SET stock = stock + $2 WHERE id = $1 AND track_stock`, produtoID, quantity)
		if err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return removed, nil
}

// Close settles an open comanda: total = subtotal - discount
func (r *ComandaRepository) Close(ctx context.Context, id int64, method model.PaymentMethod, discount decimal.Decimal, at time.Time) error {
	return base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockOpenComanda(ctx, tx, id); err != nil {
			return err
		}

		var subtotal decimal.Decimal
		err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(subtotal), 0) FROM itens_comanda WHERE comanda_id = $1`, id).Scan(&subtotal)
		if err != nil {
			return fmt.Errorf("sum comanda items: %w", err)
		}
		if discount.GreaterThan(subtotal) {
			return ErrDiscountTooHigh
		}

		_, err = tx.Exec(ctx, `
			UPDATE comandas
			SET status = 'fechada', closed_at = $2, payment_method = $3, discount = $4, total = $5
			WHERE id = $1
		`, id, at, method, discount, subtotal.Sub(discount))
		if err != nil {
			return fmt.Errorf("close comanda: %w", err)
		}

		return nil
	})
}

// Cancel voids an open comanda and restores the stock of all its items
func (r *ComandaRepository) Cancel(ctx context.Context, id int64, at time.Time) error {
	return base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockOpenComanda(ctx, tx, id); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			UPDATE produtos p
			SET stock = p.stock + i.quantity
			FROM (
				SELECT produto_id, SUM(quantity) AS quantity
				FROM itens_comanda
				WHERE comanda_id = $1
				GROUP BY produto_id
			) i
			WHERE p.id = i.produto_id AND p.track_stock
		`, id)
		if err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}

		_, err = tx.Exec(ctx, `UPDATE comandas SET status = 'cancelada', closed_at = $2 WHERE id = $1`, id, at)
		if err != nil {
			return fmt.Errorf("cancel comanda: %w", err)
		}

		return nil
	})
}

func lockOpenComanda(ctx context.Context, tx pgx.Tx, id int64) error {
	var status model.ComandaStatus
	err := tx.QueryRow(ctx, `SELECT status FROM comandas WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		return fmt.Errorf("lock comanda: %w", err)
	}
	if status != model.ComandaAberta {
		return ErrComandaNotOpen
	}
	return nil
}

func (r *ComandaRepository) list(ctx context.Context, query string, args ...any) ([]*model.Comanda, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comandas: %w", err)
	}
	defer rows.Close()

	var comandas []*model.Comanda
	for rows.Next() {
		c, err := scanComanda(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comanda: %w", err)
		}
		comandas = append(comandas, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comandas: %w", err)
	}

	if err := r.loadItems(ctx, comandas); err != nil {
		return nil, err
	}

	return comandas, nil
}

// loadItems attaches items (with product name and category) to the given comandas
func (r *ComandaRepository) loadItems(ctx context.Context, comandas []*model.Comanda) error {
	if len(comandas) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(comandas))
	byID := make(map[int64]*model.Comanda, len(comandas))
	for _, c := range comandas {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.comanda_id, i.produto_id, p.name, p.category, i.quantity, i.unit_price, i.subtotal, i.created_at
		FROM itens_comanda i
		JOIN produtos p ON p.id = i.produto_id
		WHERE i.comanda_id = ANY($1)
		ORDER BY i.comanda_id, i.id
	`, ids)
	if err != nil {
		return fmt.Errorf("list comanda items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.ItemComanda
		err := rows.Scan(
			&it.ID,
			&it.ComandaID,
			&it.ProdutoID,
			&it.ProdutoName,
			&it.Category,
			&it.Quantity,
			&it.UnitPrice,
			&it.Subtotal,
			&it.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan comanda item: %w", err)
		}
		if c, ok := byID[it.ComandaID]; ok {
			c.Items = append(c.Items, it)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate comanda items: %w", err)
	}

	return nil
}
