package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProdutoRepository struct {
	pool *pgxpool.Pool
}

func NewProdutoRepository(pool *pgxpool.Pool) *ProdutoRepository {
	return &ProdutoRepository{pool: pool}
}

const produtoColumns = `id, name, category, price, track_stock, stock, active, created_at`

func scanProduto(row pgx.Row) (*model.Produto, error) {
	var p model.Produto
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.TrackStock, &p.Stock, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a product
func (r *ProdutoRepository) Create(ctx context.Context, p *model.Produto) error {
	query := `
		INSERT INTO produtos (name, category, price, track_stock, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, p.Name, p.Category, p.Price, p.TrackStock, p.Stock, p.Active).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create produto: %w", err)
	}

	return nil
}

// GetByID returns a product or nil
func (r *ProdutoRepository) GetByID(ctx context.Context, id int64) (*model.Produto, error) {
	p, err := scanProduto(r.pool.QueryRow(ctx, `SELECT `+produtoColumns+` FROM produtos WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get produto by id: %w", err)
	}
	return p, nil
}

// List returns products grouped by category
func (r *ProdutoRepository) List(ctx context.Context, activeOnly bool) ([]*model.Produto, error) {
	query := `
		SELECT ` + produtoColumns + `
		FROM produtos
		WHERE active OR NOT $1
		ORDER BY category, name, id
	`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list produtos: %w", err)
	}
	defer rows.Close()

	var produtos []*model.Produto
	for rows.Next() {
		p, err := scanProduto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan produto: %w", err)
		}
		produtos = append(produtos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate produtos: %w", err)
	}

	return produtos, nil
}

// Update rewrites a product, stock included
func (r *ProdutoRepository) Update(ctx context.Context, p *model.Produto) (bool, error) {
	query := `
		UPDATE produtos
		SET name = $2, category = $3, price = $4, track_stock = $5, stock = $6, active = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Category, p.Price, p.TrackStock, p.Stock, p.Active)
	if err != nil {
		return false, fmt.Errorf("update produto: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
