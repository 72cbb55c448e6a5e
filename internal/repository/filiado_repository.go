package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FiliadoRepository struct {
	pool *pgxpool.Pool
}

func NewFiliadoRepository(pool *pgxpool.Pool) *FiliadoRepository {
	return &FiliadoRepository{pool: pool}
}

const filiadoColumns = `id, name, cpf, cr, phone, email, active, created_at`

func scanFiliado(row pgx.Row) (*model.Filiado, error) {
	var f model.Filiado
	if err := row.Scan(&f.ID, &f.Name, &f.CPF, &f.CR, &f.Phone, &f.Email, &f.Active, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a member. A repeated CPF yields ErrDuplicate.
func (r *FiliadoRepository) Create(ctx context.Context, f *model.Filiado) error {
	query := `
		INSERT INTO filiados (name, cpf, cr, phone, email, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, f.Name, f.CPF, f.CR, f.Phone, f.Email, f.Active).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create filiado: %w", err)
	}

	return nil
}

// GetByID returns a member or nil
func (r *FiliadoRepository) GetByID(ctx context.Context, id int64) (*model.Filiado, error) {
	f, err := scanFiliado(r.pool.QueryRow(ctx, `SELECT `+filiadoColumns+` FROM filiados WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get filiado by id: %w", err)
	}
	return f, nil
}

// GetByCPF looks a member up by normalized CPF
func (r *FiliadoRepository) GetByCPF(ctx context.Context, cpf string) (*model.Filiado, error) {
	f, err := scanFiliado(r.pool.QueryRow(ctx, `SELECT `+filiadoColumns+` FROM filiados WHERE cpf = $1`, cpf))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get filiado by cpf: %w", err)
	}
	return f, nil
}

// List returns members by name
func (r *FiliadoRepository) List(ctx context.Context, activeOnly bool) ([]*model.Filiado, error) {
	query := `
		SELECT ` + filiadoColumns + `
		FROM filiados
		WHERE active OR NOT $1
		ORDER BY name, id
	`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list filiados: %w", err)
	}
	defer rows.Close()

	var filiados []*model.Filiado
	for rows.Next() {
		f, err := scanFiliado(rows)
		if err != nil {
			return nil, fmt.Errorf("scan filiado: %w", err)
		}
		filiados = append(filiados, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filiados: %w", err)
	}

	return filiados, nil
}

// Update rewrites a member
func (r *FiliadoRepository) Update(ctx context.Context, f *model.Filiado) (bool, error) {
	query := `
		UPDATE filiados
		SET name = $2, cpf = $3, cr = $4, phone = $5, email = $6, active = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, f.ID, f.Name, f.CPF, f.CR, f.Phone, f.Email, f.Active)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return false, ErrDuplicate
		}
		return false, fmt.Errorf("update filiado: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
