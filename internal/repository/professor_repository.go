package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfessorRepository struct {
	pool *pgxpool.Pool
}

func NewProfessorRepository(pool *pgxpool.Pool) *ProfessorRepository {
	return &ProfessorRepository{pool: pool}
}

const professorColumns = `id, name, email, cpf, department, external, active, created_at`

func scanProfessor(row pgx.Row) (*model.Professor, error) {
	var p model.Professor
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CPF, &p.Department, &p.External, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a professor
func (r *ProfessorRepository) Create(ctx context.Context, p *model.Professor) error {
	query := `
		INSERT INTO professors (name, email, cpf, department, external, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, p.Name, p.Email, p.CPF, p.Department, p.External, p.Active).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create professor: %w", err)
	}

	return nil
}

// GetByIDs returns the professors found among ids, keyed by id
func (r *ProfessorRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Professor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+professorColumns+` FROM professors WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get professors: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]*model.Professor, len(ids))
	for rows.Next() {
		p, err := scanProfessor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan professor: %w", err)
		}
		result[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate professors: %w", err)
	}

	return result, nil
}

// List returns professors by name
func (r *ProfessorRepository) List(ctx context.Context, activeOnly bool) ([]*model.Professor, error) {
	query := `
		SELECT ` + professorColumns + `
		FROM professors
		WHERE active OR NOT $1
		ORDER BY name, id
	`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	defer rows.Close()

	var professors []*model.Professor
	for rows.Next() {
		p, err := scanProfessor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan professor: %w", err)
		}
		professors = append(professors, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate professors: %w", err)
	}

	return professors, nil
}
