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

type DefenseRepository struct {
	pool *pgxpool.Pool
}

func NewDefenseRepository(pool *pgxpool.Pool) *DefenseRepository {
	return &DefenseRepository{pool: pool}
}

const defenseColumns = `id, student_name, student_cpf, registration, program, kind, title, advisor_id,
	starts_at, duration, modality, room, status, created_at`

func scanDefense(row pgx.Row) (*model.Defense, error) {
	var d model.Defense
	err := row.Scan(
		&d.ID,
		&d.StudentName,
		&d.StudentCPF,
		&d.Registration,
		&d.Program,
		&d.Kind,
		&d.Title,
		&d.AdvisorID,
		&d.StartsAt,
		&d.Duration,
		&d.Modality,
		&d.Room,
		&d.Status,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create stores a defense request with its board members
func (r *DefenseRepository) Create(ctx context.Context, d *model.Defense) error {
	return base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO defenses (student_name, student_cpf, registration, program, kind, title,
			                      advisor_id, starts_at, duration, modality, room, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at
		`
		err := tx.QueryRow(
			ctx, query,
			d.StudentName,
			d.StudentCPF,
			d.Registration,
			d.Program,
			d.Kind,
			d.Title,
			d.AdvisorID,
			d.StartsAt,
			d.Duration,
			d.Modality,
			d.Room,
			d.Status,
		).Scan(&d.ID, &d.CreatedAt)
		if err != nil {
			return fmt.Errorf("create defense: %w", err)
		}

		for i, memberID := range d.MemberIDs {
			_, err := tx.Exec(ctx,
				`INSERT INTO defense_members (defense_id, professor_id, position) VALUES ($1, $2, $3)`,
				d.ID, memberID, i,
			)
			if err != nil {
				return fmt.Errorf("add defense member: %w", err)
			}
		}

		return nil
	})
}

// GetByID returns a defense with its members, or nil
func (r *DefenseRepository) GetByID(ctx context.Context, id int64) (*model.Defense, error) {
	d, err := scanDefense(r.pool.QueryRow(ctx, `SELECT `+defenseColumns+` FROM defenses WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get defense by id: %w", err)
	}

	if err := r.loadMembers(ctx, []*model.Defense{d}); err != nil {
		return nil, err
	}

	return d, nil
}

// List returns defenses starting in [from, to). Zero bounds are open.
func (r *DefenseRepository) List(ctx context.Context, from, to time.Time, status model.DefenseStatus) ([]*model.Defense, error) {
	query := `
		SELECT ` + defenseColumns + `
		FROM defenses
		WHERE ($1::timestamptz IS NULL OR starts_at >= $1)
		  AND ($2::timestamptz IS NULL OR starts_at < $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY starts_at, id
	`

	return r.list(ctx, query, nullableTime(from), nullableTime(to), string(status))
}

// ListActiveOverlapping returns non-cancelled defenses that intersect [from, to)
func (r *DefenseRepository) ListActiveOverlapping(ctx context.Context, from, to time.Time) ([]*model.Defense, error) {
	query := `
		SELECT ` + defenseColumns + `
		FROM defenses
		WHERE status <> 'cancelada'
		  AND starts_at < $2
		  AND starts_at + make_interval(mins => duration) > $1
		ORDER BY starts_at, id
	`

	return r.list(ctx, query, from, to)
}

// UpdateStatus moves a defense to status when it is currently in one of from.
// Returns false when no row matched.
func (r *DefenseRepository) UpdateStatus(ctx context.Context, id int64, status model.DefenseStatus, from ...model.DefenseStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE defenses SET status = $2 WHERE id = $1 AND status = ANY($3)`,
		id, status, allowed,
	)
	if err != nil {
		return false, fmt.Errorf("update defense status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *DefenseRepository) list(ctx context.Context, query string, args ...any) ([]*model.Defense, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list defenses: %w", err)
	}
	defer rows.Close()

	var defenses []*model.Defense
	for rows.Next() {
		d, err := scanDefense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan defense: %w", err)
		}
		defenses = append(defenses, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate defenses: %w", err)
	}

	if err := r.loadMembers(ctx, defenses); err != nil {
		return nil, err
	}

	return defenses, nil
}

func (r *DefenseRepository) loadMembers(ctx context.Context, defenses []*model.Defense) error {
	if len(defenses) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(defenses))
	byID := make(map[int64]*model.Defense, len(defenses))
	for _, d := range defenses {
		ids = append(ids, d.ID)
		byID[d.ID] = d
	}

	rows, err := r.pool.Query(ctx, `
		SELECT defense_id, professor_id
		FROM defense_members
		WHERE defense_id = ANY($1)
		ORDER BY defense_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("list defense members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var defenseID, professorID int64
		if err := rows.Scan(&defenseID, &professorID); err != nil {
			return fmt.Errorf("scan defense member: %w", err)
		}
		if d, ok := byID[defenseID]; ok {
			d.MemberIDs = append(d.MemberIDs, professorID)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate defense members: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
