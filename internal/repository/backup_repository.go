package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BackupRepository struct {
	pool *pgxpool.Pool
}

func NewBackupRepository(pool *pgxpool.Pool) *BackupRepository {
	return &BackupRepository{pool: pool}
}

// Save stores a backup with its encoded snapshot
func (r *BackupRepository) Save(ctx context.Context, b *model.Backup) error {
	counts, err := json.Marshal(b.Counts)
	if err != nil {
		return fmt.Errorf("encode backup counts: %w", err)
	}

	query := `
		INSERT INTO backups (id, created_at, reason, checksum, size, counts, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query, b.ID, b.CreatedAt, b.Reason, b.Checksum, b.Size, counts, b.Data)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("save backup: %w", err)
	}

	return nil
}

// Get returns a backup including its data, or nil
func (r *BackupRepository) Get(ctx context.Context, id uuid.UUID) (*model.Backup, error) {
	query := `
		SELECT id, created_at, reason, checksum, size, counts, data
		FROM backups
		WHERE id = $1
	`

	var (
		b      model.Backup
		counts []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&b.ID, &b.CreatedAt, &b.Reason, &b.Checksum, &b.Size, &counts, &b.Data)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get backup: %w", err)
	}

	if err := json.Unmarshal(counts, &b.Counts); err != nil {
		return nil, fmt.Errorf("decode backup counts: %w", err)
	}

	return &b, nil
}

// List returns backup metadata without data, newest first
func (r *BackupRepository) List(ctx context.Context) ([]*model.Backup, error) {
	query := `
		SELECT id, created_at, reason, checksum, size, counts
		FROM backups
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []*model.Backup
	for rows.Next() {
		var (
			b      model.Backup
			counts []byte
		)
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.Reason, &b.Checksum, &b.Size, &counts); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		if err := json.Unmarshal(counts, &b.Counts); err != nil {
			return nil, fmt.Errorf("decode backup counts: %w", err)
		}
		backups = append(backups, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}

	return backups, nil
}

// Prune keeps the newest keep backups and deletes the rest
func (r *BackupRepository) Prune(ctx context.Context, keep int) (int, error) {
	query := `
		DELETE FROM backups
		WHERE id NOT IN (
			SELECT id FROM backups ORDER BY created_at DESC LIMIT $1
		)
	`

	tag, err := r.pool.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune backups: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
