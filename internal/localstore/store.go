package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const mirrorKey = "finance"

// Store is the on-disk fallback used when Postgres is unreachable.
// It keeps a mirror of the finance dataset and a copy of every backup.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open creates (or reuses) the SQLite database at path
func Open(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create local store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn("Failed to apply sqlite pragma", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Local store ready", zap.String("path", path))
	return s, nil
}

func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS mirror (
			key        TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS backups (
			id         TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			reason     TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			size       INTEGER NOT NULL,
			counts     TEXT NOT NULL,
			data       BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backups_created_at ON backups (created_at)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init local store schema: %w", err)
		}
	}
	return nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMirror replaces the mirrored dataset
func (s *Store) SaveMirror(ctx context.Context, ds *model.Dataset, at time.Time) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode mirror: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mirror (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, mirrorKey, string(data), formatTime(at))
	if err != nil {
		return fmt.Errorf("save mirror: %w", err)
	}

	return nil
}

// LoadMirror returns the mirrored dataset and when it was written.
// A nil dataset means nothing was mirrored yet.
func (s *Store) LoadMirror(ctx context.Context) (*model.Dataset, time.Time, error) {
	var data, updatedAt string
	err := s.db.QueryRowContext(ctx, `SELECT data, updated_at FROM mirror WHERE key = ?`, mirrorKey).Scan(&data, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("load mirror: %w", err)
	}

	var ds model.Dataset
	if err := json.Unmarshal([]byte(data), &ds); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode mirror: %w", err)
	}

	at, err := parseTime(updatedAt)
	if err != nil {
		return nil, time.Time{}, err
	}

	return &ds, at, nil
}

// SaveBackup stores a backup. An id that is already stored is left untouched
// and repository.ErrDuplicate is returned.
func (s *Store) SaveBackup(ctx context.Context, b *model.Backup) error {
	counts, err := json.Marshal(b.Counts)
	if err != nil {
		return fmt.Errorf("encode backup counts: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backups (id, created_at, reason, checksum, size, counts, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, b.ID.String(), formatTime(b.CreatedAt), string(b.Reason), b.Checksum, b.Size, string(counts), b.Data)
	if err != nil {
		return fmt.Errorf("save local backup: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save local backup: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save local backup %s: %w", b.ID, repository.ErrDuplicate)
	}
	return nil
}

// GetBackup returns a backup with data, or nil
func (s *Store) GetBackup(ctx context.Context, id uuid.UUID) (*model.Backup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, reason, checksum, size, counts, data
		FROM backups
		WHERE id = ?
	`, id.String())

	b, err := scanBackup(row, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get local backup: %w", err)
	}

	return b, nil
}

// ListBackups returns backup metadata, newest first
func (s *Store) ListBackups(ctx context.Context) ([]*model.Backup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, reason, checksum, size, counts
		FROM backups
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list local backups: %w", err)
	}
	defer rows.Close()

	var backups []*model.Backup
	for rows.Next() {
		b, err := scanBackup(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan local backup: %w", err)
		}
		backups = append(backups, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate local backups: %w", err)
	}

	return backups, nil
}

// PruneBackups keeps the newest keep backups
func (s *Store) PruneBackups(ctx context.Context, keep int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM backups
		WHERE id NOT IN (SELECT id FROM backups ORDER BY created_at DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune local backups: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune local backups: %w", err)
	}

	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBackup(row scanner, withData bool) (*model.Backup, error) {
	var (
		b                 model.Backup
		id, createdAt     string
		reason, countsRaw string
	)

	dest := []any{&id, &createdAt, &reason, &b.Checksum, &b.Size, &countsRaw}
	if withData {
		dest = append(dest, &b.Data)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if b.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse backup id: %w", err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(countsRaw), &b.Counts); err != nil {
		return nil, fmt.Errorf("decode backup counts: %w", err)
	}
	b.Reason = model.BackupReason(reason)

	return &b, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse local timestamp: %w", err)
	}
	return t, nil
}
