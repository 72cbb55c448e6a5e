package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/backup"
	"github.com/Freeeeeet/bizsuite/internal/events"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RestoreResult describes a finished restore
type RestoreResult struct {
	Restored   *model.Backup `json:"restored"`
	Location   string        `json:"location"`
	PreRestore *model.Backup `json:"pre_restore"`
	Counts     model.Counts  `json:"counts"`
}

// PruneResult reports how many backups each store dropped
type PruneResult struct {
	Remote int `json:"remote"`
	Local  int `json:"local"`
}

// BackupService owns the backup/restore contract and the local mirror.
// Postgres is the source of truth; SQLite keeps a copy of every backup and the last
// known dataset for when Postgres is unreachable.
type BackupService struct {
	datasetRepo DatasetRepo
	backupRepo  BackupRepo
	local       LocalStore
	publisher   events.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

func NewBackupService(
	datasetRepo DatasetRepo,
	backupRepo BackupRepo,
	local LocalStore,
	publisher events.Publisher,
	logger *zap.Logger,
) *BackupService {
	return &BackupService{
		datasetRepo: datasetRepo,
		backupRepo:  backupRepo,
		local:       local,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// LoadDataset reads the finance dataset from Postgres, falling back to the local mirror.
// The returned source is model.SourceRemote or model.SourceLocal.
func (s *BackupService) LoadDataset(ctx context.Context) (*model.Dataset, string, error) {
	ds, err := s.datasetRepo.Load(ctx)
	if err == nil {
		return ds, model.SourceRemote, nil
	}

	s.logger.Warn("Remote dataset unavailable, using local mirror", zap.Error(err))

	mirror, at, mirrorErr := s.local.LoadMirror(ctx)
	if mirrorErr != nil {
		return nil, "", fmt.Errorf("load dataset: %w", errors.Join(err, mirrorErr))
	}
	if mirror == nil {
		return nil, "", fmt.Errorf("load dataset (no local mirror): %w", err)
	}

	s.logger.Info("Serving dataset from local mirror", zap.Time("mirrored_at", at))
	return mirror, model.SourceLocal, nil
}

// SyncMirror copies the current remote dataset into the local store
func (s *BackupService) SyncMirror(ctx context.Context) error {
	ds, err := s.datasetRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load remote dataset: %w", err)
	}
	if err := s.local.SaveMirror(ctx, ds, s.now()); err != nil {
		return fmt.Errorf("save mirror: %w", err)
	}

	s.logger.Debug("Local mirror synced", zap.Any("counts", ds.Counts()))
	return nil
}

// Create snapshots the dataset and writes it to both stores.
// It succeeds when at least one store kept the backup.
func (s *BackupService) Create(ctx context.Context, reason model.BackupReason) (*model.Backup, error) {
	ds, source, err := s.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}

	b, err := backup.New(ds, reason, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Backup created",
		zap.String("backup_id", b.ID.String()),
		zap.String("reason", string(reason)),
		zap.String("source", source),
		zap.Strings("locations", b.Locations),
		zap.Int("size", b.Size),
	)
	s.publish(ctx, events.TypeBackupCreated, b)
	return b, nil
}

// store writes b to Postgres and SQLite concurrently and fills b.Locations
func (s *BackupService) store(ctx context.Context, b *model.Backup) error {
	var remoteErr, localErr error

	var g errgroup.Group
	g.Go(func() error {
		remoteErr = s.backupRepo.Save(ctx, b)
		return nil
	})
	g.Go(func() error {
		localErr = s.local.SaveBackup(ctx, b)
		return nil
	})
	_ = g.Wait()

	b.Locations = nil
	if remoteErr == nil {
		b.Locations = append(b.Locations, model.BackupLocationRemote)
	} else {
		s.logger.Warn("Remote backup write failed", zap.String("backup_id", b.ID.String()), zap.Error(remoteErr))
	}
	if localErr == nil {
		b.Locations = append(b.Locations, model.BackupLocationLocal)
	} else {
		s.logger.Warn("Local backup write failed", zap.String("backup_id", b.ID.String()), zap.Error(localErr))
	}

	if errors.Is(remoteErr, repository.ErrDuplicate) || errors.Is(localErr, repository.ErrDuplicate) {
		return fmt.Errorf("backup %s already exists: %w", b.ID, ErrConflict)
	}
	if len(b.Locations) == 0 {
		return fmt.Errorf("store backup: %w", errors.Join(remoteErr, localErr))
	}
	return nil
}

// List merges the backups of both stores, newest first
func (s *BackupService) List(ctx context.Context) ([]*model.Backup, error) {
	remote, remoteErr := s.backupRepo.List(ctx)
	if remoteErr != nil {
		s.logger.Warn("List remote backups failed", zap.Error(remoteErr))
	}
	local, localErr := s.local.ListBackups(ctx)
	if localErr != nil {
		s.logger.Warn("List local backups failed", zap.Error(localErr))
	}
	if remoteErr != nil && localErr != nil {
		return nil, fmt.Errorf("list backups: %w", errors.Join(remoteErr, localErr))
	}

	return mergeBackups(remote, local), nil
}

func mergeBackups(remote, local []*model.Backup) []*model.Backup {
	byID := make(map[uuid.UUID]*model.Backup)
	var out []*model.Backup

	add := func(list []*model.Backup, location string) {
		for _, b := range list {
			if existing, ok := byID[b.ID]; ok {
				existing.Locations = append(existing.Locations, location)
				continue
			}
			b.Locations = []string{location}
			byID[b.ID] = b
			out = append(out, b)
		}
	}
	add(remote, model.BackupLocationRemote)
	add(local, model.BackupLocationLocal)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Get returns a backup with its data, preferring the remote copy
func (s *BackupService) Get(ctx context.Context, id uuid.UUID) (*model.Backup, string, error) {
	b, err := s.backupRepo.Get(ctx, id)
	if err != nil {
		s.logger.Warn("Get remote backup failed", zap.String("backup_id", id.String()), zap.Error(err))
	}
	if b != nil {
		return b, model.BackupLocationRemote, nil
	}

	lb, lerr := s.local.GetBackup(ctx, id)
	if lerr != nil {
		return nil, "", fmt.Errorf("get backup: %w", errors.Join(err, lerr))
	}
	if lb == nil {
		if err != nil {
			return nil, "", fmt.Errorf("get backup: %w", err)
		}
		return nil, "", notFound("backup", id)
	}
	return lb, model.BackupLocationLocal, nil
}

// Restore replaces the finance data with the content of backup id.
// A pre-restore backup of the current data is taken first; the restore is aborted
// if that fails.
func (s *BackupService) Restore(ctx context.Context, id uuid.UUID) (*RestoreResult, error) {
	b, location, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.restore(ctx, b, location)
}

// RestoreLatest restores the newest backup that passes verification in either store
func (s *BackupService) RestoreLatest(ctx context.Context) (*RestoreResult, error) {
	candidates, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}

	best, err := backup.SelectLatest(candidates)
	if err != nil {
		return nil, fmt.Errorf("restore latest: %w", ErrNotFound)
	}
	return s.restore(ctx, best.Backup, best.Location)
}

func (s *BackupService) restore(ctx context.Context, b *model.Backup, location string) (*RestoreResult, error) {
	snap, err := backup.Verify(b)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"backup": err.Error()}, Err: ErrInvalidState}
	}

	pre, err := s.Create(ctx, model.BackupReasonPreRestore)
	if err != nil {
		return nil, fmt.Errorf("pre-restore backup: %w", err)
	}

	if err := s.datasetRepo.Replace(ctx, &snap.Dataset); err != nil {
		return nil, fmt.Errorf("replace dataset: %w", err)
	}

	if err := s.SyncMirror(ctx); err != nil {
		s.logger.Warn("Mirror refresh after restore failed", zap.Error(err))
	}

	s.logger.Info("Backup restored",
		zap.String("backup_id", b.ID.String()),
		zap.String("location", location),
		zap.String("pre_restore_id", pre.ID.String()),
	)

	return &RestoreResult{
		Restored:   b,
		Location:   location,
		PreRestore: pre,
		Counts:     snap.Dataset.Counts(),
	}, nil
}

// candidates loads every backup (with data) of both stores
func (s *BackupService) candidates(ctx context.Context) ([]backup.Candidate, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []backup.Candidate
	for _, meta := range list {
		for _, location := range meta.Locations {
			var (
				b   *model.Backup
				err error
			)
			if location == model.BackupLocationRemote {
				b, err = s.backupRepo.Get(ctx, meta.ID)
			} else {
				b, err = s.local.GetBackup(ctx, meta.ID)
			}
			if err != nil || b == nil {
				s.logger.Warn("Skip unreadable backup", zap.String("backup_id", meta.ID.String()), zap.String("location", location), zap.Error(err))
				continue
			}
			out = append(out, backup.Candidate{Backup: b, Location: location})
		}
	}
	return out, nil
}

// Prune keeps the newest keep backups in each store
func (s *BackupService) Prune(ctx context.Context, keep int) (*PruneResult, error) {
	if keep < 1 {
		return nil, &ValidationError{Fields: map[string]string{"keep": "must be at least 1"}}
	}

	var (
		res                 PruneResult
		remoteErr, localErr error
	)
	res.Remote, remoteErr = s.backupRepo.Prune(ctx, keep)
	if remoteErr != nil {
		s.logger.Warn("Prune remote backups failed", zap.Error(remoteErr))
	}
	res.Local, localErr = s.local.PruneBackups(ctx, keep)
	if localErr != nil {
		s.logger.Warn("Prune local backups failed", zap.Error(localErr))
	}
	if remoteErr != nil && localErr != nil {
		return nil, fmt.Errorf("prune backups: %w", errors.Join(remoteErr, localErr))
	}

	s.logger.Info("Backups pruned", zap.Int("keep", keep), zap.Int("remote", res.Remote), zap.Int("local", res.Local))
	return &res, nil
}

// Export writes backup id to w in the export file format
func (s *BackupService) Export(ctx context.Context, id uuid.UUID, w io.Writer) error {
	b, _, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup.ToFile(b)); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Import reads an export file, verifies it and stores it in both stores
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*model.Backup, error) {
	var f backup.File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"file": "not a backup export: " + err.Error()}}
	}

	b, err := backup.FromFile(&f)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"file": err.Error()}}
	}
	b.Reason = model.BackupReasonImport
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	if err := s.store(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Backup imported", zap.String("backup_id", b.ID.String()), zap.Strings("locations", b.Locations))
	s.publish(ctx, events.TypeBackupCreated, b)
	return b, nil
}

func (s *BackupService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn("Publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}
