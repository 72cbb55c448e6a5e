package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type MirrorSyncer interface {
	SyncMirror(ctx context.Context) error
}

type Backupper interface {
	Create(ctx context.Context, reason model.BackupReason) (*model.Backup, error)
	Prune(ctx context.Context, keep int) (*service.PruneResult, error)
}

type ReportGenerator interface {
	GenerateCurrent(ctx context.Context) error
}

// SchedulerConfig sets how often each job runs
type SchedulerConfig struct {
	MirrorSyncInterval time.Duration
	BackupInterval     time.Duration
	ReportInterval     time.Duration
	BackupRetention    int
}

// Scheduler runs the background jobs: local mirror sync, automatic backup with
// pruning, and regeneration of the current reports
type Scheduler struct {
	mirror   MirrorSyncer
	backups  Backupper
	reports  ReportGenerator
	cfg      SchedulerConfig
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	group    *errgroup.Group
}

func NewScheduler(mirror MirrorSyncer, backups Backupper, reports ReportGenerator, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		mirror:   mirror,
		backups:  backups,
		reports:  reports,
		cfg:      cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
		group:    &errgroup.Group{},
	}
}

// Start launches one goroutine per job; each runs once right away
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("mirror_sync", s.cfg.MirrorSyncInterval),
		zap.Duration("backup", s.cfg.BackupInterval),
		zap.Duration("reports", s.cfg.ReportInterval),
	)

	s.run(ctx, "mirror_sync", s.cfg.MirrorSyncInterval, s.syncMirror)
	s.run(ctx, "auto_backup", s.cfg.BackupInterval, s.autoBackup)
	s.run(ctx, "reports", s.cfg.ReportInterval, s.generateReports)
}

// Stop ends every job and waits for the running ones to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	_ = s.group.Wait()
}

func (s *Scheduler) run(ctx context.Context, name string, interval time.Duration, job func(context.Context)) {
	if interval <= 0 {
		s.logger.Info("Background job disabled", zap.String("job", name))
		return
	}

	s.group.Go(func() error {
		job(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				job(ctx)
			case <-s.stopChan:
				s.logger.Info("Background job stopped", zap.String("job", name))
				return nil
			case <-ctx.Done():
				s.logger.Info("Background job cancelled", zap.String("job", name))
				return nil
			}
		}
	})
}

func (s *Scheduler) syncMirror(ctx context.Context) {
	if err := s.mirror.SyncMirror(ctx); err != nil {
		// remote down: keep serving the previous mirror
		s.logger.Warn("Mirror sync failed", zap.Error(err))
	}
}

func (s *Scheduler) autoBackup(ctx context.Context) {
	b, err := s.backups.Create(ctx, model.BackupReasonAuto)
	if err != nil {
		s.logger.Error("Automatic backup failed", zap.Error(err))
		return
	}
	s.logger.Info("Automatic backup created", zap.String("backup_id", b.ID.String()))

	res, err := s.backups.Prune(ctx, s.cfg.BackupRetention)
	if err != nil {
		s.logger.Error("Backup pruning failed", zap.Error(err))
		return
	}
	if res.Remote > 0 || res.Local > 0 {
		s.logger.Info("Old backups pruned", zap.Int("remote", res.Remote), zap.Int("local", res.Local))
	}
}

func (s *Scheduler) generateReports(ctx context.Context) {
	if err := s.reports.GenerateCurrent(ctx); err != nil {
		s.logger.Error("Report generation failed", zap.Error(err))
		return
	}
	s.logger.Debug("Current reports regenerated")
}
