package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/config"
	"github.com/Freeeeeet/bizsuite/internal/events"
	"github.com/Freeeeeet/bizsuite/internal/localstore"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/Freeeeeet/bizsuite/internal/schedule"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the shared infrastructure and the services every entrypoint uses
type App struct {
	Pool      *pgxpool.Pool
	Local     *localstore.Store
	Publisher events.Publisher

	Finance *service.FinanceService
	Reports *service.ReportService
	Backups *service.BackupService
	Pos     *service.PosService
	Defense *service.DefenseService

	logger  *zap.Logger
	closers []func() error
}

// New connects to Postgres and the local store and builds the services.
// An unreachable Postgres is logged, not fatal: reads fall back to the local mirror.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("⚠️ Postgres unreachable, serving from the local mirror", zap.Error(err))
	}

	local, err := localstore.Open(cfg.LocalDBPath, logger.Named("localstore"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Local = local
	a.closers = append(a.closers, local.Close)

	a.Publisher = newPublisher(cfg, logger)
	if c, ok := a.Publisher.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	a.Finance = service.NewFinanceService(
		repository.NewCategoryRepository(pool),
		repository.NewTransactionRepository(pool),
		repository.NewPaymentRepository(pool),
		repository.NewInstallmentRepository(pool),
		cfg.Location,
		logger.Named("finance"),
	)
	a.Backups = service.NewBackupService(
		repository.NewDatasetRepository(pool),
		repository.NewBackupRepository(pool),
		local,
		a.Publisher,
		logger.Named("backup"),
	)
	a.Reports = service.NewReportService(
		a.Backups,
		repository.NewReportRepository(pool),
		a.Publisher,
		cfg.Location,
		logger.Named("report"),
	)
	a.Pos = service.NewPosService(
		repository.NewFiliadoRepository(pool),
		repository.NewProdutoRepository(pool),
		repository.NewComandaRepository(pool),
		a.Publisher,
		cfg.Location,
		logger.Named("pos"),
	)
	a.Defense = service.NewDefenseService(
		repository.NewProfessorRepository(pool),
		repository.NewDefenseRepository(pool),
		schedule.DefaultRules(),
		a.Publisher,
		cfg.Location,
		logger.Named("defense"),
	)

	return a, nil
}

// Migrate applies pending migrations on the remote database
func (a *App) Migrate(ctx context.Context) error {
	m, err := NewMigrator(a.Pool, a.logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Run(ctx)
}

// Scheduler returns the background jobs wired to this app's services
func (a *App) Scheduler(cfg *config.Config) *Scheduler {
	return NewScheduler(a.Backups, a.Backups, a.Reports, SchedulerConfig{
		MirrorSyncInterval: cfg.MirrorSyncInterval,
		BackupInterval:     cfg.AutoBackupInterval,
		ReportInterval:     cfg.ReportInterval,
		BackupRetention:    cfg.BackupRetention,
	}, a.logger.Named("scheduler"))
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		logger.Info("No AMQP_URL set, domain events are dropped")
		return events.Nop{}
	}
	p, err := events.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger.Named("events"))
	if err != nil {
		logger.Warn("RabbitMQ unavailable, domain events are dropped", zap.Error(err))
		return events.Nop{}
	}
	return p
}
