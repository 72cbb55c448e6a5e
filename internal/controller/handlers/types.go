package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/controller/state"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Sender is the part of *bot.Bot the handlers talk to
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// HandlerFunc is a bot handler written against Sender
type HandlerFunc func(ctx context.Context, s Sender, update *models.Update)

// Bind adapts fn to the library handler signature
func Bind(fn HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		fn(ctx, b, update)
	}
}

type FinanceService interface {
	CreateTransaction(ctx context.Context, in service.TransactionInput) (*model.Transaction, error)
	PayInstallmentItem(ctx context.Context, itemID int64, paidAt *time.Time) (*model.InstallmentItem, error)
	Upcoming(ctx context.Context, days int) ([]model.UpcomingItem, error)
}

type ReportService interface {
	Compute(ctx context.Context, pt model.PeriodType, at time.Time) (*model.Report, error)
	Chart(ctx context.Context, pt model.PeriodType, from, to time.Time) ([]byte, error)
}

type BackupService interface {
	Create(ctx context.Context, reason model.BackupReason) (*model.Backup, error)
}

// Handlers holds the dependencies of every command and dialog step
type Handlers struct {
	finance      FinanceService
	reports      ReportService
	backups      BackupService
	stateManager *state.Manager
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

func NewHandlers(
	finance FinanceService,
	reports ReportService,
	backups BackupService,
	stateManager *state.Manager,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		finance:      finance,
		reports:      reports,
		backups:      backups,
		stateManager: stateManager,
		loc:          loc,
		now:          time.Now,
		logger:       logger,
	}
}
