package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/controller/handlers"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const draftSweepInterval = 5 * time.Minute

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, h *handlers.Handlers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: h,
		logger:   logger,
	}
}

// RegisterHandlers wires every command and sets the bot menu
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	h := c.handlers
	exact := map[string]handlers.HandlerFunc{
		"/start":    h.Start,
		"/help":     h.Help,
		"/cancel":   h.Cancel,
		"/resumo":   h.MonthSummary,
		"/semana":   h.WeekSummary,
		"/parcelas": h.Upcoming,
		"/backup":   h.Backup,
		"/grafico":  h.Chart,
		"/novo":     h.NewTransaction,
	}
	for pattern, fn := range exact {
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, pattern, bot.MatchTypeExact, handlers.Bind(fn))
	}

	// commands with an argument
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pagar", bot.MatchTypePrefix, handlers.Bind(h.PayItem))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cpf", bot.MatchTypePrefix, handlers.Bind(h.CPF))

	// dialog answers are any text that is not a command
	c.bot.RegisterHandlerMatchFunc(isDialogText, handlers.Bind(h.HandleTextMessage))

	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, handlers.CallbackNewPrefix, bot.MatchTypePrefix, handlers.Bind(h.HandleCallbackQuery))

	return c.setCommands(ctx)
}

func isDialogText(update *models.Update) bool {
	return update.Message != nil && update.Message.Text != "" && !strings.HasPrefix(update.Message.Text, "/")
}

func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "resumo", Description: "📊 Resumo do mês"},
		{Command: "semana", Description: "📅 Resumo da semana"},
		{Command: "parcelas", Description: "🗓 Contas e parcelas a vencer"},
		{Command: "pagar", Description: "✅ Pagar parcela"},
		{Command: "novo", Description: "📝 Novo lançamento"},
		{Command: "grafico", Description: "📈 Gráfico dos últimos meses"},
		{Command: "backup", Description: "💾 Criar backup"},
		{Command: "cpf", Description: "🪪 Validar CPF"},
		{Command: "help", Description: "❓ Ajuda"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start blocks polling updates until ctx is done
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.expireDrafts(ctx)
	}()

	c.bot.Start(ctx)
	wg.Wait()
	return nil
}

func (c *BotController) expireDrafts(ctx context.Context) {
	ticker := time.NewTicker(draftSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.handlers.ExpireDrafts()
		}
	}
}
