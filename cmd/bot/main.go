package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/bizsuite/internal/app"
	"github.com/Freeeeeet/bizsuite/internal/config"
	"github.com/Freeeeeet/bizsuite/internal/controller"
	"github.com/Freeeeeet/bizsuite/internal/controller/handlers"
	"github.com/Freeeeeet/bizsuite/internal/controller/state"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	b, err := bot.New(cfg.TelegramToken,
		bot.WithMiddlewares(handlers.AllowOnly(cfg.TelegramAllowedIDs, logger.Named("auth"))),
		bot.WithErrorsHandler(func(err error) {
			logger.Error("Telegram error", zap.Error(err))
		}),
	)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	h := handlers.NewHandlers(a.Finance, a.Reports, a.Backups, state.NewManager(state.DefaultTTL), cfg.Location, logger.Named("bot"))
	botController := controller.NewBotController(b, h, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		// the menu is cosmetic, commands still work
		logger.Warn("Bot commands menu not set", zap.Error(err))
	}

	logger.Info("Bot started",
		zap.String("environment", cfg.Environment),
		zap.Int("allowed_chats", len(cfg.TelegramAllowedIDs)),
	)
	if err := botController.Start(ctx); err != nil {
		logger.Error("Bot stopped with error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}
