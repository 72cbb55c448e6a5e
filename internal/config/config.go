package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal containers

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	HTTPPort    string

	DBDSN       string
	LocalDBPath string

	TelegramToken      string
	TelegramAllowedIDs []int64

	Timezone string
	Location *time.Location

	AMQPURL      string
	AMQPExchange string

	BackupRetention    int
	AutoBackupInterval time.Duration
	MirrorSyncInterval time.Duration
	ReportInterval     time.Duration
}

// Load reads .env when present, then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from getenv, applying defaults and required checks
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:   getenv("ENV"),
		LogLevel:      getenv("LOG_LEVEL"),
		HTTPPort:      getenv("HTTP_PORT"),
		DBDSN:         getenv("DB_DSN"),
		LocalDBPath:   getenv("LOCAL_DB_PATH"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
		Timezone:      getenv("TIMEZONE"),
		AMQPURL:       getenv("AMQP_URL"),
		AMQPExchange:  getenv("AMQP_EXCHANGE"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTPPort == "" {
		cfg.HTTPPort = "8080"
	}
	if cfg.LocalDBPath == "" {
		cfg.LocalDBPath = "bizsuite-local.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Sao_Paulo"
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = "bizsuite.events"
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if cfg.TelegramAllowedIDs, err = parseIDs(getenv("TELEGRAM_ALLOWED_IDS")); err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_IDS: %w", err)
	}

	if cfg.BackupRetention, err = intOr(getenv("BACKUP_RETENTION"), 30); err != nil {
		return nil, fmt.Errorf("invalid BACKUP_RETENTION: %w", err)
	}
	if cfg.BackupRetention < 1 {
		return nil, fmt.Errorf("BACKUP_RETENTION must be at least 1")
	}

	durations := []struct {
		name string
		dst  *time.Duration
		def  time.Duration
	}{
		{"AUTO_BACKUP_INTERVAL", &cfg.AutoBackupInterval, 24 * time.Hour},
		{"MIRROR_SYNC_INTERVAL", &cfg.MirrorSyncInterval, 15 * time.Minute},
		{"REPORT_INTERVAL", &cfg.ReportInterval, time.Hour},
	}
	for _, d := range durations {
		if *d.dst, err = durationOr(getenv(d.name), d.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	return cfg, nil
}

// RequireTelegram checks the settings only the bot needs
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}
	if len(c.TelegramAllowedIDs) == 0 {
		return fmt.Errorf("TELEGRAM_ALLOWED_IDS is required but not set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func intOr(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func durationOr(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}
