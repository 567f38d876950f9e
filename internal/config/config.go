package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	Environment    string
	HTTPAddr       string
	MigrationsPath string

	// Настройки протокола бронирования. Константы алгоритмов наружу,
	// а не зашиты внутри.
	HoldDuration    time.Duration
	SyncHorizonDays int
	SlotDuration    time.Duration
	DefaultTimezone string
	SweepInterval   time.Duration

	// Опциональные каналы доставки
	TelegramToken string
	KafkaBrokers  []string
	KafkaTopic    string
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    getEnv("ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "booking-events"),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	var err error
	if cfg.HoldDuration, err = getDuration("HOLD_DURATION", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SlotDuration, err = getDuration("SLOT_DURATION", 60*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.SyncHorizonDays, err = getInt("SYNC_HORIZON_DAYS", 21); err != nil {
		return nil, err
	}
	if cfg.SyncHorizonDays <= 0 {
		return nil, fmt.Errorf("SYNC_HORIZON_DAYS must be positive")
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}
