// One-shot resync of every tutor schedule. Useful after bulk pattern
// imports and as a cron fallback when the in-process sweeper is disabled.
package main

import (
	"context"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tutorlink/booking_service/internal/app"
	"github.com/tutorlink/booking_service/internal/config"
	"github.com/tutorlink/booking_service/internal/repository"
	"github.com/tutorlink/booking_service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	scheduleService := service.NewScheduleService(
		repository.NewPatternRepository(pool),
		repository.NewSlotRepository(pool),
		repository.NewTutorRepository(pool),
		cfg.SyncHorizonDays, cfg.SlotDuration, cfg.DefaultTimezone,
		logger,
	)

	if err := scheduleService.SyncAll(ctx); err != nil {
		logger.Fatal("Sync failed", zap.Error(err))
	}
}
