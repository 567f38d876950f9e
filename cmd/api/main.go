package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tutorlink/booking_service/internal/app"
	"github.com/tutorlink/booking_service/internal/config"
	"github.com/tutorlink/booking_service/internal/controller"
	"github.com/tutorlink/booking_service/internal/events"
	"github.com/tutorlink/booking_service/internal/notify"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	tutorRepo := repository.NewTutorRepository(pool)
	patternRepo := repository.NewPatternRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	var notifier service.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram notifier", zap.Error(err))
		}
		notifier = tg
	}

	var publisher service.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	bookingService := service.NewBookingService(
		slotRepo, bookingRepo, tutorRepo,
		notifier, publisher,
		cfg.HoldDuration, logger,
	)
	scheduleService := service.NewScheduleService(
		patternRepo, slotRepo, tutorRepo,
		cfg.SyncHorizonDays, cfg.SlotDuration, cfg.DefaultTimezone,
		logger,
	)

	sweeper := app.NewSweeper(bookingService, scheduleService, cfg.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	listWindow := time.Duration(cfg.SyncHorizonDays) * 24 * time.Hour
	handler := controller.NewHandler(bookingService, scheduleService, listWindow, logger)
	handler.RegisterRoutes(router.Group("/api/v1"))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("Starting booking service",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("environment", cfg.Environment),
			zap.Duration("hold_duration", cfg.HoldDuration),
			zap.Int("sync_horizon_days", cfg.SyncHorizonDays),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
