package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlink/booking_service/internal/service"
)

// Sweeper управляет фоновыми задачами: возврат протухших hold'ов и ночная
// пересверка расписаний. Обе задачи — оптимизации; корректность протокола
// бронирования от них не зависит (протухший hold и так считается свободным).
type Sweeper struct {
	bookingService  *service.BookingService
	scheduleService *service.ScheduleService
	sweepInterval   time.Duration
	logger          *zap.Logger
	stopChan        chan struct{}
}

// NewSweeper создаёт новый свипер
func NewSweeper(
	bookingService *service.BookingService,
	scheduleService *service.ScheduleService,
	sweepInterval time.Duration,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		bookingService:  bookingService,
		scheduleService: scheduleService,
		sweepInterval:   sweepInterval,
		logger:          logger,
		stopChan:        make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting background sweeper",
		zap.Duration("sweep_interval", s.sweepInterval))

	go s.runHoldSweepTask(ctx)
	go s.runScheduleSyncTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping background sweeper")
	close(s.stopChan)
}

// runHoldSweepTask периодически возвращает протухшие hold'ы в available
func (s *Sweeper) runHoldSweepTask(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.bookingService.ReclaimExpiredHolds(ctx); err != nil {
				s.logger.Error("Failed to reclaim expired holds", zap.Error(err))
			}
		case <-s.stopChan:
			s.logger.Info("Hold sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Hold sweep task cancelled")
			return
		}
	}
}

// runScheduleSyncTask пересверяет расписания всех репетиторов раз в сутки,
// чтобы горизонт слотов всегда был заполнен вперёд
func (s *Sweeper) runScheduleSyncTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.syncAll(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.syncAll(ctx)
		case <-s.stopChan:
			s.logger.Info("Schedule sync task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Schedule sync task cancelled")
			return
		}
	}
}

func (s *Sweeper) syncAll(ctx context.Context) {
	s.logger.Info("Starting automatic schedule sync")

	if err := s.scheduleService.SyncAll(ctx); err != nil {
		s.logger.Error("Failed to sync schedules", zap.Error(err))
		return
	}

	s.logger.Info("Automatic schedule sync completed")
}
