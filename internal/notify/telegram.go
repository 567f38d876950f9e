// Package notify доставляет уведомления репетиторам о новых бронированиях.
package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/tutorlink/booking_service/internal/model"
)

// TelegramNotifier отправляет репетитору сообщение о новом бронировании,
// если к профилю привязан telegram chat. Канал опциональный: без токена
// сервис работает, бронирования от доставки не зависят.
type TelegramNotifier struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewTelegramNotifier(token string, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    b,
		logger: logger,
	}, nil
}

// NotifyBookingCreated отправляет репетитору уведомление о бронировании
func (n *TelegramNotifier) NotifyBookingCreated(ctx context.Context, tutor *model.Tutor, booking *model.Booking) error {
	if tutor.TelegramChatID == nil {
		n.logger.Debug("Tutor has no telegram chat linked, skipping notification",
			zap.String("tutor_id", tutor.ID.String()))
		return nil
	}

	text := fmt.Sprintf(
		"Новое бронирование!\n\nУрок: %s – %s (UTC)\nЦена: %d.%02d",
		booking.StartsAt.UTC().Format("02.01.2006 15:04"),
		booking.EndsAt.UTC().Format("15:04"),
		booking.PriceCents/100,
		booking.PriceCents%100,
	)

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *tutor.TelegramChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}

	return nil
}
