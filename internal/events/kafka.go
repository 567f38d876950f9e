// Package events публикует события жизненного цикла бронирования для
// внешних потребителей (напоминания, аналитика).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tutorlink/booking_service/internal/model"
)

const (
	EventTypeBookingCreated = "booking_created"
	EventTypeSlotReleased   = "slot_released"
)

// BookingEvent сообщение о переходе слота/бронирования, ключ — slot_id
type BookingEvent struct {
	EventType  string    `json:"event_type"`
	SlotID     string    `json:"slot_id"`
	TutorID    string    `json:"tutor_id"`
	BookingID  string    `json:"booking_id,omitempty"`
	StudentID  string    `json:"student_id,omitempty"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	PriceCents int       `json:"price_cents,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Publisher{writer: writer}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// PublishBookingCreated отправляет событие о созданном бронировании
func (p *Publisher) PublishBookingCreated(ctx context.Context, booking *model.Booking) error {
	return p.send(ctx, BookingEvent{
		EventType:  EventTypeBookingCreated,
		SlotID:     booking.SlotID.String(),
		TutorID:    booking.TutorID.String(),
		BookingID:  booking.ID.String(),
		StudentID:  booking.StudentID.String(),
		StartsAt:   booking.StartsAt,
		EndsAt:     booking.EndsAt,
		PriceCents: booking.PriceCents,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishSlotReleased отправляет событие об освобождённом слоте
func (p *Publisher) PublishSlotReleased(ctx context.Context, slot *model.Slot) error {
	return p.send(ctx, BookingEvent{
		EventType:  EventTypeSlotReleased,
		SlotID:     slot.ID.String(),
		TutorID:    slot.TutorID.String(),
		StartsAt:   slot.StartsAt,
		EndsAt:     slot.EndsAt,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) send(ctx context.Context, event BookingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.SlotID),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("send booking event: %w", err)
	}

	return nil
}
