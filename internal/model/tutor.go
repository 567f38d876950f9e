package model

import (
	"time"

	"github.com/google/uuid"
)

type Tutor struct {
	ID              uuid.UUID `json:"id"`
	DisplayName     string    `json:"display_name"`
	Timezone        string    `json:"timezone"` // profile-level fallback when the pattern has none
	HourlyRateCents int       `json:"hourly_rate_cents"`
	TelegramChatID  *int64    `json:"telegram_chat_id"` // pointer - nil when notifications are not linked
	CreatedAt       time.Time `json:"created_at"`
}
