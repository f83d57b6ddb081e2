package models

import (
	"time"
	"wanderlust/src/types"

	"github.com/google/uuid"
)

// NotificationJob is the outbox row written in the same transaction as the
// confirm transition. A scheduler job drains due rows; the request path never
// waits on delivery.
type NotificationJob struct {
	ID        uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`

	Channel   types.NotificationChannel   `gorm:"not null" json:"channel"`
	Status    types.NotificationJobStatus `gorm:"default:'pending'" json:"status"`
	Attempts  uint                        `json:"attempts"`
	NextRunAt time.Time                   `gorm:"index" json:"next_run_at"`
	Payload   types.JSONB                 `gorm:"type:jsonb" json:"payload"`
	LastError *string                     `json:"last_error,omitempty"`

	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`

	types.Timestamps
}
