package models

import (
	"time"
	"wanderlust/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Booking struct {
	ID         uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	ListingID  uint      `gorm:"index;not null" json:"listing_id,omitempty"`
	TravelerID uint      `gorm:"index;not null" json:"traveler_id,omitempty"`

	CheckIn        time.Time `gorm:"not null" json:"check_in"`
	CheckOut       time.Time `gorm:"not null" json:"check_out"`
	NumberOfGuests uint      `gorm:"not null" json:"number_of_guests"`
	TotalPrice     int64     `gorm:"not null" json:"total_price"`

	Status types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`

	// OrderID binds the row to the processor order created at initiation.
	// PaymentID is the idempotency key for the confirm transition; the unique
	// index is the concurrency-control mechanism for duplicate callbacks.
	OrderID       string              `gorm:"uniqueIndex;not null" json:"order_id,omitempty"`
	PaymentID     *string             `gorm:"uniqueIndex" json:"payment_id,omitempty"`
	PaymentStatus types.PaymentStatus `gorm:"default:'unpaid'" json:"payment_status,omitempty"`

	Message *string `json:"message,omitempty"`

	Listing  *Listing `gorm:"foreignKey:listing_id" json:"listing,omitempty"`
	Traveler *User    `gorm:"foreignKey:traveler_id" json:"traveler,omitempty"`

	types.Timestamps
}

func (b *Booking) BeforeSave(tx *gorm.DB) error {
	if !b.CheckOut.After(b.CheckIn) {
		return types.ErrInvalidDateRange
	}
	return nil
}
