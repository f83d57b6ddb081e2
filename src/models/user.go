package models

import (
	"time"
	"wanderlust/src/types"
)

type User struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Username      string    `json:"username,omitempty"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"email_verified,omitempty"`
	VerifiedAt    time.Time `json:"verified_at,omitempty"`

	Bookings []Booking `gorm:"foreignKey:traveler_id" json:"bookings,omitempty"`
	Listings []Listing `gorm:"foreignKey:owner_id" json:"listings,omitempty"`

	types.Timestamps
}
