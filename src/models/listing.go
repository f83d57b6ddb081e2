package models

import "wanderlust/src/types"

// Listing CRUD lives outside this service; the booking flow only ever reads
// these rows (eligibility, receipt rendering, host notification).
type Listing struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	Title       string  `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	Price       int64   `json:"price,omitempty"`
	Location    string  `json:"location,omitempty"`
	Country     string  `json:"country,omitempty"`
	OwnerID     uint    `json:"owner_id,omitempty"`

	Owner    *User     `gorm:"foreignKey:owner_id" json:"owner,omitempty"`
	Bookings []Booking `gorm:"foreignKey:listing_id" json:"bookings,omitempty"`

	types.Timestamps
}
