package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELED  BookingStatus = "cancelled"
	BOOKING_COMPLETED BookingStatus = "completed"
)

type PaymentStatus string

const (
	PAYMENT_UNPAID   PaymentStatus = "unpaid"
	PAYMENT_PAID     PaymentStatus = "paid"
	PAYMENT_FAILED   PaymentStatus = "failed"
	PAYMENT_REFUNDED PaymentStatus = "refunded"
)

type NotificationJobStatus string

const (
	NOTIFICATION_PENDING NotificationJobStatus = "pending"
	NOTIFICATION_SENDING NotificationJobStatus = "sending"
	NOTIFICATION_SENT    NotificationJobStatus = "sent"
	NOTIFICATION_FAILED  NotificationJobStatus = "failed"
)

type NotificationChannel string

const (
	CHANNEL_TICKET_EMAIL NotificationChannel = "ticket_email"
	CHANNEL_HOST_EMAIL   NotificationChannel = "host_email"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type BookingRequestParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type BookingURIParams struct {
	ListingID uint   `uri:"id" binding:"required"`
	BookingID string `uri:"bookingId" binding:"required,uuid"`
}

type CreateOrderRequestBody struct {
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	CheckIn        string `json:"check_in" binding:"required,staydate"`
	CheckOut       string `json:"check_out" binding:"required,staydate,afterdate=CheckIn"`
	NumberOfGuests uint   `json:"number_of_guests" binding:"required,gte=1"`
	Message        string `json:"message"`
}

type BookingDetails struct {
	ListingID      string  `json:"listingId"`
	UserID         string  `json:"userId"`
	CheckIn        string  `json:"checkIn"`
	CheckOut       string  `json:"checkOut"`
	NumberOfGuests uint    `json:"numberOfGuests"`
	TotalPrice     float64 `json:"totalPrice"`
}

type VerifyPaymentRequestBody struct {
	RazorpayOrderID   string          `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string          `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string          `json:"razorpay_signature" binding:"required"`
	BookingDetails    *BookingDetails `json:"bookingDetails"`
}
