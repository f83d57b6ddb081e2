package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"
	"wanderlust/src/config"
	"wanderlust/src/db"
	"wanderlust/src/models"
	"wanderlust/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VerifyPaymentSignature checks that a payment callback originated from the
// processor: hex(HMAC-SHA256(secret, orderId|paymentId)) must equal the
// supplied signature. hmac.Equal keeps the comparison constant-time; this is
// the sole trust boundary between "client claims paid" and "ledger records
// paid" and must never be bypassed.
func VerifyPaymentSignature(orderId, paymentId, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderId + "|" + paymentId))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// StayNights returns the length of the stay window in whole days.
func StayNights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

// CheckEligibility applies the business preconditions a stay must pass
// before any processor or ledger interaction. Each rule reports its own
// error so the boundary can flash the right message.
func CheckEligibility(listing *models.Listing, actorId uint, checkIn, checkOut time.Time) error {
	if !checkOut.After(checkIn) {
		return types.ErrInvalidDateRange
	}
	if StayNights(checkIn, checkOut) > config.MAX_STAY_DAYS {
		return types.ErrStayTooLong
	}
	if listing.OwnerID == actorId {
		return types.ErrSelfBooking
	}
	return nil
}

// DatesAvailable reports whether the stay window is free of pending or
// confirmed bookings for the listing. Advisory pre-check so the processor is
// never called for an unavailable window; CreatePendingBooking re-checks
// inside its transaction.
func DatesAvailable(listingId uint, checkIn, checkOut time.Time) (bool, error) {
	db := db.GetDb()
	var overlapping int64
	err := db.
		Model(&models.Booking{}).
		Where("listing_id = ?", listingId).
		Where("status IN ?", []types.BookingStatus{types.BOOKING_PENDING, types.BOOKING_CONFIRMED}).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn).
		Count(&overlapping).
		Error
	if err != nil {
		return false, err
	}
	return overlapping == 0, nil
}

// CreatePendingBooking reserves the stay window against the listing before
// the payment round-trip starts. The overlap re-check runs inside the same
// transaction as the insert so two pending bookings cannot claim the same
// [check_in, check_out) interval.
func CreatePendingBooking(listing *models.Listing, travelerId uint, orderId string, checkIn, checkOut time.Time, guests uint, amount int64, message string) (*models.Booking, error) {
	booking := models.Booking{
		ListingID:      listing.ID,
		TravelerID:     travelerId,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		NumberOfGuests: guests,
		TotalPrice:     amount,
		Status:         types.BOOKING_PENDING,
		OrderID:        orderId,
		PaymentStatus:  types.PAYMENT_UNPAID,
	}
	if message != "" {
		booking.Message = &message
	}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var overlapping int64
		err := tx.
			Model(&models.Booking{}).
			Where("listing_id = ?", listing.ID).
			Where("status IN ?", []types.BookingStatus{types.BOOKING_PENDING, types.BOOKING_CONFIRMED}).
			Where("check_in < ? AND check_out > ?", checkOut, checkIn).
			Count(&overlapping).
			Error
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return types.ErrDatesUnavailable
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ConfirmBooking performs the verified-payment transition
// pending -> confirmed. Idempotent per paymentId: a booking already carrying
// the payment id is returned unchanged having no further effect. The caller
// must have verified the callback signature for this exact order/payment
// pair beforehand.
//
// On the first transition both notification outbox rows are written in the
// same transaction, so each channel fires exactly once per booking.
func ConfirmBooking(orderId, paymentId string) (*models.Booking, error) {
	var booking models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payment_id = ?", paymentId).
			First(&booking).
			Error
		if err == nil {
			// replayed or retried callback
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.Booking{OrderID: orderId}).
			First(&booking).
			Error; err != nil {
			return err
		}
		if booking.Status != types.BOOKING_PENDING {
			if booking.PaymentID != nil && *booking.PaymentID == paymentId {
				return nil
			}
			return fmt.Errorf("booking %s is %s and cannot be confirmed", booking.ID, booking.Status)
		}
		booking.Status = types.BOOKING_CONFIRMED
		booking.PaymentStatus = types.PAYMENT_PAID
		booking.PaymentID = &paymentId
		if err := tx.Save(&booking).Error; err != nil {
			return err
		}
		if err := enqueueNotificationJobs(tx, booking.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[ledger] No pending booking for order %s with payment %s captured. Flagging for reconciliation\n", orderId, paymentId)
		} else {
			log.Printf("[ledger] Error confirming booking for order %s: %s\n", orderId, err.Error())
		}
		return nil, fmt.Errorf("%w: %s", types.ErrLedgerWrite, err.Error())
	}
	return &booking, nil
}

func enqueueNotificationJobs(tx *gorm.DB, bookingId uuid.UUID) error {
	now := time.Now()
	jobs := []models.NotificationJob{
		{
			BookingID: bookingId,
			Channel:   types.CHANNEL_TICKET_EMAIL,
			Status:    types.NOTIFICATION_PENDING,
			NextRunAt: now,
			Payload:   types.JSONB{"booking_id": bookingId.String()},
		},
		{
			BookingID: bookingId,
			Channel:   types.CHANNEL_HOST_EMAIL,
			Status:    types.NOTIFICATION_PENDING,
			NextRunAt: now,
			Payload:   types.JSONB{"booking_id": bookingId.String()},
		},
	}
	for i := range jobs {
		if err := tx.Create(&jobs[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
