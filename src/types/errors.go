package types

import "errors"

// Booking-flow error taxonomy. Validation errors are user-correctable and
// stay at the boundary; ErrLedgerWrite is special: money has already moved
// with the processor when it fires, so it must never surface as an ordinary
// payment failure.
var (
	ErrInvalidDateRange = errors.New("check-out date must be after check-in date")
	ErrStayTooLong      = errors.New("stay cannot be longer than 30 days")
	ErrSelfBooking      = errors.New("you cannot book your own listing")
	ErrDatesUnavailable = errors.New("listing is already booked for the selected dates")

	ErrInvalidSignature = errors.New("invalid signature")
	ErrPaymentProvider  = errors.New("payment provider error")
	ErrLedgerWrite      = errors.New("payment captured but booking could not be recorded")
)
