// Package repository implements MySQL persistence for the booking
// service.  Sentinel errors defined here let handlers distinguish
// failure scenarios without inspecting SQL errors: availability
// problems map to 409/400-class responses, ErrForbidden to 403 and so
// on.  Capacity mutations are single conditional UPDATE statements;
// zero rows affected is the signal that the guarded condition failed,
// never an excuse to fall back to read-modify-write.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced booking, location, add-on,
// offer or promo code does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource their role does not permit.  Handlers translate this into
// an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// the row's current state: cancelling an already-cancelled booking,
// claiming twice, confirming a booking the sweep already expired, or
// deleting a location that still has active bookings.
var ErrConflict = errors.New("conflict")

// ErrSoldOut is returned by Reserve when the date has no remaining
// slots at all.
var ErrSoldOut = errors.New("date is sold out")

// ErrBlackout is returned by Reserve when the date is an
// administrator-forced blackout.
var ErrBlackout = errors.New("date is blacked out")

// ErrCapacityTooLow is returned by SetCapacity when the requested total
// is below the slots already booked for that date.
var ErrCapacityTooLow = errors.New("capacity below booked slots")

// ErrPromoExhausted is returned when the atomic used_count increment
// finds the code expired, inactive or at its usage limit.
var ErrPromoExhausted = errors.New("promo code is no longer redeemable")

// ErrOfferExhausted is the birthday-offer counterpart of ErrPromoExhausted.
var ErrOfferExhausted = errors.New("birthday offer is no longer redeemable")

// AvailabilityError reports a reservation that failed because fewer
// slots remain than were requested.  Remaining carries the exact count
// so clients can retry with fewer tickets.
type AvailabilityError struct {
	Requested int
	Remaining int
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("insufficient availability: requested %d, %d remaining", e.Requested, e.Remaining)
}
