package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Booking lifecycle statuses.  pending → confirmed → {cancelled, refunded}
// and pending → {cancelled, expired}; cancelled, expired and refunded are
// terminal.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingExpired   = "expired"
	BookingRefunded  = "refunded"
)

// Booking is the durable ledger record for a dated entry reservation.
// Ticket counts are per tier; add-on quantities are stored as a JSON
// object keyed by addon ID.  TotalAmount = Subtotal − DiscountAmount,
// clamped at zero by the pricing engine.
type Booking struct {
	ID              uint64         `json:"id"`
	Ref             string         `json:"booking_ref"`
	LocationID      uint64         `json:"location_id"`
	VisitDate       time.Time      `json:"visit_date"`
	CustomerName    string         `json:"customer_name"`
	CustomerEmail   string         `json:"customer_email"`
	CustomerPhone   string         `json:"customer_phone"`
	GeneralTickets  int            `json:"general_tickets"`
	ChildTickets    int            `json:"child_tickets"`
	SeniorTickets   int            `json:"senior_tickets"`
	OfferTickets    int            `json:"offer_tickets"`
	Addons          map[uint64]int `json:"addons,omitempty"`
	Subtotal        float64        `json:"subtotal"`
	DiscountAmount  float64        `json:"discount_amount"`
	TotalAmount     float64        `json:"total_amount"`
	PromoCode       *string        `json:"promo_code,omitempty"`
	BirthdayOfferID *uint64        `json:"birthday_offer_id,omitempty"`
	PaymentStatus   string         `json:"payment_status"`
	PaymentID       *string        `json:"payment_id,omitempty"`
	PaymentMethod   *string        `json:"payment_method,omitempty"`
	RefundAmount    *float64       `json:"refund_amount,omitempty"`
	BookingStatus   string         `json:"booking_status"`
	Claimed         bool           `json:"claimed"`
	ClaimedAt       *time.Time     `json:"claimed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TicketCount returns the number of capacity slots this booking consumes.
// Offer tickets occupy slots like any other ticket.
func (b *Booking) TicketCount() int {
	return b.GeneralTickets + b.ChildTickets + b.SeniorTickets + b.OfferTickets
}

// Terminal reports whether the booking can no longer transition.
func (b *Booking) Terminal() bool {
	switch b.BookingStatus {
	case BookingCancelled, BookingExpired, BookingRefunded:
		return true
	}
	return false
}

// NewBookingRef builds a human-readable booking reference of the form
// MW-20260830-4F2A1C: a date code for the day the booking was made plus
// a random hex suffix.  The suffix comes from crypto/rand so references
// are not guessable.
func NewBookingRef(now time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("MW-%s-%s", now.UTC().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(buf))), nil
}
