// Package queue carries booking lifecycle events over RabbitMQ.  The
// publisher fires events after commits; the consumer turns them into
// confirmation emails and an activity file for back-office tooling.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/marineworld/booking/internal/model"
)

// Queue names, one per lifecycle event.
const (
	QueueBookingCreated   = "booking.created"
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
	QueueBookingExpired   = "booking.expired"
	QueueBookingRefunded  = "booking.refunded"
)

// BookingEvent is the message body published for every lifecycle
// transition.  EventID lets consumers deduplicate redelivered messages.
type BookingEvent struct {
	EventID       string    `json:"event_id"`
	BookingRef    string    `json:"booking_ref"`
	LocationID    uint64    `json:"location_id"`
	VisitDate     string    `json:"visit_date"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Tickets       int       `json:"tickets"`
	TotalAmount   float64   `json:"total_amount"`
	BookingStatus string    `json:"booking_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewBookingEvent snapshots a booking into an event payload.
func NewBookingEvent(b *model.Booking) BookingEvent {
	return BookingEvent{
		EventID:       uuid.NewString(),
		BookingRef:    b.Ref,
		LocationID:    b.LocationID,
		VisitDate:     b.VisitDate.UTC().Format("2006-01-02"),
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Tickets:       b.TicketCount(),
		TotalAmount:   b.TotalAmount,
		BookingStatus: b.BookingStatus,
		OccurredAt:    time.Now().UTC(),
	}
}
