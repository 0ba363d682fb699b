package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/marineworld/booking/internal/model"
)

// BookingRepo is the durable booking ledger.  Creation couples the
// capacity reservation, the booking row, the promo/offer redemption and
// the activity entry in one transaction so the ledger and the
// availability store can never diverge.  Lifecycle transitions are
// conditional single-statement updates keyed on the current status;
// zero rows affected means another writer won the row first.
type BookingRepo struct {
	db       *sql.DB
	activity *ActivityRepo
}

// NewBookingRepo returns a BookingRepo sharing the activity log.
func NewBookingRepo(db *sql.DB, activity *ActivityRepo) *BookingRepo {
	return &BookingRepo{db: db, activity: activity}
}

const bookingColumns = `id, booking_ref, location_id, visit_date, customer_name, customer_email, customer_phone,
	general_tickets, child_tickets, senior_tickets, offer_tickets, addons_json,
	subtotal, discount_amount, total_amount, promo_code, birthday_offer_id,
	payment_status, payment_id, payment_method, refund_amount,
	booking_status, claimed, claimed_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (*model.Booking, error) {
	var b model.Booking
	var addonsJSON sql.NullString
	var promo, paymentID, paymentMethod sql.NullString
	var offerID sql.NullInt64
	var refund sql.NullFloat64
	var claimedAt sql.NullTime
	if err := row.Scan(&b.ID, &b.Ref, &b.LocationID, &b.VisitDate, &b.CustomerName,
		&b.CustomerEmail, &b.CustomerPhone,
		&b.GeneralTickets, &b.ChildTickets, &b.SeniorTickets, &b.OfferTickets, &addonsJSON,
		&b.Subtotal, &b.DiscountAmount, &b.TotalAmount, &promo, &offerID,
		&b.PaymentStatus, &paymentID, &paymentMethod, &refund,
		&b.BookingStatus, &b.Claimed, &claimedAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if addonsJSON.Valid && addonsJSON.String != "" {
		raw := map[string]int{}
		if err := json.Unmarshal([]byte(addonsJSON.String), &raw); err != nil {
			return nil, fmt.Errorf("decode addons: %w", err)
		}
		b.Addons = make(map[uint64]int, len(raw))
		for k, v := range raw {
			id, err := strconv.ParseUint(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decode addons: %w", err)
			}
			b.Addons[id] = v
		}
	}
	if promo.Valid {
		b.PromoCode = &promo.String
	}
	if offerID.Valid {
		v := uint64(offerID.Int64)
		b.BirthdayOfferID = &v
	}
	if paymentID.Valid {
		b.PaymentID = &paymentID.String
	}
	if paymentMethod.Valid {
		b.PaymentMethod = &paymentMethod.String
	}
	if refund.Valid {
		b.RefundAmount = &refund.Float64
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		b.ClaimedAt = &t
	}
	return &b, nil
}

func encodeAddons(addons map[uint64]int) (sql.NullString, error) {
	if len(addons) == 0 {
		return sql.NullString{}, nil
	}
	raw := make(map[string]int, len(addons))
	for id, qty := range addons {
		raw[strconv.FormatUint(id, 10)] = qty
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(buf), Valid: true}, nil
}

// CreateWithReservation reserves capacity, inserts the booking row,
// redeems the promo code and birthday offer (when present) and writes
// the activity entry — all in one transaction.  Any failure, including
// losing the availability race, rolls the whole unit back.
func (r *BookingRepo) CreateWithReservation(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := reserveTx(ctx, tx, b.LocationID, b.VisitDate, b.TicketCount()); err != nil {
		return err
	}

	if b.PromoCode != nil {
		if err := redeemPromoTx(ctx, tx, *b.PromoCode, b.VisitDate); err != nil {
			return err
		}
	}
	// Redeemed before the insert so the per-customer count does not see
	// this booking's own row.
	if b.BirthdayOfferID != nil {
		if err := redeemOfferTx(ctx, tx, *b.BirthdayOfferID, b.CustomerEmail); err != nil {
			return err
		}
	}

	addons, err := encodeAddons(b.Addons)
	if err != nil {
		return fmt.Errorf("encode addons: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (booking_ref, location_id, visit_date, customer_name, customer_email, customer_phone,
		   general_tickets, child_tickets, senior_tickets, offer_tickets, addons_json,
		   subtotal, discount_amount, total_amount, promo_code, birthday_offer_id,
		   payment_status, booking_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', 'pending')`,
		b.Ref, b.LocationID, dateOnly(b.VisitDate), b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.GeneralTickets, b.ChildTickets, b.SeniorTickets, b.OfferTickets, addons,
		b.Subtotal, b.DiscountAmount, b.TotalAmount, b.PromoCode, b.BirthdayOfferID)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.PaymentStatus = model.PaymentPending
	b.BookingStatus = model.BookingPending

	if err := r.activity.InsertTx(ctx, tx, b.Ref, "created",
		fmt.Sprintf("%d tickets for %s", b.TicketCount(), dateOnly(b.VisitDate))); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// ConfirmPayment moves a pending booking to confirmed on payment
// success.  Availability was consumed at creation time, so this never
// touches the capacity ledger.  Losing the row to the expiry sweep (or
// a duplicate callback) surfaces as ErrConflict.
func (r *BookingRepo) ConfirmPayment(ctx context.Context, ref, paymentID, method string) (*model.Booking, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET payment_status = 'completed', booking_status = 'confirmed',
		     payment_id = ?, payment_method = ?, updated_at = UTC_TIMESTAMP()
		 WHERE booking_ref = ? AND payment_status = 'pending' AND booking_status = 'pending'`,
		paymentID, method, ref)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.GetByRef(ctx, ref); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	_ = r.activity.Insert(ctx, ref, "payment_completed", "payment "+paymentID+" via "+method)
	return r.GetByRef(ctx, ref)
}

// MarkPaymentFailed cancels a pending booking after a failed payment
// and returns its slots to the pool.
func (r *BookingRepo) MarkPaymentFailed(ctx context.Context, ref string) (*model.Booking, error) {
	return r.transition(ctx, ref, "payment_failed", func(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE bookings
			 SET payment_status = 'failed', booking_status = 'cancelled', updated_at = UTC_TIMESTAMP()
			 WHERE id = ? AND payment_status = 'pending' AND booking_status = 'pending'`, b.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}
		b.PaymentStatus = model.PaymentFailed
		b.BookingStatus = model.BookingCancelled
		return releaseTx(ctx, tx, b.LocationID, b.VisitDate, b.TicketCount())
	})
}

// Cancel cancels a pending or confirmed booking and restores its slots.
// A second cancel finds no matching row and fails with ErrConflict,
// leaving the ledger unchanged.
func (r *BookingRepo) Cancel(ctx context.Context, ref string) (*model.Booking, error) {
	return r.transition(ctx, ref, "cancelled", func(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE bookings SET booking_status = 'cancelled', updated_at = UTC_TIMESTAMP()
			 WHERE id = ? AND booking_status IN ('pending','confirmed')`, b.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}
		b.BookingStatus = model.BookingCancelled
		return releaseTx(ctx, tx, b.LocationID, b.VisitDate, b.TicketCount())
	})
}

// ExpireStale expires every pending unpaid booking created at or before
// the cutoff and restores its slots.  The per-row status flip is
// conditional, so a payment confirmation that lands mid-sweep keeps its
// booking: whichever writer commits first wins the row.  Returns the
// bookings that were actually expired.
func (r *BookingRepo) ExpireStale(ctx context.Context, cutoff time.Time) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT booking_ref FROM bookings
		 WHERE booking_status = 'pending' AND payment_status = 'pending' AND created_at <= ?`,
		cutoff.UTC())
	if err != nil {
		return nil, err
	}
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			rows.Close()
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	expired := make([]model.Booking, 0, len(refs))
	for _, ref := range refs {
		b, err := r.transition(ctx, ref, "expired", func(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
			res, err := tx.ExecContext(ctx,
				`UPDATE bookings SET booking_status = 'expired', updated_at = UTC_TIMESTAMP()
				 WHERE id = ? AND booking_status = 'pending' AND payment_status = 'pending'`, b.ID)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrConflict
			}
			b.BookingStatus = model.BookingExpired
			return releaseTx(ctx, tx, b.LocationID, b.VisitDate, b.TicketCount())
		})
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			continue // confirmed or cancelled between the select and the flip
		}
		if err != nil {
			return expired, err
		}
		expired = append(expired, *b)
	}
	return expired, nil
}

// MarkRefunded records a refund against a paid booking.  Slots are
// returned to the pool only when releaseSlots is set and the booking
// was still holding them (a cancelled-then-refunded booking released
// its slots at cancellation).
func (r *BookingRepo) MarkRefunded(ctx context.Context, ref string, amount float64, releaseSlots bool) (*model.Booking, error) {
	return r.transition(ctx, ref, "refunded", func(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
		if b.PaymentStatus != model.PaymentCompleted {
			return ErrConflict
		}
		if b.BookingStatus == model.BookingRefunded || b.BookingStatus == model.BookingExpired {
			return ErrConflict
		}
		heldSlot := b.BookingStatus == model.BookingConfirmed
		res, err := tx.ExecContext(ctx,
			`UPDATE bookings SET booking_status = 'refunded', refund_amount = ?, updated_at = UTC_TIMESTAMP()
			 WHERE id = ? AND booking_status IN ('confirmed','cancelled')`, amount, b.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}
		b.BookingStatus = model.BookingRefunded
		b.RefundAmount = &amount
		if releaseSlots && heldSlot {
			return releaseTx(ctx, tx, b.LocationID, b.VisitDate, b.TicketCount())
		}
		return nil
	})
}

// Claim marks the tickets as checked in at the gate.  Only confirmed,
// unclaimed bookings qualify; a second claim fails with ErrConflict.
func (r *BookingRepo) Claim(ctx context.Context, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET claimed = 1, claimed_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP()
		 WHERE booking_ref = ? AND booking_status = 'confirmed' AND claimed = 0`, ref)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByRef(ctx, ref); err != nil {
			return err
		}
		return ErrConflict
	}
	_ = r.activity.Insert(ctx, ref, "claimed", "tickets claimed at gate")
	return nil
}

// GetByRef loads a booking by its reference.
func (r *BookingRepo) GetByRef(ctx context.Context, ref string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_ref = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListForDate returns bookings for a location and visit date, newest first.
func (r *BookingRepo) ListForDate(ctx context.Context, locationID uint64, date time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE location_id = ? AND visit_date = ? ORDER BY created_at DESC`
	return r.list(ctx, q, locationID, dateOnly(date))
}

// ListRecent returns the most recent bookings across all locations for
// the admin dashboard.
func (r *BookingRepo) ListRecent(ctx context.Context, limit int) ([]model.Booking, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT ?`
	return r.list(ctx, q, limit)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// transition loads the booking inside a transaction, applies the
// mutation and logs the activity entry.  The SELECT ... FOR UPDATE
// serialises competing transitions on the same row.
func (r *BookingRepo) transition(ctx context.Context, ref, action string,
	mutate func(context.Context, *sql.Tx, *model.Booking) error) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_ref = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := mutate(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := r.activity.InsertTx(ctx, tx, ref, action, ""); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return b, nil
}
