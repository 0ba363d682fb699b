// Package service holds the booking business logic between the HTTP
// handlers and the repositories.  The manager depends on small local
// interfaces so tests can substitute in-memory fakes for MySQL, Redis,
// RabbitMQ and the payment gateway.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/marineworld/booking/internal/model"
	"github.com/marineworld/booking/internal/payment"
	"github.com/marineworld/booking/internal/pricing"
	"github.com/marineworld/booking/internal/queue"
	"github.com/marineworld/booking/internal/repository"
)

type availabilityStore interface {
	Range(ctx context.Context, locationID uint64, from, to time.Time) ([]model.AvailabilityRecord, error)
	GetDate(ctx context.Context, locationID uint64, date time.Time) (*model.AvailabilityRecord, error)
	SeedWindow(ctx context.Context, locationID uint64, from time.Time, days, capacity int) error
	SetCapacity(ctx context.Context, locationID uint64, date time.Time, newTotal int) error
	SetBlackout(ctx context.Context, locationID uint64, date time.Time, on bool) error
	SetSpecialPricing(ctx context.Context, locationID uint64, date time.Time, multiplier *float64) error
}

type bookingLedger interface {
	CreateWithReservation(ctx context.Context, b *model.Booking) error
	ConfirmPayment(ctx context.Context, ref, paymentID, method string) (*model.Booking, error)
	MarkPaymentFailed(ctx context.Context, ref string) (*model.Booking, error)
	Cancel(ctx context.Context, ref string) (*model.Booking, error)
	ExpireStale(ctx context.Context, cutoff time.Time) ([]model.Booking, error)
	MarkRefunded(ctx context.Context, ref string, amount float64, releaseSlots bool) (*model.Booking, error)
	Claim(ctx context.Context, ref string) error
	GetByRef(ctx context.Context, ref string) (*model.Booking, error)
	ListForDate(ctx context.Context, locationID uint64, date time.Time) ([]model.Booking, error)
	ListRecent(ctx context.Context, limit int) ([]model.Booking, error)
}

type promoStore interface {
	GetByCode(ctx context.Context, code string) (*model.PromoCode, error)
}

type offerStore interface {
	GetByID(ctx context.Context, id uint64) (*model.BirthdayOffer, error)
}

type addonCatalog interface {
	PriceMap(ctx context.Context, ids []uint64) (map[uint64]float64, error)
}

type locationStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Location, error)
	ListActive(ctx context.Context) ([]model.Location, error)
}

type settingsStore interface {
	Load(ctx context.Context) (pricing.Settings, error)
	Save(ctx context.Context, s pricing.Settings) error
}

type notifier interface {
	Publish(ctx context.Context, queueName string, ev queue.BookingEvent) error
}

type calendarCache interface {
	GetRange(ctx context.Context, locationID uint64, from, to string) ([]model.AvailabilityRecord, bool)
	SetRange(ctx context.Context, locationID uint64, from, to string, records []model.AvailabilityRecord)
	InvalidateLocation(ctx context.Context, locationID uint64)
}

// Options tunes manager policy.
type Options struct {
	// RefundReleasesSlots returns a refunded confirmed booking's slots
	// to the pool.  Off by default: most refunds happen close to the
	// visit date, when reselling the slots is unrealistic.
	RefundReleasesSlots bool
}

// BookingManager orchestrates the booking lifecycle: quoting, creation
// with capacity reservation, payment callbacks, cancellation, refunds,
// expiry and gate claims.
type BookingManager struct {
	availability availabilityStore
	ledger       bookingLedger
	promos       promoStore
	offers       offerStore
	addons       addonCatalog
	locations    locationStore
	settings     settingsStore
	engine       *pricing.Engine
	bridge       payment.Bridge
	events       notifier
	cache        calendarCache
	opts         Options

	now func() time.Time // injectable clock for tests
}

// NewBookingManager wires the manager.  events and cache may be nil in
// tests; a nil notifier simply skips event publishing.
func NewBookingManager(
	availability availabilityStore,
	ledger bookingLedger,
	promos promoStore,
	offers offerStore,
	addons addonCatalog,
	locations locationStore,
	settings settingsStore,
	engine *pricing.Engine,
	bridge payment.Bridge,
	events notifier,
	cache calendarCache,
	opts Options,
) *BookingManager {
	return &BookingManager{
		availability: availability,
		ledger:       ledger,
		promos:       promos,
		offers:       offers,
		addons:       addons,
		locations:    locations,
		settings:     settings,
		engine:       engine,
		bridge:       bridge,
		events:       events,
		cache:        cache,
		opts:         opts,
		now:          time.Now,
	}
}

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// Calendar returns the availability records for a location over a date
// window, served from cache when possible.
func (m *BookingManager) Calendar(ctx context.Context, locationID uint64, from, to time.Time) ([]model.AvailabilityRecord, error) {
	if to.Before(from) {
		return nil, validationErrorf("window end before start")
	}
	s := m.engine.Snapshot()
	maxTo := m.today().AddDate(0, 0, s.AvailabilityWindowDays)
	if to.After(maxTo) {
		to = maxTo
	}
	fromKey, toKey := dateKey(from), dateKey(to)
	if m.cache != nil {
		if recs, ok := m.cache.GetRange(ctx, locationID, fromKey, toKey); ok {
			return recs, nil
		}
	}
	recs, err := m.availability.Range(ctx, locationID, from, to)
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		m.cache.SetRange(ctx, locationID, fromKey, toKey, recs)
	}
	return recs, nil
}

// QuoteInput is a cart to price.  BirthDate is required when
// BirthdayOfferID is set.
type QuoteInput struct {
	LocationID      uint64
	VisitDate       time.Time
	GeneralTickets  int
	ChildTickets    int
	SeniorTickets   int
	OfferTickets    int
	Addons          map[uint64]int
	PromoCode       string
	BirthdayOfferID uint64
	BirthDate       time.Time
}

// Quote validates the cart and prices it without reserving anything.
// The promo code is validated but not redeemed; redemption happens
// atomically at booking time.
func (m *BookingManager) Quote(ctx context.Context, in QuoteInput) (*pricing.Breakdown, error) {
	req, _, err := m.buildQuote(ctx, in)
	if err != nil {
		return nil, err
	}
	bd := m.engine.Quote(*req)
	return &bd, nil
}

// buildQuote runs shared validation for Quote and CreateBooking and
// assembles the pricing request.
func (m *BookingManager) buildQuote(ctx context.Context, in QuoteInput) (*pricing.QuoteRequest, *model.PromoCode, error) {
	s := m.engine.Snapshot()
	visit := in.VisitDate.UTC().Truncate(24 * time.Hour)
	today := m.today()
	if visit.Before(today) {
		return nil, nil, validationErrorf("visit date %s is in the past", dateKey(visit))
	}
	if visit.After(today.AddDate(0, 0, s.AdvanceBookingDays)) {
		return nil, nil, validationErrorf("visit date beyond the %d-day booking window", s.AdvanceBookingDays)
	}

	total := in.GeneralTickets + in.ChildTickets + in.SeniorTickets + in.OfferTickets
	if in.GeneralTickets < 0 || in.ChildTickets < 0 || in.SeniorTickets < 0 || in.OfferTickets < 0 {
		return nil, nil, validationErrorf("ticket counts must not be negative")
	}
	if total < 1 {
		return nil, nil, validationErrorf("at least one ticket is required")
	}
	if total > s.MaxTicketsPerBooking {
		return nil, nil, validationErrorf("at most %d tickets per booking", s.MaxTicketsPerBooking)
	}

	loc, err := m.locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return nil, nil, err
	}
	if loc.Status != model.StatusActive {
		return nil, nil, validationErrorf("location %s is not open for booking", loc.Name)
	}

	rec, err := m.availability.GetDate(ctx, in.LocationID, visit)
	if err != nil {
		return nil, nil, err
	}
	if rec.IsBlackout {
		return nil, nil, repository.ErrBlackout
	}

	var addonPrices map[uint64]float64
	if len(in.Addons) > 0 {
		ids := make([]uint64, 0, len(in.Addons))
		for id, qty := range in.Addons {
			if qty < 0 {
				return nil, nil, validationErrorf("add-on quantities must not be negative")
			}
			if qty > 0 {
				ids = append(ids, id)
			}
		}
		addonPrices, err = m.addons.PriceMap(ctx, ids)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range ids {
			if _, ok := addonPrices[id]; !ok {
				return nil, nil, validationErrorf("add-on %d does not exist or is inactive", id)
			}
		}
	}

	var promo *model.PromoCode
	if in.PromoCode != "" {
		promo, err = m.promos.GetByCode(ctx, in.PromoCode)
		if err == repository.ErrNotFound {
			return nil, nil, ErrPromoInvalid
		}
		if err != nil {
			return nil, nil, err
		}
		if !promo.ValidOn(visit) || promo.Exhausted() {
			return nil, nil, ErrPromoInvalid
		}
	}

	if in.OfferTickets > 0 {
		if in.BirthdayOfferID == 0 {
			return nil, nil, validationErrorf("offer tickets require a birthday offer")
		}
		offer, err := m.offers.GetByID(ctx, in.BirthdayOfferID)
		if err == repository.ErrNotFound {
			return nil, nil, ErrOfferNotApplicable
		}
		if err != nil {
			return nil, nil, err
		}
		if in.BirthDate.IsZero() || !offer.Applicable(visit, in.BirthDate) || offer.Exhausted() {
			return nil, nil, ErrOfferNotApplicable
		}
	} else if in.BirthdayOfferID != 0 {
		return nil, nil, validationErrorf("birthday offer set but no offer tickets requested")
	}

	return &pricing.QuoteRequest{
		Date:              visit,
		GeneralTickets:    in.GeneralTickets,
		ChildTickets:      in.ChildTickets,
		SeniorTickets:     in.SeniorTickets,
		OfferTickets:      in.OfferTickets,
		Addons:            in.Addons,
		AddonPrices:       addonPrices,
		Promo:             promo,
		SpecialMultiplier: rec.SpecialPricing,
	}, promo, nil
}

// ValidatePromo checks a promo code against a visit date without
// redeeming it, for pre-checkout UI feedback.
func (m *BookingManager) ValidatePromo(ctx context.Context, code string, visitDate time.Time) (*model.PromoCode, error) {
	promo, err := m.promos.GetByCode(ctx, code)
	if err == repository.ErrNotFound {
		return nil, ErrPromoInvalid
	}
	if err != nil {
		return nil, err
	}
	if !promo.ValidOn(visitDate.UTC().Truncate(24*time.Hour)) || promo.Exhausted() {
		return nil, ErrPromoInvalid
	}
	return promo, nil
}

// CreateInput extends QuoteInput with the customer's contact details.
type CreateInput struct {
	QuoteInput
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// CreateResult is a created booking plus the payment handle the
// customer completes.
type CreateResult struct {
	Booking   *model.Booking     `json:"booking"`
	Breakdown *pricing.Breakdown `json:"breakdown"`
	Payment   *payment.Intent    `json:"payment"`
}

// CreateBooking prices the cart, reserves capacity, persists the
// booking and initiates the payment.  The reservation and the booking
// row commit in one transaction; if the gateway then refuses to
// initiate the payment, the booking is cancelled and its slots
// released before the error is returned.
func (m *BookingManager) CreateBooking(ctx context.Context, in CreateInput) (*CreateResult, error) {
	req, promo, err := m.buildQuote(ctx, in.QuoteInput)
	if err != nil {
		return nil, err
	}
	bd := m.engine.Quote(*req)

	ref, err := model.NewBookingRef(m.now())
	if err != nil {
		return nil, err
	}
	b := &model.Booking{
		Ref:            ref,
		LocationID:     in.LocationID,
		VisitDate:      req.Date,
		CustomerName:   in.CustomerName,
		CustomerEmail:  in.CustomerEmail,
		CustomerPhone:  in.CustomerPhone,
		GeneralTickets: in.GeneralTickets,
		ChildTickets:   in.ChildTickets,
		SeniorTickets:  in.SeniorTickets,
		OfferTickets:   in.OfferTickets,
		Addons:         in.Addons,
		Subtotal:       bd.Subtotal,
		DiscountAmount: bd.DiscountTotal,
		TotalAmount:    bd.Total,
	}
	if promo != nil {
		b.PromoCode = &promo.Code
	}
	if in.BirthdayOfferID != 0 {
		id := in.BirthdayOfferID
		b.BirthdayOfferID = &id
	}

	if err := m.ledger.CreateWithReservation(ctx, b); err != nil {
		return nil, err
	}
	m.invalidate(ctx, b.LocationID)

	intent, err := m.bridge.Initiate(ctx, payment.Order{
		BookingRef: b.Ref,
		Amount:     b.TotalAmount,
		Currency:   bd.Currency,
		Email:      b.CustomerEmail,
	})
	if err != nil {
		// Roll the reservation back so the slots are not held hostage
		// by a gateway outage.
		if _, cerr := m.ledger.Cancel(ctx, b.Ref); cerr != nil {
			log.Printf("booking %s: cancel after gateway failure: %v", b.Ref, cerr)
		} else {
			m.invalidate(ctx, b.LocationID)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	m.publish(ctx, queue.QueueBookingCreated, b)
	return &CreateResult{Booking: b, Breakdown: &bd, Payment: intent}, nil
}

// Callback is the payment gateway's webhook payload.
type Callback struct {
	BookingRef string `json:"booking_ref"`
	PaymentID  string `json:"payment_id"`
	Method     string `json:"method"`
	Status     string `json:"status"` // "success" or "failure"
}

// HandlePaymentCallback verifies and applies a gateway webhook.  A
// success confirms the booking; anything else cancels it and releases
// its slots.  Replayed callbacks surface as repository.ErrConflict.
func (m *BookingManager) HandlePaymentCallback(ctx context.Context, body []byte, signature string) (*model.Booking, error) {
	if !m.bridge.VerifySignature(body, signature) {
		return nil, ErrBadSignature
	}
	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, validationErrorf("malformed callback payload")
	}
	if cb.BookingRef == "" || cb.PaymentID == "" {
		return nil, validationErrorf("callback missing booking_ref or payment_id")
	}

	if cb.Status == "success" {
		b, err := m.ledger.ConfirmPayment(ctx, cb.BookingRef, cb.PaymentID, cb.Method)
		if err != nil {
			return nil, err
		}
		m.publish(ctx, queue.QueueBookingConfirmed, b)
		return b, nil
	}

	b, err := m.ledger.MarkPaymentFailed(ctx, cb.BookingRef)
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, b.LocationID)
	m.publish(ctx, queue.QueueBookingCancelled, b)
	return b, nil
}

// Cancel cancels a booking and releases its slots.  A paid booking is
// refunded in full through the gateway as part of the cancellation.
func (m *BookingManager) Cancel(ctx context.Context, ref string) (*model.Booking, error) {
	b, err := m.ledger.Cancel(ctx, ref)
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, b.LocationID)

	if b.PaymentStatus == model.PaymentCompleted && b.PaymentID != nil {
		if err := m.bridge.Refund(ctx, ref, *b.PaymentID, b.TotalAmount); err != nil {
			// The booking is already cancelled; surface the refund
			// failure so an operator can retry it.
			m.publish(ctx, queue.QueueBookingCancelled, b)
			return b, fmt.Errorf("%w: %v", ErrGateway, err)
		}
		// Slots were already released by the cancellation.
		if rb, err := m.ledger.MarkRefunded(ctx, ref, b.TotalAmount, false); err == nil {
			b = rb
		} else {
			log.Printf("booking %s: mark refunded after cancel: %v", ref, err)
		}
		m.publish(ctx, queue.QueueBookingRefunded, b)
		return b, nil
	}

	m.publish(ctx, queue.QueueBookingCancelled, b)
	return b, nil
}

// Refund issues a full or partial refund for a paid booking without
// requiring a prior cancellation.  Whether the slots return to the
// pool is an Options policy decision.
func (m *BookingManager) Refund(ctx context.Context, ref string, amount float64) (*model.Booking, error) {
	b, err := m.ledger.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != model.PaymentCompleted || b.PaymentID == nil {
		return nil, repository.ErrConflict
	}
	if amount <= 0 || amount > b.TotalAmount {
		return nil, validationErrorf("refund amount must be between 0 and %.2f", b.TotalAmount)
	}
	if err := m.bridge.Refund(ctx, ref, *b.PaymentID, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	release := m.opts.RefundReleasesSlots
	rb, err := m.ledger.MarkRefunded(ctx, ref, amount, release)
	if err != nil {
		return nil, err
	}
	if release {
		m.invalidate(ctx, rb.LocationID)
	}
	m.publish(ctx, queue.QueueBookingRefunded, rb)
	return rb, nil
}

// Claim marks a confirmed booking's tickets as collected at the gate.
func (m *BookingManager) Claim(ctx context.Context, ref string) (*model.Booking, error) {
	if err := m.ledger.Claim(ctx, ref); err != nil {
		return nil, err
	}
	return m.ledger.GetByRef(ctx, ref)
}

// Lookup returns a booking by its reference.
func (m *BookingManager) Lookup(ctx context.Context, ref string) (*model.Booking, error) {
	return m.ledger.GetByRef(ctx, ref)
}

// ListForDate returns bookings for a location and visit date.
func (m *BookingManager) ListForDate(ctx context.Context, locationID uint64, date time.Time) ([]model.Booking, error) {
	return m.ledger.ListForDate(ctx, locationID, date)
}

// ListRecent returns the newest bookings for the admin dashboard.
func (m *BookingManager) ListRecent(ctx context.Context, limit int) ([]model.Booking, error) {
	return m.ledger.ListRecent(ctx, limit)
}

// ExpireSweep expires pending bookings whose payment window has lapsed
// and releases their slots.  Returns how many were expired; the
// scheduler calls this on an interval.
func (m *BookingManager) ExpireSweep(ctx context.Context) (int, error) {
	ttl := time.Duration(m.engine.Snapshot().PendingTTLMinutes) * time.Minute
	cutoff := m.now().UTC().Add(-ttl)
	expired, err := m.ledger.ExpireStale(ctx, cutoff)
	for i := range expired {
		m.invalidate(ctx, expired[i].LocationID)
		m.publish(ctx, queue.QueueBookingExpired, &expired[i])
	}
	return len(expired), err
}

// BulkResult summarises a bulk action.
type BulkResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Bulk actions accepted by BulkAction.
const (
	BulkCancel             = "cancel"
	BulkMarkClaimed        = "mark_claimed"
	BulkResendConfirmation = "resend_confirmation"
)

// BulkAction applies one action to many bookings, continuing past
// per-booking failures and reporting them individually.
func (m *BookingManager) BulkAction(ctx context.Context, action string, refs []string) (*BulkResult, error) {
	res := &BulkResult{Errors: map[string]string{}}
	for _, ref := range refs {
		var err error
		switch action {
		case BulkCancel:
			_, err = m.Cancel(ctx, ref)
		case BulkMarkClaimed:
			_, err = m.Claim(ctx, ref)
		case BulkResendConfirmation:
			var b *model.Booking
			if b, err = m.ledger.GetByRef(ctx, ref); err == nil {
				if b.BookingStatus != model.BookingConfirmed {
					err = repository.ErrConflict
				} else {
					m.publish(ctx, queue.QueueBookingConfirmed, b)
				}
			}
		default:
			return nil, validationErrorf("unknown bulk action %q", action)
		}
		if err != nil {
			res.Failed++
			res.Errors[ref] = err.Error()
			continue
		}
		res.Succeeded++
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

// SeedAvailability pre-generates availability rows for every active
// location over the configured rolling window.  Idempotent; the
// scheduler runs it daily and administrators can trigger it manually.
func (m *BookingManager) SeedAvailability(ctx context.Context) error {
	s := m.engine.Snapshot()
	locs, err := m.locations.ListActive(ctx)
	if err != nil {
		return err
	}
	from := m.today()
	for _, loc := range locs {
		if err := m.availability.SeedWindow(ctx, loc.ID, from, s.AvailabilityWindowDays, loc.DefaultCapacity); err != nil {
			return fmt.Errorf("seed location %d: %w", loc.ID, err)
		}
		m.invalidate(ctx, loc.ID)
	}
	return nil
}

// SeedLocation pre-generates the rolling availability window for a
// single location, used right after the location is created.
func (m *BookingManager) SeedLocation(ctx context.Context, locationID uint64, capacity int) error {
	s := m.engine.Snapshot()
	if err := m.availability.SeedWindow(ctx, locationID, m.today(), s.AvailabilityWindowDays, capacity); err != nil {
		return fmt.Errorf("seed location %d: %w", locationID, err)
	}
	m.invalidate(ctx, locationID)
	return nil
}

// SetCapacity updates a date's total capacity.
func (m *BookingManager) SetCapacity(ctx context.Context, locationID uint64, date time.Time, total int) error {
	if total < 0 {
		return validationErrorf("capacity must not be negative")
	}
	if err := m.availability.SetCapacity(ctx, locationID, date, total); err != nil {
		return err
	}
	m.invalidate(ctx, locationID)
	return nil
}

// SetBlackout toggles a date's blackout flag.
func (m *BookingManager) SetBlackout(ctx context.Context, locationID uint64, date time.Time, on bool) error {
	if err := m.availability.SetBlackout(ctx, locationID, date, on); err != nil {
		return err
	}
	m.invalidate(ctx, locationID)
	return nil
}

// SetSpecialPricing sets or clears a date's price multiplier.
func (m *BookingManager) SetSpecialPricing(ctx context.Context, locationID uint64, date time.Time, multiplier *float64) error {
	if multiplier != nil && *multiplier <= 0 {
		return validationErrorf("multiplier must be positive")
	}
	if err := m.availability.SetSpecialPricing(ctx, locationID, date, multiplier); err != nil {
		return err
	}
	m.invalidate(ctx, locationID)
	return nil
}

// Settings returns the current business configuration.
func (m *BookingManager) Settings() pricing.Settings {
	return m.engine.Snapshot()
}

// UpdateSettings persists new business configuration and swaps it into
// the pricing engine.
func (m *BookingManager) UpdateSettings(ctx context.Context, s pricing.Settings) error {
	if s.BasePrices.General <= 0 || s.BasePrices.Child <= 0 || s.BasePrices.Senior <= 0 {
		return validationErrorf("base prices must be positive")
	}
	if s.MaxTicketsPerBooking < 1 || s.AdvanceBookingDays < 1 || s.PendingTTLMinutes < 1 {
		return validationErrorf("limits must be at least 1")
	}
	if err := m.settings.Save(ctx, s); err != nil {
		return err
	}
	m.engine.Reload(s)
	return nil
}

// publish fires a lifecycle event without blocking the request.  Event
// delivery is best effort; the ledger row is the source of truth.
func (m *BookingManager) publish(ctx context.Context, queueName string, b *model.Booking) {
	if m.events == nil {
		return
	}
	ev := queue.NewBookingEvent(b)
	go func() {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := m.events.Publish(pctx, queueName, ev); err != nil {
			log.Printf("publish %s for %s: %v", queueName, ev.BookingRef, err)
		}
	}()
}

func (m *BookingManager) invalidate(ctx context.Context, locationID uint64) {
	if m.cache != nil {
		m.cache.InvalidateLocation(ctx, locationID)
	}
}

func (m *BookingManager) today() time.Time {
	return m.now().UTC().Truncate(24 * time.Hour)
}

func dateKey(t time.Time) string { return t.UTC().Format("2006-01-02") }
