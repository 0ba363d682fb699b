// Package pricing computes price quotes for ticket carts.  Quote is a
// pure function of its inputs plus the current settings snapshot, so it
// is safe to call repeatedly while a visitor edits their cart.
package pricing

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/marineworld/booking/internal/model"
)

// QuoteRequest is the cart shape the engine prices.  AddonPrices is the
// current catalog snapshot for the requested add-ons; Promo, when set,
// must already have been validated against its window and status by the
// caller.  SpecialMultiplier is the per-date pricing override from the
// availability record and takes precedence over seasonal windows.
type QuoteRequest struct {
	Date              time.Time
	GeneralTickets    int
	ChildTickets      int
	SeniorTickets     int
	OfferTickets      int
	Addons            map[uint64]int
	AddonPrices       map[uint64]float64
	Promo             *model.PromoCode
	SpecialMultiplier *float64
}

// TicketCount returns the total number of tickets in the cart.
func (q QuoteRequest) TicketCount() int {
	return q.GeneralTickets + q.ChildTickets + q.SeniorTickets + q.OfferTickets
}

// Breakdown is the full result of a quote.
type Breakdown struct {
	Currency        string     `json:"currency"`
	UnitPrices      TierPrices `json:"unit_prices"`
	OfferUnitPrice  float64    `json:"offer_unit_price"`
	TicketsSubtotal float64    `json:"tickets_subtotal"`
	OfferSubtotal   float64    `json:"offer_subtotal"`
	AddonsSubtotal  float64    `json:"addons_subtotal"`
	Subtotal        float64    `json:"subtotal"`
	GroupDiscount   float64    `json:"group_discount"`
	PromoDiscount   float64    `json:"promo_discount"`
	DiscountTotal   float64    `json:"discount_total"`
	Total           float64    `json:"total"`
}

// Engine prices carts against a reloadable settings snapshot.
type Engine struct {
	settings atomic.Value // Settings
}

// NewEngine returns an engine primed with the given settings.
func NewEngine(s Settings) *Engine {
	e := &Engine{}
	e.settings.Store(s)
	return e
}

// Reload swaps in a new settings snapshot.  In-flight quotes keep the
// snapshot they started with.
func (e *Engine) Reload(s Settings) { e.settings.Store(s) }

// Snapshot returns the current settings.
func (e *Engine) Snapshot() Settings { return e.settings.Load().(Settings) }

// Quote prices a cart.  Steps, in order: resolve tier unit prices for
// the date, sum tier tickets, price offer tickets off the discounted
// general price, sum add-ons, then apply the group discount and promo
// discount (these stack) and clamp the total at zero.
func (e *Engine) Quote(req QuoteRequest) Breakdown {
	s := e.Snapshot()

	unit := e.unitPrices(s, req.Date, req.SpecialMultiplier)
	offerUnit := round2(unit.General * (1 - s.BirthdayDiscountPct/100))

	ticketsSubtotal := round2(unit.General*float64(req.GeneralTickets) +
		unit.Child*float64(req.ChildTickets) +
		unit.Senior*float64(req.SeniorTickets))
	offerSubtotal := round2(offerUnit * float64(req.OfferTickets))

	addonsSubtotal := 0.0
	for id, qty := range req.Addons {
		if qty <= 0 {
			continue
		}
		addonsSubtotal += req.AddonPrices[id] * float64(qty)
	}
	addonsSubtotal = round2(addonsSubtotal)

	subtotal := round2(ticketsSubtotal + offerSubtotal + addonsSubtotal)

	groupDiscount := round2(subtotal * groupPercent(s.GroupTiers, req.TicketCount()) / 100)
	promoDiscount := promoDiscount(req.Promo, subtotal)

	discountTotal := round2(groupDiscount + promoDiscount)
	total := round2(subtotal - discountTotal)
	if total < 0 {
		total = 0
	}

	return Breakdown{
		Currency:        s.Currency,
		UnitPrices:      unit,
		OfferUnitPrice:  offerUnit,
		TicketsSubtotal: ticketsSubtotal,
		OfferSubtotal:   offerSubtotal,
		AddonsSubtotal:  addonsSubtotal,
		Subtotal:        subtotal,
		GroupDiscount:   groupDiscount,
		PromoDiscount:   promoDiscount,
		DiscountTotal:   discountTotal,
		Total:           total,
	}
}

// unitPrices resolves per-tier prices for a date.  A per-date special
// multiplier beats seasonal windows; otherwise the first active window
// containing the date applies.
func (e *Engine) unitPrices(s Settings, date time.Time, special *float64) TierPrices {
	m := 1.0
	switch {
	case special != nil && *special > 0:
		m = *special
	case s.DynamicPricing:
		for _, w := range s.Seasons {
			if w.Active && w.Contains(date) {
				m = w.Multiplier
				break
			}
		}
	}
	return TierPrices{
		General: round2(s.BasePrices.General * m),
		Child:   round2(s.BasePrices.Child * m),
		Senior:  round2(s.BasePrices.Senior * m),
	}
}

// groupPercent returns the discount percentage of the highest tier the
// ticket count reaches.  Tiers never stack.
func groupPercent(tiers []GroupTier, tickets int) float64 {
	best := 0.0
	bestMin := 0
	for _, t := range tiers {
		if tickets >= t.MinTickets && t.MinTickets > bestMin {
			best = t.Percent
			bestMin = t.MinTickets
		}
	}
	return best
}

// promoDiscount computes the promo deduction for a validated code.
// Percentage discounts respect the per-code cap; fixed discounts apply
// as-is.  A subtotal below the code's minimum yields no discount.
func promoDiscount(p *model.PromoCode, subtotal float64) float64 {
	if p == nil || subtotal < p.MinimumAmount {
		return 0
	}
	switch p.DiscountType {
	case model.DiscountPercentage:
		d := subtotal * p.DiscountValue / 100
		if p.MaximumDiscount > 0 && d > p.MaximumDiscount {
			d = p.MaximumDiscount
		}
		return round2(d)
	case model.DiscountFixed:
		return round2(p.DiscountValue)
	}
	return 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
