package pricing

import "time"

// TierPrices holds the unit price per ticket tier.
type TierPrices struct {
	General float64 `json:"general"`
	Child   float64 `json:"child"`
	Senior  float64 `json:"senior"`
}

// SeasonWindow is a date range with a price multiplier.  Windows are
// evaluated in declaration order and the first active window containing
// the booking date wins; ranges are assumed non-overlapping.
type SeasonWindow struct {
	Name       string    `json:"name"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Multiplier float64   `json:"multiplier"`
	Active     bool      `json:"active"`
}

// Contains reports whether the window covers the given date (inclusive
// on both ends, date precision).
func (w SeasonWindow) Contains(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	return !d.Before(w.Start.Truncate(24*time.Hour)) &&
		!d.After(w.End.Truncate(24*time.Hour))
}

// GroupTier maps a minimum ticket count to a percentage discount on the
// subtotal.  The highest matching tier applies; tiers never stack.
type GroupTier struct {
	MinTickets int     `json:"min_tickets"`
	Percent    float64 `json:"percent"`
}

// Settings is the explicit business configuration consumed by the
// pricing engine and the booking manager.  It is loaded from the
// settings table at startup and reloaded when an administrator saves
// changes; nothing reads ambient global state.
type Settings struct {
	Currency               string         `json:"currency"`
	BasePrices             TierPrices     `json:"base_prices"`
	DynamicPricing         bool           `json:"dynamic_pricing"`
	Seasons                []SeasonWindow `json:"seasons,omitempty"`
	GroupTiers             []GroupTier    `json:"group_tiers,omitempty"`
	BirthdayDiscountPct    float64        `json:"birthday_discount_pct"`
	AdvanceBookingDays     int            `json:"advance_booking_days"`
	MaxTicketsPerBooking   int            `json:"max_tickets_per_booking"`
	PendingTTLMinutes      int            `json:"pending_ttl_minutes"`
	AvailabilityWindowDays int            `json:"availability_window_days"`
}

// DefaultSettings returns the configuration used until an administrator
// saves their own.
func DefaultSettings() Settings {
	return Settings{
		Currency:       "INR",
		BasePrices:     TierPrices{General: 400, Child: 250, Senior: 300},
		DynamicPricing: true,
		GroupTiers: []GroupTier{
			{MinTickets: 15, Percent: 5},
			{MinTickets: 30, Percent: 10},
		},
		BirthdayDiscountPct:    20,
		AdvanceBookingDays:     60,
		MaxTicketsPerBooking:   50,
		PendingTTLMinutes:      30,
		AvailabilityWindowDays: 60,
	}
}
