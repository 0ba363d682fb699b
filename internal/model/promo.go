package model

import "time"

// Promo discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// PromoCode is an admin-managed discount code.  UsedCount only ever
// increases and never exceeds UsageLimit when a limit is set (zero means
// unlimited); redemption happens via an atomic increment inside the
// booking-create transaction.
type PromoCode struct {
	ID              uint64    `json:"id"`
	Code            string    `json:"code"`
	DiscountType    string    `json:"discount_type"`
	DiscountValue   float64   `json:"discount_value"`
	MinimumAmount   float64   `json:"minimum_amount"`
	MaximumDiscount float64   `json:"maximum_discount"`
	UsageLimit      int       `json:"usage_limit"`
	UsedCount       int       `json:"used_count"`
	ValidFrom       time.Time `json:"valid_from"`
	ValidTo         time.Time `json:"valid_to"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ValidOn reports whether the code is active and its validity window
// contains the given date.  Usage-limit enforcement is left to the
// atomic redemption statement.
func (p *PromoCode) ValidOn(date time.Time) bool {
	if p.Status != StatusActive {
		return false
	}
	d := date.Truncate(24 * time.Hour)
	return !d.Before(p.ValidFrom.Truncate(24*time.Hour)) &&
		!d.After(p.ValidTo.Truncate(24*time.Hour))
}

// Exhausted reports whether the usage limit has been reached.
func (p *PromoCode) Exhausted() bool {
	return p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit
}
