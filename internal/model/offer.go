package model

import "time"

// BirthdayOffer prices "offer tickets" at a discount for visitors whose
// birthday falls close to the visit date.  DaysBefore/DaysAfter define
// the window around the birthday in which the offer may be claimed.
// Usage caps mirror promo codes: TotalLimit of zero means unlimited.
type BirthdayOffer struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	DiscountPercent  float64   `json:"discount_percent"`
	MinAge           int       `json:"min_age"`
	MaxAge           int       `json:"max_age"`
	DaysBefore       int       `json:"days_before"`
	DaysAfter        int       `json:"days_after"`
	PerCustomerLimit int       `json:"per_customer_limit"`
	TotalLimit       int       `json:"total_limit"`
	UsedCount        int       `json:"used_count"`
	ValidFrom        time.Time `json:"valid_from"`
	ValidTo          time.Time `json:"valid_to"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Applicable reports whether the offer can be claimed for a visit on
// visitDate by a customer born on birthDate.  The birthday anniversary
// nearest the visit is compared against the before/after window, and
// the customer's age at visit time against the age bounds.
func (o *BirthdayOffer) Applicable(visitDate, birthDate time.Time) bool {
	if o.Status != StatusActive {
		return false
	}
	v := visitDate.Truncate(24 * time.Hour)
	if v.Before(o.ValidFrom.Truncate(24*time.Hour)) || v.After(o.ValidTo.Truncate(24*time.Hour)) {
		return false
	}
	age := v.Year() - birthDate.Year()
	anniv := time.Date(v.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC)
	if anniv.After(v) {
		age--
	}
	if o.MinAge > 0 && age < o.MinAge {
		return false
	}
	if o.MaxAge > 0 && age > o.MaxAge {
		return false
	}
	// Check the anniversary in the visit year and its neighbours so
	// windows spanning a year boundary still match.
	for _, y := range []int{v.Year() - 1, v.Year(), v.Year() + 1} {
		a := time.Date(y, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC)
		from := a.AddDate(0, 0, -o.DaysBefore)
		to := a.AddDate(0, 0, o.DaysAfter)
		if !v.Before(from) && !v.After(to) {
			return true
		}
	}
	return false
}

// Exhausted reports whether the total usage cap has been reached.
func (o *BirthdayOffer) Exhausted() bool {
	return o.TotalLimit > 0 && o.UsedCount >= o.TotalLimit
}
