package model

import "time"

// Availability statuses.  The status column is derived from the slot
// counts on every write; blackout overrides whatever the percentage
// would have produced.
const (
	AvailabilityAvailable = "available"
	AvailabilityLimited   = "limited"
	AvailabilitySoldOut   = "sold_out"
	AvailabilityBlackout  = "blackout"
)

// AvailabilityRecord is the per-location per-date capacity ledger row.
// The invariant booked_slots + available_slots == total_capacity holds
// at all times; every mutation re-derives Status.
//
// Fields:
//  ID             – primary key identifier.
//  LocationID     – owning location.
//  Date           – visit date (date portion only, UTC).
//  TotalCapacity  – number of slots the location can admit on Date.
//  BookedSlots    – slots consumed by non-terminal bookings.
//  AvailableSlots – TotalCapacity − BookedSlots, never negative.
//  Status         – derived availability status (see DeriveStatus).
//  IsBlackout     – administrator-forced unavailable date.
//  SpecialPricing – optional price multiplier overriding seasonal windows.
type AvailabilityRecord struct {
	ID             uint64    `json:"id"`
	LocationID     uint64    `json:"location_id"`
	Date           time.Time `json:"date"`
	TotalCapacity  int       `json:"total_capacity"`
	BookedSlots    int       `json:"booked_slots"`
	AvailableSlots int       `json:"available_slots"`
	Status         string    `json:"status"`
	IsBlackout     bool      `json:"is_blackout"`
	SpecialPricing *float64  `json:"special_pricing,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DeriveStatus computes the availability status from the slot counts.
// At most 20% of capacity remaining reads as "limited", zero as
// "sold_out".  A blackout flag wins over everything else.
func DeriveStatus(total, available int, blackout bool) string {
	if blackout {
		return AvailabilityBlackout
	}
	switch {
	case available <= 0:
		return AvailabilitySoldOut
	case total > 0 && available*5 <= total:
		return AvailabilityLimited
	default:
		return AvailabilityAvailable
	}
}

// Consistent reports whether the record satisfies the capacity invariant.
func (a *AvailabilityRecord) Consistent() bool {
	return a.BookedSlots >= 0 && a.AvailableSlots >= 0 &&
		a.BookedSlots+a.AvailableSlots == a.TotalCapacity
}
