package model

import "time"

// Reference-data statuses shared by locations, add-ons and promo codes.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Location is a bookable venue.  DefaultCapacity seeds the availability
// ledger for new dates; individual dates may be re-capacitated later.
type Location struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	City            string    `json:"city"`
	Description     string    `json:"description"`
	DefaultCapacity int       `json:"default_capacity"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Addon is an optional extra attraction added to a booking.
// DisplayOrder controls catalog ordering in listings.
type Addon struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	DisplayOrder int       `json:"display_order"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
