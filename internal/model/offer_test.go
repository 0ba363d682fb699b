package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func activeOffer() BirthdayOffer {
	return BirthdayOffer{
		Status:     StatusActive,
		DaysBefore: 3,
		DaysAfter:  3,
		ValidFrom:  day(2026, 1, 1),
		ValidTo:    day(2026, 12, 31),
	}
}

func TestOfferApplicableWindow(t *testing.T) {
	o := activeOffer()
	birth := day(1990, 6, 15)

	assert.True(t, o.Applicable(day(2026, 6, 15), birth), "on the birthday")
	assert.True(t, o.Applicable(day(2026, 6, 12), birth), "start of window")
	assert.True(t, o.Applicable(day(2026, 6, 18), birth), "end of window")
	assert.False(t, o.Applicable(day(2026, 6, 11), birth), "one day early")
	assert.False(t, o.Applicable(day(2026, 6, 19), birth), "one day late")
}

func TestOfferApplicableAcrossYearBoundary(t *testing.T) {
	o := activeOffer()
	birth := day(1990, 1, 1)

	// December 30 falls in the window of the January 1 anniversary of
	// the following year.
	assert.True(t, o.Applicable(day(2026, 12, 30), birth))
}

func TestOfferAgeBounds(t *testing.T) {
	o := activeOffer()
	o.MinAge = 5
	o.MaxAge = 12

	assert.True(t, o.Applicable(day(2026, 6, 15), day(2018, 6, 15)), "turns 8")
	assert.False(t, o.Applicable(day(2026, 6, 15), day(2023, 6, 15)), "too young")
	assert.False(t, o.Applicable(day(2026, 6, 15), day(2000, 6, 15)), "too old")
}

func TestOfferInactiveOrOutsideValidity(t *testing.T) {
	o := activeOffer()
	o.Status = StatusInactive
	assert.False(t, o.Applicable(day(2026, 6, 15), day(1990, 6, 15)))

	o = activeOffer()
	o.ValidTo = day(2026, 5, 31)
	assert.False(t, o.Applicable(day(2026, 6, 15), day(1990, 6, 15)))
}

func TestOfferExhausted(t *testing.T) {
	o := BirthdayOffer{TotalLimit: 10, UsedCount: 10}
	assert.True(t, o.Exhausted())

	unlimited := BirthdayOffer{TotalLimit: 0, UsedCount: 1000}
	assert.False(t, unlimited.Exhausted())
}

func TestPromoValidOn(t *testing.T) {
	p := PromoCode{
		Status:    StatusActive,
		ValidFrom: day(2026, 6, 1),
		ValidTo:   day(2026, 6, 30),
	}
	assert.True(t, p.ValidOn(day(2026, 6, 1)))
	assert.True(t, p.ValidOn(day(2026, 6, 30)))
	assert.False(t, p.ValidOn(day(2026, 5, 31)))
	assert.False(t, p.ValidOn(day(2026, 7, 1)))

	p.Status = StatusInactive
	assert.False(t, p.ValidOn(day(2026, 6, 15)))
}
