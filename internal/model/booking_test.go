package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingRefFormat(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	ref, err := NewBookingRef(now)
	require.NoError(t, err)

	assert.Regexp(t, `^MW-20260830-[0-9A-F]{6}$`, ref)
}

func TestNewBookingRefUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref, err := NewBookingRef(now)
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate ref %s", ref)
		seen[ref] = true
	}
}

func TestTicketCountIncludesOfferTickets(t *testing.T) {
	b := Booking{GeneralTickets: 2, ChildTickets: 1, SeniorTickets: 1, OfferTickets: 1}
	assert.Equal(t, 5, b.TicketCount())
}

func TestTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		BookingPending:   false,
		BookingConfirmed: false,
		BookingCancelled: true,
		BookingExpired:   true,
		BookingRefunded:  true,
	} {
		b := Booking{BookingStatus: status}
		assert.Equal(t, terminal, b.Terminal(), status)
	}
}
