package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name      string
		total     int
		available int
		blackout  bool
		want      string
	}{
		{"full capacity", 100, 100, false, AvailabilityAvailable},
		{"just above limited", 100, 21, false, AvailabilityAvailable},
		{"exactly 20 percent", 100, 20, false, AvailabilityLimited},
		{"below 20 percent", 100, 5, false, AvailabilityLimited},
		{"zero remaining", 100, 0, false, AvailabilitySoldOut},
		{"blackout wins over available", 100, 100, true, AvailabilityBlackout},
		{"blackout wins over sold out", 100, 0, true, AvailabilityBlackout},
		{"zero capacity", 0, 0, false, AvailabilitySoldOut},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.total, tc.available, tc.blackout))
		})
	}
}

func TestConsistent(t *testing.T) {
	ok := AvailabilityRecord{TotalCapacity: 100, BookedSlots: 40, AvailableSlots: 60}
	assert.True(t, ok.Consistent())

	drift := AvailabilityRecord{TotalCapacity: 100, BookedSlots: 40, AvailableSlots: 70}
	assert.False(t, drift.Consistent())

	negative := AvailabilityRecord{TotalCapacity: 100, BookedSlots: -5, AvailableSlots: 105}
	assert.False(t, negative.Consistent())
}
