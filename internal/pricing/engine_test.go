package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marineworld/booking/internal/model"
)

var visit = time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

func TestQuoteBaseTiers(t *testing.T) {
	e := NewEngine(DefaultSettings())

	bd := e.Quote(QuoteRequest{
		Date:           visit,
		GeneralTickets: 2,
		ChildTickets:   1,
		SeniorTickets:  1,
	})

	assert.Equal(t, 400.0, bd.UnitPrices.General)
	assert.Equal(t, 250.0, bd.UnitPrices.Child)
	assert.Equal(t, 300.0, bd.UnitPrices.Senior)
	assert.Equal(t, 1350.0, bd.Subtotal)
	assert.Equal(t, 0.0, bd.DiscountTotal)
	assert.Equal(t, 1350.0, bd.Total)
}

func TestQuoteGroupDiscountTiers(t *testing.T) {
	e := NewEngine(DefaultSettings())

	cases := []struct {
		tickets  int
		discount float64
		total    float64
	}{
		{14, 0, 5600},      // below the first tier
		{15, 300, 5700},    // 5% tier
		{29, 580, 11020},   // still 5%
		{30, 1200, 10800},  // 10% tier, does not stack with 5%
	}
	for _, tc := range cases {
		bd := e.Quote(QuoteRequest{Date: visit, GeneralTickets: tc.tickets})
		assert.Equal(t, tc.discount, bd.GroupDiscount, "tickets=%d", tc.tickets)
		assert.Equal(t, tc.total, bd.Total, "tickets=%d", tc.tickets)
	}
}

func TestQuotePercentagePromoCapped(t *testing.T) {
	e := NewEngine(DefaultSettings())
	promo := &model.PromoCode{
		Code:            "SAVE10",
		DiscountType:    model.DiscountPercentage,
		DiscountValue:   10,
		MaximumDiscount: 200,
	}

	// 3 general + 6 senior = 1200 + 1800 = 3000; 10% would be 300.
	bd := e.Quote(QuoteRequest{
		Date:           visit,
		GeneralTickets: 3,
		SeniorTickets:  6,
		Promo:          promo,
	})

	assert.Equal(t, 3000.0, bd.Subtotal)
	assert.Equal(t, 200.0, bd.PromoDiscount)
	assert.Equal(t, 2800.0, bd.Total)
}

func TestQuotePromoBelowMinimum(t *testing.T) {
	e := NewEngine(DefaultSettings())
	promo := &model.PromoCode{
		Code:          "BIGSPEND",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		MinimumAmount: 5000,
	}

	bd := e.Quote(QuoteRequest{Date: visit, GeneralTickets: 2, Promo: promo})

	assert.Equal(t, 0.0, bd.PromoDiscount)
	assert.Equal(t, 800.0, bd.Total)
}

func TestQuoteFixedPromoClampsAtZero(t *testing.T) {
	e := NewEngine(DefaultSettings())
	promo := &model.PromoCode{
		Code:          "HUGE",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 1000,
	}

	bd := e.Quote(QuoteRequest{Date: visit, GeneralTickets: 1, Promo: promo})

	assert.Equal(t, 400.0, bd.Subtotal)
	assert.Equal(t, 1000.0, bd.PromoDiscount)
	assert.Equal(t, 0.0, bd.Total)
}

func TestQuoteGroupAndPromoStack(t *testing.T) {
	e := NewEngine(DefaultSettings())
	promo := &model.PromoCode{
		Code:          "FLAT500",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 500,
	}

	bd := e.Quote(QuoteRequest{Date: visit, GeneralTickets: 15, Promo: promo})

	assert.Equal(t, 6000.0, bd.Subtotal)
	assert.Equal(t, 300.0, bd.GroupDiscount)
	assert.Equal(t, 500.0, bd.PromoDiscount)
	assert.Equal(t, 5200.0, bd.Total)
}

func TestQuoteSeasonalMultiplier(t *testing.T) {
	s := DefaultSettings()
	s.Seasons = []SeasonWindow{{
		Name:       "festival",
		Start:      time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
		Multiplier: 1.5,
		Active:     true,
	}}
	e := NewEngine(s)

	in := e.Quote(QuoteRequest{Date: visit, GeneralTickets: 1})
	assert.Equal(t, 600.0, in.UnitPrices.General)

	out := e.Quote(QuoteRequest{
		Date:           time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC),
		GeneralTickets: 1,
	})
	assert.Equal(t, 400.0, out.UnitPrices.General)
}

func TestQuoteInactiveSeasonIgnored(t *testing.T) {
	s := DefaultSettings()
	s.Seasons = []SeasonWindow{{
		Name:       "off",
		Start:      visit.AddDate(0, 0, -1),
		End:        visit.AddDate(0, 0, 1),
		Multiplier: 2,
		Active:     false,
	}}
	e := NewEngine(s)

	bd := e.Quote(QuoteRequest{Date: visit, GeneralTickets: 1})
	assert.Equal(t, 400.0, bd.UnitPrices.General)
}

func TestQuoteSpecialMultiplierBeatsSeason(t *testing.T) {
	s := DefaultSettings()
	s.Seasons = []SeasonWindow{{
		Name:       "festival",
		Start:      visit.AddDate(0, 0, -1),
		End:        visit.AddDate(0, 0, 1),
		Multiplier: 1.5,
		Active:     true,
	}}
	e := NewEngine(s)

	special := 2.0
	bd := e.Quote(QuoteRequest{Date: visit, GeneralTickets: 1, SpecialMultiplier: &special})
	assert.Equal(t, 800.0, bd.UnitPrices.General)
}

func TestQuoteOfferTicketsDiscounted(t *testing.T) {
	e := NewEngine(DefaultSettings())

	bd := e.Quote(QuoteRequest{Date: visit, GeneralTickets: 1, OfferTickets: 1})

	assert.Equal(t, 320.0, bd.OfferUnitPrice) // 400 less 20%
	assert.Equal(t, 320.0, bd.OfferSubtotal)
	assert.Equal(t, 720.0, bd.Total)
}

func TestQuoteAddons(t *testing.T) {
	e := NewEngine(DefaultSettings())

	bd := e.Quote(QuoteRequest{
		Date:           visit,
		GeneralTickets: 1,
		Addons:         map[uint64]int{7: 2, 9: 0},
		AddonPrices:    map[uint64]float64{7: 150, 9: 99},
	})

	assert.Equal(t, 300.0, bd.AddonsSubtotal) // zero-quantity line ignored
	assert.Equal(t, 700.0, bd.Total)
}

func TestReloadSwapsSettings(t *testing.T) {
	e := NewEngine(DefaultSettings())
	s := DefaultSettings()
	s.BasePrices.General = 500
	e.Reload(s)

	bd := e.Quote(QuoteRequest{Date: visit, GeneralTickets: 1})
	assert.Equal(t, 500.0, bd.Total)
}
