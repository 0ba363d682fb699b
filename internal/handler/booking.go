package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/marineworld/booking/internal/repository"
	"github.com/marineworld/booking/internal/service"
)

// BookingHandler serves the public booking endpoints: quoting, booking
// creation, lookup and cancellation, plus the catalog listings.
type BookingHandler struct {
	manager   *service.BookingManager
	locations *repository.LocationRepo
	addons    *repository.AddonRepo
	offers    *repository.OfferRepo
}

func NewBookingHandler(manager *service.BookingManager, locations *repository.LocationRepo,
	addons *repository.AddonRepo, offers *repository.OfferRepo) *BookingHandler {
	return &BookingHandler{manager: manager, locations: locations, addons: addons, offers: offers}
}

type cartRequest struct {
	LocationID      uint64         `json:"location_id" validate:"required"`
	VisitDate       string         `json:"visit_date" validate:"required"`
	GeneralTickets  int            `json:"general_tickets" validate:"min=0"`
	ChildTickets    int            `json:"child_tickets" validate:"min=0"`
	SeniorTickets   int            `json:"senior_tickets" validate:"min=0"`
	OfferTickets    int            `json:"offer_tickets" validate:"min=0"`
	Addons          map[uint64]int `json:"addons"`
	PromoCode       string         `json:"promo_code"`
	BirthdayOfferID uint64         `json:"birthday_offer_id"`
	BirthDate       string         `json:"birth_date"`
}

func (r *cartRequest) toQuoteInput() (service.QuoteInput, error) {
	visit, err := parseDate(r.VisitDate)
	if err != nil {
		return service.QuoteInput{}, echo.NewHTTPError(http.StatusBadRequest, "visit_date must be YYYY-MM-DD")
	}
	var birth time.Time
	if r.BirthDate != "" {
		if birth, err = parseDate(r.BirthDate); err != nil {
			return service.QuoteInput{}, echo.NewHTTPError(http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
		}
	}
	return service.QuoteInput{
		LocationID:      r.LocationID,
		VisitDate:       visit,
		GeneralTickets:  r.GeneralTickets,
		ChildTickets:    r.ChildTickets,
		SeniorTickets:   r.SeniorTickets,
		OfferTickets:    r.OfferTickets,
		Addons:          r.Addons,
		PromoCode:       r.PromoCode,
		BirthdayOfferID: r.BirthdayOfferID,
		BirthDate:       birth,
	}, nil
}

// Quote prices a cart without reserving anything.
func (h *BookingHandler) Quote(c echo.Context) error {
	var req cartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	in, err := req.toQuoteInput()
	if err != nil {
		return err
	}
	bd, err := h.manager.Quote(c.Request().Context(), in)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, bd)
}

type createRequest struct {
	cartRequest
	CustomerName  string `json:"customer_name" validate:"required,max=120"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerPhone string `json:"customer_phone" validate:"required,e164"`
}

// Create reserves capacity, persists the booking and returns the
// payment handle the customer completes.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	in, err := req.toQuoteInput()
	if err != nil {
		return err
	}
	res, err := h.manager.CreateBooking(c.Request().Context(), service.CreateInput{
		QuoteInput:    in,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Get looks a booking up by reference.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.manager.Lookup(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel cancels a booking; a paid booking is refunded in full.
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.manager.Cancel(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Locations lists venues open for booking.
func (h *BookingHandler) Locations(c echo.Context) error {
	locs, err := h.locations.ListActive(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locations": locs})
}

// Addons lists the purchasable add-on catalog.
func (h *BookingHandler) Addons(c echo.Context) error {
	addons, err := h.addons.ListActive(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"addons": addons})
}

// Offers lists active birthday offers.
func (h *BookingHandler) Offers(c echo.Context) error {
	offers, err := h.offers.ListActive(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": offers})
}

// ValidatePromo checks a promo code against a visit date so the UI can
// show the discount before checkout.
func (h *BookingHandler) ValidatePromo(c echo.Context) error {
	code := c.QueryParam("code")
	dateStr := c.QueryParam("date")
	if code == "" || dateStr == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and date are required"})
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	promo, err := h.manager.ValidatePromo(c.Request().Context(), code, date)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"code":             promo.Code,
		"discount_type":    promo.DiscountType,
		"discount_value":   promo.DiscountValue,
		"minimum_amount":   promo.MinimumAmount,
		"maximum_discount": promo.MaximumDiscount,
	})
}
