package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/marineworld/booking/internal/model"
	"github.com/marineworld/booking/internal/pricing"
	"github.com/marineworld/booking/internal/repository"
	"github.com/marineworld/booking/internal/service"
)

// AdminHandler serves the dashboard: reference-data management,
// availability controls, booking operations and business settings.
type AdminHandler struct {
	manager   *service.BookingManager
	locations *repository.LocationRepo
	addons    *repository.AddonRepo
	promos    *repository.PromoRepo
	offers    *repository.OfferRepo
	activity  *repository.ActivityRepo
}

func NewAdminHandler(manager *service.BookingManager, locations *repository.LocationRepo,
	addons *repository.AddonRepo, promos *repository.PromoRepo,
	offers *repository.OfferRepo, activity *repository.ActivityRepo) *AdminHandler {
	return &AdminHandler{
		manager: manager, locations: locations, addons: addons,
		promos: promos, offers: offers, activity: activity,
	}
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// --- locations ---

type locationRequest struct {
	Name            string `json:"name" validate:"required,max=120"`
	City            string `json:"city" validate:"required,max=80"`
	Description     string `json:"description"`
	DefaultCapacity int    `json:"default_capacity" validate:"min=0"`
	Status          string `json:"status" validate:"required,oneof=active inactive"`
}

func (h *AdminHandler) ListLocations(c echo.Context) error {
	locs, err := h.locations.List(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locations": locs})
}

func (h *AdminHandler) CreateLocation(c echo.Context) error {
	var req locationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	loc := &model.Location{
		Name: req.Name, City: req.City, Description: req.Description,
		DefaultCapacity: req.DefaultCapacity, Status: req.Status,
	}
	if err := h.locations.Create(c.Request().Context(), loc); err != nil {
		return writeErr(c, err)
	}
	if err := h.manager.SeedLocation(c.Request().Context(), loc.ID, loc.DefaultCapacity); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, loc)
}

func (h *AdminHandler) UpdateLocation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location id"})
	}
	var req locationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	loc := &model.Location{
		ID: id, Name: req.Name, City: req.City, Description: req.Description,
		DefaultCapacity: req.DefaultCapacity, Status: req.Status,
	}
	if err := h.locations.Update(c.Request().Context(), loc); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, loc)
}

// DeleteLocation removes a location that has no active bookings.
func (h *AdminHandler) DeleteLocation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location id"})
	}
	if err := h.locations.Delete(c.Request().Context(), id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- add-ons ---

type addonRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" validate:"min=0"`
	DisplayOrder int     `json:"display_order"`
	Status       string  `json:"status" validate:"required,oneof=active inactive"`
}

func (h *AdminHandler) ListAddons(c echo.Context) error {
	addons, err := h.addons.List(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"addons": addons})
}

func (h *AdminHandler) CreateAddon(c echo.Context) error {
	var req addonRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a := &model.Addon{
		Name: req.Name, Description: req.Description, Price: req.Price,
		DisplayOrder: req.DisplayOrder, Status: req.Status,
	}
	if err := h.addons.Create(c.Request().Context(), a); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AdminHandler) UpdateAddon(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid addon id"})
	}
	var req addonRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a := &model.Addon{
		ID: id, Name: req.Name, Description: req.Description, Price: req.Price,
		DisplayOrder: req.DisplayOrder, Status: req.Status,
	}
	if err := h.addons.Update(c.Request().Context(), a); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// --- promo codes ---

type promoRequest struct {
	Code            string  `json:"code" validate:"required,max=40"`
	DiscountType    string  `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue   float64 `json:"discount_value" validate:"gt=0"`
	MinimumAmount   float64 `json:"minimum_amount" validate:"min=0"`
	MaximumDiscount float64 `json:"maximum_discount" validate:"min=0"`
	UsageLimit      int     `json:"usage_limit" validate:"min=0"`
	ValidFrom       string  `json:"valid_from" validate:"required"`
	ValidTo         string  `json:"valid_to" validate:"required"`
}

func (h *AdminHandler) ListPromos(c echo.Context) error {
	promos, err := h.promos.List(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"promo_codes": promos})
}

func (h *AdminHandler) CreatePromo(c echo.Context) error {
	var req promoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	from, err := parseDate(req.ValidFrom)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_from must be YYYY-MM-DD"})
	}
	to, err := parseDate(req.ValidTo)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_to must be YYYY-MM-DD"})
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_to before valid_from"})
	}
	if req.DiscountType == model.DiscountPercentage && req.DiscountValue > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "percentage discount cannot exceed 100"})
	}
	p := &model.PromoCode{
		Code: req.Code, DiscountType: req.DiscountType, DiscountValue: req.DiscountValue,
		MinimumAmount: req.MinimumAmount, MaximumDiscount: req.MaximumDiscount,
		UsageLimit: req.UsageLimit, ValidFrom: from, ValidTo: to, Status: model.StatusActive,
	}
	if err := h.promos.Create(c.Request().Context(), p); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (h *AdminHandler) SetPromoStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid promo id"})
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.promos.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// --- birthday offers ---

type offerRequest struct {
	Name             string  `json:"name" validate:"required,max=120"`
	DiscountPercent  float64 `json:"discount_percent" validate:"gt=0,lte=100"`
	MinAge           int     `json:"min_age" validate:"min=0"`
	MaxAge           int     `json:"max_age" validate:"min=0"`
	DaysBefore       int     `json:"days_before" validate:"min=0"`
	DaysAfter        int     `json:"days_after" validate:"min=0"`
	PerCustomerLimit int     `json:"per_customer_limit" validate:"min=0"`
	TotalLimit       int     `json:"total_limit" validate:"min=0"`
	ValidFrom        string  `json:"valid_from" validate:"required"`
	ValidTo          string  `json:"valid_to" validate:"required"`
}

func (h *AdminHandler) ListOffers(c echo.Context) error {
	offers, err := h.offers.List(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": offers})
}

func (h *AdminHandler) CreateOffer(c echo.Context) error {
	var req offerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	from, err := parseDate(req.ValidFrom)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_from must be YYYY-MM-DD"})
	}
	to, err := parseDate(req.ValidTo)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_to must be YYYY-MM-DD"})
	}
	if req.MaxAge > 0 && req.MaxAge < req.MinAge {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_age below min_age"})
	}
	o := &model.BirthdayOffer{
		Name: req.Name, DiscountPercent: req.DiscountPercent,
		MinAge: req.MinAge, MaxAge: req.MaxAge,
		DaysBefore: req.DaysBefore, DaysAfter: req.DaysAfter,
		PerCustomerLimit: req.PerCustomerLimit, TotalLimit: req.TotalLimit,
		ValidFrom: from, ValidTo: to, Status: model.StatusActive,
	}
	if err := h.offers.Create(c.Request().Context(), o); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *AdminHandler) SetOfferStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.offers.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// --- availability controls ---

type capacityRequest struct {
	Date          string `json:"date" validate:"required"`
	TotalCapacity int    `json:"total_capacity" validate:"min=0"`
}

func (h *AdminHandler) SetCapacity(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location id"})
	}
	var req capacityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if err := h.manager.SetCapacity(c.Request().Context(), id, date, req.TotalCapacity); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"location_id": id, "date": req.Date, "total_capacity": req.TotalCapacity})
}

type blackoutRequest struct {
	Date     string `json:"date" validate:"required"`
	Blackout bool   `json:"blackout"`
}

func (h *AdminHandler) SetBlackout(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location id"})
	}
	var req blackoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if err := h.manager.SetBlackout(c.Request().Context(), id, date, req.Blackout); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"location_id": id, "date": req.Date, "blackout": req.Blackout})
}

type specialPricingRequest struct {
	Date       string   `json:"date" validate:"required"`
	Multiplier *float64 `json:"multiplier"` // null clears the override
}

func (h *AdminHandler) SetSpecialPricing(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location id"})
	}
	var req specialPricingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if err := h.manager.SetSpecialPricing(c.Request().Context(), id, date, req.Multiplier); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"location_id": id, "date": req.Date, "multiplier": req.Multiplier})
}

// SeedAvailability extends the rolling calendar for all active locations.
func (h *AdminHandler) SeedAvailability(c echo.Context) error {
	if err := h.manager.SeedAvailability(c.Request().Context()); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "seeded"})
}

// --- bookings ---

// ListBookings returns bookings for a location and date, or the most
// recent ones when no filters are given.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	ctx := c.Request().Context()
	if locStr := c.QueryParam("location_id"); locStr != "" {
		locID, err := strconv.ParseUint(locStr, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location_id"})
		}
		dateStr := c.QueryParam("date")
		if dateStr == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required with location_id"})
		}
		date, err := parseDate(dateStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		bookings, err := h.manager.ListForDate(ctx, locID, date)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	bookings, err := h.manager.ListRecent(ctx, limit)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// Activity returns a booking's audit trail.
func (h *AdminHandler) Activity(c echo.Context) error {
	entries, err := h.activity.ListForBooking(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_ref": c.Param("ref"), "activity": entries})
}

// Claim marks tickets as collected at the gate.
func (h *AdminHandler) Claim(c echo.Context) error {
	b, err := h.manager.Claim(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type refundRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// Refund issues a full or partial refund for a paid booking.
func (h *AdminHandler) Refund(c echo.Context) error {
	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.manager.Refund(c.Request().Context(), c.Param("ref"), req.Amount)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type bulkRequest struct {
	Action string   `json:"action" validate:"required,oneof=cancel mark_claimed resend_confirmation"`
	Refs   []string `json:"refs" validate:"required,min=1,max=200"`
}

// Bulk applies one action to many bookings.
func (h *AdminHandler) Bulk(c echo.Context) error {
	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.manager.BulkAction(c.Request().Context(), req.Action, req.Refs)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type bulkIDsRequest struct {
	Action string   `json:"action" validate:"required,oneof=activate deactivate delete"`
	IDs    []uint64 `json:"ids" validate:"required,min=1,max=200"`
}

func (h *AdminHandler) bulkIDs(c echo.Context, apply func(context.Context, uint64, string) error) error {
	var req bulkIDsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res := &service.BulkResult{Errors: map[string]string{}}
	for _, id := range req.IDs {
		if err := apply(c.Request().Context(), id, req.Action); err != nil {
			res.Failed++
			res.Errors[strconv.FormatUint(id, 10)] = err.Error()
			continue
		}
		res.Succeeded++
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return c.JSON(http.StatusOK, res)
}

// BulkLocations activates, deactivates or deletes many locations.
// Deletion still refuses locations with active bookings, reported
// per item.
func (h *AdminHandler) BulkLocations(c echo.Context) error {
	return h.bulkIDs(c, func(ctx context.Context, id uint64, action string) error {
		switch action {
		case "activate":
			return h.locations.SetStatus(ctx, id, model.StatusActive)
		case "deactivate":
			return h.locations.SetStatus(ctx, id, model.StatusInactive)
		default:
			return h.locations.Delete(ctx, id)
		}
	})
}

// BulkAddons activates, deactivates or deletes many add-ons.
func (h *AdminHandler) BulkAddons(c echo.Context) error {
	return h.bulkIDs(c, func(ctx context.Context, id uint64, action string) error {
		switch action {
		case "activate":
			return h.addons.SetStatus(ctx, id, model.StatusActive)
		case "deactivate":
			return h.addons.SetStatus(ctx, id, model.StatusInactive)
		default:
			return h.addons.Delete(ctx, id)
		}
	})
}

// --- settings ---

func (h *AdminHandler) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.Settings())
}

func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	var s pricing.Settings
	if err := c.Bind(&s); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.manager.UpdateSettings(c.Request().Context(), s); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
