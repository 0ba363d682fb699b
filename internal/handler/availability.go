package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/marineworld/booking/internal/service"
)

// AvailabilityHandler serves the public availability calendar.
type AvailabilityHandler struct {
	manager *service.BookingManager
}

func NewAvailabilityHandler(manager *service.BookingManager) *AvailabilityHandler {
	return &AvailabilityHandler{manager: manager}
}

// Calendar returns the availability records for a location between the
// `from` and `to` query dates (defaults: today through the configured
// window).
func (h *AvailabilityHandler) Calendar(c echo.Context) error {
	locationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location id"})
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	from, to := now, now.AddDate(0, 0, h.manager.Settings().AvailabilityWindowDays)
	if s := c.QueryParam("from"); s != "" {
		if from, err = parseDate(s); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if to, err = parseDate(s); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
		}
	}

	recs, err := h.manager.Calendar(c.Request().Context(), locationID, from, to)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"location_id": locationID, "days": recs})
}
