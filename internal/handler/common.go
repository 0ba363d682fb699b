// Package handler exposes the HTTP API: public booking endpoints, the
// payment callback and the admin dashboard.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/marineworld/booking/internal/repository"
	"github.com/marineworld/booking/internal/service"
)

// Validator adapts go-playground/validator to echo's Binder contract.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

func (cv *Validator) Validate(i interface{}) error {
	if err := cv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// writeErr maps domain errors to HTTP responses.  Unknown errors are
// logged by echo's recover middleware and surface as a bare 500.
func writeErr(c echo.Context, err error) error {
	var availErr *repository.AvailabilityError
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrPromoInvalid),
		errors.Is(err, service.ErrOfferNotApplicable):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrBadSignature):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, service.ErrGateway):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &availErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     availErr.Error(),
			"requested": availErr.Requested,
			"remaining": availErr.Remaining,
		})
	case errors.Is(err, repository.ErrSoldOut),
		errors.Is(err, repository.ErrBlackout),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrCapacityTooLow),
		errors.Is(err, repository.ErrPromoExhausted),
		errors.Is(err, repository.ErrOfferExhausted):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// parseDate parses a YYYY-MM-DD query or body value.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
