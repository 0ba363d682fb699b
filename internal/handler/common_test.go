package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/marineworld/booking/internal/repository"
	"github.com/marineworld/booking/internal/service"
)

func callWriteErr(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	assert.NoError(t, writeErr(c, err))
	return rec
}

func TestWriteErrMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", service.ErrValidation, http.StatusBadRequest},
		{"promo invalid", service.ErrPromoInvalid, http.StatusUnprocessableEntity},
		{"offer not applicable", service.ErrOfferNotApplicable, http.StatusUnprocessableEntity},
		{"bad signature", service.ErrBadSignature, http.StatusUnauthorized},
		{"gateway", service.ErrGateway, http.StatusBadGateway},
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden},
		{"conflict", repository.ErrConflict, http.StatusConflict},
		{"sold out", repository.ErrSoldOut, http.StatusConflict},
		{"blackout", repository.ErrBlackout, http.StatusConflict},
		{"capacity too low", repository.ErrCapacityTooLow, http.StatusConflict},
		{"promo exhausted", repository.ErrPromoExhausted, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := callWriteErr(t, tc.err)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestWriteErrAvailabilityDetail(t *testing.T) {
	rec := callWriteErr(t, &repository.AvailabilityError{Requested: 5, Remaining: 2})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"remaining":2`)
	assert.Contains(t, rec.Body.String(), `"requested":5`)
}

func TestWriteErrWrappedSentinel(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), repository.ErrSoldOut)
	rec := callWriteErr(t, wrapped)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
