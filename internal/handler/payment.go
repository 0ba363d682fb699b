package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marineworld/booking/internal/service"
)

// signatureHeader carries the gateway's HMAC over the callback body.
const signatureHeader = "X-Payment-Signature"

// PaymentHandler receives gateway webhooks.
type PaymentHandler struct {
	manager *service.BookingManager
}

func NewPaymentHandler(manager *service.BookingManager) *PaymentHandler {
	return &PaymentHandler{manager: manager}
}

// Callback applies a payment result.  The body is read raw because the
// signature covers the exact bytes the gateway sent.
func (h *PaymentHandler) Callback(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<16))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	b, err := h.manager.HandlePaymentCallback(c.Request().Context(),
		body, c.Request().Header.Get(signatureHeader))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_ref":    b.Ref,
		"booking_status": b.BookingStatus,
		"payment_status": b.PaymentStatus,
	})
}
