package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCreateRequest() createRequest {
	return createRequest{
		cartRequest: cartRequest{
			LocationID:     1,
			VisitDate:      "2026-09-15",
			GeneralTickets: 2,
		},
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "+919876543210",
	}
}

func TestCreateRequestValidation(t *testing.T) {
	v := NewValidator()

	req := validCreateRequest()
	assert.NoError(t, v.Validate(&req))

	req = validCreateRequest()
	req.CustomerPhone = "abcdefgh"
	assert.Error(t, v.Validate(&req), "letters are not a phone number")

	req = validCreateRequest()
	req.CustomerPhone = "98765-43210"
	assert.Error(t, v.Validate(&req), "phone must be E.164")

	req = validCreateRequest()
	req.CustomerEmail = "not-an-email"
	assert.Error(t, v.Validate(&req))
}
