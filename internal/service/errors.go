package service

import "errors"

// ErrValidation wraps any rejection of caller input: bad dates, zero
// tickets, unknown add-ons.  Handlers map it to HTTP 400.  Use
// validationErrorf to attach the reason.
var ErrValidation = errors.New("validation failed")

// ErrPromoInvalid is returned when the supplied promo code does not
// exist, is inactive, is outside its validity window or has been used
// up.  The distinction from ErrValidation lets the UI highlight the
// promo field specifically.
var ErrPromoInvalid = errors.New("promo code is not valid")

// ErrOfferNotApplicable is returned when a birthday offer is requested
// but the customer's birth date does not qualify for it.
var ErrOfferNotApplicable = errors.New("birthday offer is not applicable")

// ErrBadSignature is returned when a payment callback fails signature
// verification.  Handlers map it to HTTP 401 and must not reveal why.
var ErrBadSignature = errors.New("invalid callback signature")

// ErrGateway wraps failures talking to the payment provider.  Handlers
// map it to HTTP 502.
var ErrGateway = errors.New("payment gateway error")
