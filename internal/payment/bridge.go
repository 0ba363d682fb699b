// Package payment abstracts the external payment gateway.  The service
// layer only sees the Bridge interface; Gateway talks to the real
// provider over HTTP and Sandbox fakes it for local development.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Order is a payment the gateway should collect.
type Order struct {
	BookingRef string  `json:"booking_ref"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Email      string  `json:"email"`
}

// Intent is the gateway's handle for an initiated payment.  The client
// completes the payment against PaymentURL; the gateway then calls our
// callback endpoint.
type Intent struct {
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
}

// Bridge is the gateway surface the booking manager depends on.
type Bridge interface {
	// Initiate registers an order with the gateway and returns the
	// payment handle the customer completes.
	Initiate(ctx context.Context, o Order) (*Intent, error)
	// Refund returns money for a captured payment.  bookingRef keys
	// the idempotency guarantee: repeated or concurrent refunds for
	// the same booking collapse into one gateway operation.
	Refund(ctx context.Context, bookingRef, paymentID string, amount float64) error
	// VerifySignature checks a callback's authenticity.
	VerifySignature(payload []byte, signature string) bool
}

// Gateway is the HTTP implementation of Bridge.  Every request carries
// an idempotency key derived from the booking reference so gateway-side
// retries and concurrent duplicates cannot move money twice.
type Gateway struct {
	baseURL string
	apiKey  string
	secret  []byte
	client  *http.Client
}

// NewGateway builds a Gateway for the given provider endpoint.  The
// secret signs and verifies callback payloads.
func NewGateway(baseURL, apiKey, secret string) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  []byte(secret),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *Gateway) Initiate(ctx context.Context, o Order) (*Intent, error) {
	var out Intent
	if err := g.post(ctx, "/v1/orders", idempotencyKey("order", o.BookingRef), o, &out); err != nil {
		return nil, fmt.Errorf("initiate payment: %w", err)
	}
	return &out, nil
}

func (g *Gateway) Refund(ctx context.Context, bookingRef, paymentID string, amount float64) error {
	body := map[string]interface{}{"payment_id": paymentID, "amount": amount}
	if err := g.post(ctx, "/v1/refunds", idempotencyKey("refund", bookingRef), body, nil); err != nil {
		return fmt.Errorf("refund payment %s: %w", paymentID, err)
	}
	return nil
}

// idempotencyKey derives a stable key from the operation and booking
// reference, so replays of the same operation dedupe at the gateway.
func idempotencyKey(op, ref string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(op+":"+ref)).String()
}

// VerifySignature compares the callback body's HMAC-SHA256 against the
// provided hex signature in constant time.
func (g *Gateway) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *Gateway) post(ctx context.Context, path, idemKey string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", idemKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Sandbox is an in-process Bridge for development and tests.  Initiate
// hands back a fake payment URL and every refund succeeds.
type Sandbox struct {
	secret []byte
}

func NewSandbox(secret string) *Sandbox {
	return &Sandbox{secret: []byte(secret)}
}

func (s *Sandbox) Initiate(ctx context.Context, o Order) (*Intent, error) {
	id := "sandbox_" + uuid.NewString()
	return &Intent{
		PaymentID:  id,
		PaymentURL: "https://sandbox.pay.invalid/checkout/" + id,
	}, nil
}

func (s *Sandbox) Refund(ctx context.Context, bookingRef, paymentID string, amount float64) error {
	return nil
}

func (s *Sandbox) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(signature))
}
