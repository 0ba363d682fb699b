package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSandboxInitiateAndVerify(t *testing.T) {
	s := NewSandbox("secret")

	intent, err := s.Initiate(context.Background(), Order{BookingRef: "MW-1", Amount: 500, Currency: "INR"})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.PaymentID)
	assert.Contains(t, intent.PaymentURL, intent.PaymentID)

	payload := []byte(`{"booking_ref":"MW-1","status":"success"}`)
	assert.True(t, s.VerifySignature(payload, sign("secret", payload)))
	assert.False(t, s.VerifySignature(payload, sign("wrong", payload)))
	assert.False(t, s.VerifySignature(payload, "not hex"))
}

func TestGatewayInitiate(t *testing.T) {
	var gotAuth, gotIdem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")

		var o Order
		require.NoError(t, json.NewDecoder(r.Body).Decode(&o))
		assert.Equal(t, "MW-20260830-ABCDEF", o.BookingRef)

		json.NewEncoder(w).Encode(Intent{PaymentID: "pay_42", PaymentURL: "https://pay/42"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "api-key", "secret")
	intent, err := g.Initiate(context.Background(), Order{
		BookingRef: "MW-20260830-ABCDEF", Amount: 1200, Currency: "INR", Email: "a@b.c",
	})
	require.NoError(t, err)

	assert.Equal(t, "pay_42", intent.PaymentID)
	assert.Equal(t, "Bearer api-key", gotAuth)
	assert.NotEmpty(t, gotIdem)
}

func TestGatewayErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient funds", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "api-key", "secret")
	err := g.Refund(context.Background(), "MW-20260830-ABCDEF", "pay_42", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
}

func TestGatewayRefundIdempotencyKey(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/refunds", r.URL.Path)
		keys = append(keys, r.Header.Get("Idempotency-Key"))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "api-key", "secret")
	require.NoError(t, g.Refund(context.Background(), "MW-20260830-ABCDEF", "pay_42", 100))
	require.NoError(t, g.Refund(context.Background(), "MW-20260830-ABCDEF", "pay_42", 100))
	require.NoError(t, g.Refund(context.Background(), "MW-20260830-FFFFFF", "pay_43", 100))

	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "same booking dedupes at the gateway")
	assert.NotEqual(t, keys[0], keys[2], "different bookings use distinct keys")
}
