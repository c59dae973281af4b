package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/moonjewelry/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	return NewClient(&config.PaymentConfig{
		BaseURL:     url,
		AccessToken: "sandbox-token",
		LocationID:  "LOC1",
		Currency:    "USD",
		APIVersion:  "2024-07-17",
	}, zap.NewNop())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(37000), MinorUnits(decimal.RequireFromString("370")))
	assert.Equal(t, int64(11225), MinorUnits(decimal.RequireFromString("112.25")))
	assert.Equal(t, int64(1), MinorUnits(decimal.RequireFromString("0.005")))
}

func TestCreatePayment(t *testing.T) {
	var got createPaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payments", r.URL.Path)
		assert.Equal(t, "Bearer sandbox-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-07-17", r.Header.Get("Square-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"payment":{"id":"pay_123","status":"COMPLETED","amount_money":{"amount":15750,"currency":"USD"}}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).CreatePayment(context.Background(), Request{
		SourceID:       "cnon:card-nonce-ok",
		IdempotencyKey: "key-1",
		Amount:         decimal.RequireFromString("157.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_123", res.PaymentID)

	assert.Equal(t, "cnon:card-nonce-ok", got.SourceID)
	assert.Equal(t, "key-1", got.IdempotencyKey)
	assert.Equal(t, int64(15750), got.AmountMoney.Amount)
	assert.Equal(t, "USD", got.AmountMoney.Currency)
	assert.Equal(t, "LOC1", got.LocationID)
}

func TestCreatePaymentDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_DECLINED","detail":"declined"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreatePayment(context.Background(), Request{
		SourceID:       "cnon:card-nonce-declined",
		IdempotencyKey: "key-2",
		Amount:         decimal.RequireFromString("10"),
	})
	require.ErrorIs(t, err, ErrDeclined)
	assert.Contains(t, err.Error(), "CARD_DECLINED")
}

func TestCreatePaymentPendingIsDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"payment":{"id":"pay_9","status":"FAILED"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreatePayment(context.Background(), Request{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrDeclined)
}

func TestCreatePaymentTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway timeout</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreatePayment(context.Background(), Request{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrTransport)

	srv.Close()
	_, err = newTestClient(srv.URL).CreatePayment(context.Background(), Request{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrTransport)
}
