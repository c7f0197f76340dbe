package gateway_test

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"
)

const midtransServerKey = "SB-Mid-server-test"

func newMidtrans(t *testing.T, baseURL string) *gateway.Midtrans {
	t.Helper()
	return gateway.NewMidtrans(utils.MidtransConfig{
		BaseURL:   baseURL,
		ServerKey: midtransServerKey,
	}, 5*time.Second, zap.NewNop())
}

func midtransSig(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + midtransServerKey))
	return hex.EncodeToString(sum[:])
}

func TestMidtrans_CreatePayment(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/charge", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{
			"status_code": "201",
			"transaction_id": "txn-abc",
			"transaction_status": "pending",
			"va_numbers": [{"bank": "bca", "va_number": "1234567890"}]
		}`)
	}))
	defer server.Close()

	m := newMidtrans(t, server.URL)
	result, err := m.CreatePayment(context.Background(), gateway.CreateRequest{
		OrderRef:  "TRV-20260901-1",
		Amount:    205000,
		ItemPrice: 200000,
		AdminFee:  5000,
		Channel:   "bca",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "txn-abc", result.GatewayTxnID)
	require.NotNil(t, result.VANumber)
	assert.Equal(t, "1234567890", *result.VANumber)

	// Itemisasi harus dijumlah sama dengan gross amount.
	txn := gotBody["transaction_details"].(map[string]any)
	assert.Equal(t, float64(205000), txn["gross_amount"])
	items := gotBody["item_details"].([]any)
	require.Len(t, items, 2)
	var sum float64
	for _, item := range items {
		sum += item.(map[string]any)["price"].(float64)
	}
	assert.Equal(t, float64(205000), sum)
}

func TestMidtrans_CreatePayment_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	m := newMidtrans(t, server.URL)
	_, err := m.CreatePayment(context.Background(), gateway.CreateRequest{
		OrderRef:  "TRV-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestMidtrans_CreatePayment_Unreachable(t *testing.T) {
	m := newMidtrans(t, "http://127.0.0.1:1")
	_, err := m.CreatePayment(context.Background(), gateway.CreateRequest{
		OrderRef:  "TRV-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestMidtrans_ParseWebhook_Settlement(t *testing.T) {
	m := newMidtrans(t, "http://unused")

	payload, _ := json.Marshal(map[string]string{
		"order_id":           "TRV-20260901-1",
		"status_code":        "200",
		"gross_amount":       "205000.00",
		"signature_key":      midtransSig("TRV-20260901-1", "200", "205000.00"),
		"transaction_id":     "txn-abc",
		"transaction_status": "settlement",
		"settlement_time":    "2026-09-01 10:30:00",
	})

	result, err := m.ParseWebhook(payload, nil)
	require.NoError(t, err)

	assert.Equal(t, "TRV-20260901-1", result.OrderRef)
	assert.Equal(t, entity.PaymentStatusPaid, result.Status)
	assert.Equal(t, int64(205000), result.AmountObserved)
	require.NotNil(t, result.PaidAt)
}

func TestMidtrans_ParseWebhook_BadSignature(t *testing.T) {
	m := newMidtrans(t, "http://unused")

	payload, _ := json.Marshal(map[string]string{
		"order_id":           "TRV-20260901-1",
		"status_code":        "200",
		"gross_amount":       "205000.00",
		"signature_key":      "palsu",
		"transaction_status": "settlement",
	})

	_, err := m.ParseWebhook(payload, nil)
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)
}

func TestMidtrans_ParseWebhook_StatusMapping(t *testing.T) {
	m := newMidtrans(t, "http://unused")

	cases := []struct {
		txnStatus   string
		fraudStatus string
		want        entity.PaymentStatus
	}{
		{"settlement", "", entity.PaymentStatusPaid},
		{"capture", "accept", entity.PaymentStatusPaid},
		{"capture", "challenge", entity.PaymentStatusPending},
		{"pending", "", entity.PaymentStatusPending},
		{"expire", "", entity.PaymentStatusExpired},
		{"deny", "", entity.PaymentStatusFailed},
		{"cancel", "", entity.PaymentStatusFailed},
		{"refund", "", entity.PaymentStatus("")},
	}

	for _, tc := range cases {
		payload, _ := json.Marshal(map[string]string{
			"order_id":           "TRV-1",
			"status_code":        "200",
			"gross_amount":       "1000.00",
			"signature_key":      midtransSig("TRV-1", "200", "1000.00"),
			"transaction_status": tc.txnStatus,
			"fraud_status":       tc.fraudStatus,
		})

		result, err := m.ParseWebhook(payload, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, result.Status, "transaction_status=%s fraud=%s", tc.txnStatus, tc.fraudStatus)
	}
}

func TestMidtrans_QueryStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/TRV-1/status", r.URL.Path)
		fmt.Fprint(w, `{
			"status_code": "200",
			"transaction_status": "settlement",
			"gross_amount": "205000.00",
			"settlement_time": "2026-09-01 10:30:00"
		}`)
	}))
	defer server.Close()

	m := newMidtrans(t, server.URL)
	result, err := m.QueryStatus(context.Background(), "TRV-1")
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusPaid, result.Status)
	assert.Equal(t, int64(205000), result.AmountObserved)
}
