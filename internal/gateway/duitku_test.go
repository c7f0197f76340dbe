package gateway_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"
)

const (
	duitkuMerchantCode = "D0001"
	duitkuAPIKey       = "api-key-test"
)

func newDuitku(t *testing.T, baseURL string) *gateway.Duitku {
	t.Helper()
	return gateway.NewDuitku(utils.DuitkuConfig{
		BaseURL:      baseURL,
		MerchantCode: duitkuMerchantCode,
		APIKey:       duitkuAPIKey,
	}, 5*time.Second, zap.NewNop())
}

func duitkuCallbackSig(orderRef, amount string) string {
	sum := md5.Sum([]byte(duitkuMerchantCode + amount + orderRef + duitkuAPIKey))
	return hex.EncodeToString(sum[:])
}

func TestDuitku_CreatePayment_SignsRequest(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/merchant/v2/inquiry", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		fmt.Fprint(w, `{
			"statusCode": "00",
			"reference": "D0001-REF",
			"paymentUrl": "https://sandbox.duitku.com/pay/D0001-REF",
			"vaNumber": "7007001234"
		}`)
	}))
	defer server.Close()

	d := newDuitku(t, server.URL)
	result, err := d.CreatePayment(context.Background(), gateway.CreateRequest{
		OrderRef:  "TRV-1",
		Amount:    205000,
		ItemPrice: 200000,
		AdminFee:  5000,
		Channel:   "BC",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	// md5(merchant_code + order_ref + amount + api_key)
	sum := md5.Sum([]byte(duitkuMerchantCode + "TRV-1" + "205000" + duitkuAPIKey))
	assert.Equal(t, hex.EncodeToString(sum[:]), gotBody["signature"])

	assert.Equal(t, "D0001-REF", result.GatewayTxnID)
	require.NotNil(t, result.VANumber)
	assert.Equal(t, "7007001234", *result.VANumber)
}

func TestDuitku_CreatePayment_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"statusCode": "02", "statusMessage": "amount too low"}`)
	}))
	defer server.Close()

	d := newDuitku(t, server.URL)
	_, err := d.CreatePayment(context.Background(), gateway.CreateRequest{
		OrderRef:  "TRV-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, gateway.ErrUnavailable)
}

func TestDuitku_ParseWebhook_Success(t *testing.T) {
	d := newDuitku(t, "http://unused")

	form := url.Values{}
	form.Set("merchantCode", duitkuMerchantCode)
	form.Set("merchantOrderId", "TRV-1")
	form.Set("amount", "205000")
	form.Set("resultCode", "00")
	form.Set("reference", "D0001-REF")
	form.Set("signature", duitkuCallbackSig("TRV-1", "205000"))

	result, err := d.ParseWebhook([]byte(form.Encode()), nil)
	require.NoError(t, err)

	assert.Equal(t, "TRV-1", result.OrderRef)
	assert.Equal(t, "D0001-REF", result.GatewayTxnID)
	assert.Equal(t, entity.PaymentStatusPaid, result.Status)
	assert.Equal(t, int64(205000), result.AmountObserved)
	require.NotNil(t, result.PaidAt)
}

func TestDuitku_ParseWebhook_Failed(t *testing.T) {
	d := newDuitku(t, "http://unused")

	form := url.Values{}
	form.Set("merchantOrderId", "TRV-1")
	form.Set("amount", "205000")
	form.Set("resultCode", "01")
	form.Set("signature", duitkuCallbackSig("TRV-1", "205000"))

	result, err := d.ParseWebhook([]byte(form.Encode()), nil)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, result.Status)
	assert.Nil(t, result.PaidAt)
}

func TestDuitku_ParseWebhook_BadSignature(t *testing.T) {
	d := newDuitku(t, "http://unused")

	form := url.Values{}
	form.Set("merchantOrderId", "TRV-1")
	form.Set("amount", "205000")
	form.Set("resultCode", "00")
	form.Set("signature", "palsu")

	_, err := d.ParseWebhook([]byte(form.Encode()), nil)
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)
}

func TestDuitku_QueryStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/merchant/transactionStatus", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sum := md5.Sum([]byte(duitkuMerchantCode + body["merchantOrderId"] + duitkuAPIKey))
		assert.Equal(t, hex.EncodeToString(sum[:]), body["signature"])

		fmt.Fprint(w, `{"statusCode": "00", "amount": "205000"}`)
	}))
	defer server.Close()

	d := newDuitku(t, server.URL)
	result, err := d.QueryStatus(context.Background(), "TRV-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, result.Status)
	assert.Equal(t, int64(205000), result.AmountObserved)
}
