package gateway

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
	"net/url"
	"strconv"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

// Tripay adapter closed payment.
// Signature create: hmac-sha256(merchant_code + merchant_ref + amount, private_key).
// Callback diautentikasi lewat hmac-sha256 raw body di header X-Callback-Signature.
type Tripay struct {
	cfg    utils.TripayConfig
	client *http.Client
	log    *zap.Logger
}

func NewTripay(cfg utils.TripayConfig, timeout time.Duration, log *zap.Logger) *Tripay {
	return &Tripay{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log.With(zap.String("gateway", "tripay")),
	}
}

func (t *Tripay) Name() string { return "tripay" }

type tripayOrderItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type tripayCreateRequest struct {
	Method        string            `json:"method"`
	MerchantRef   string            `json:"merchant_ref"`
	Amount        int64             `json:"amount"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CustomerPhone string            `json:"customer_phone"`
	OrderItems    []tripayOrderItem `json:"order_items"`
	ExpiredTime   int64             `json:"expired_time"`
	Signature     string            `json:"signature"`
}

type tripayCreateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Reference   string `json:"reference"`
		CheckoutURL string `json:"checkout_url"`
		PayCode     string `json:"pay_code"`
		QRString    string `json:"qr_string"`
		ExpiredTime int64  `json:"expired_time"`
	} `json:"data"`
}

func (t *Tripay) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	method := req.Channel
	if method == "" {
		method = "BRIVA"
	}

	body := tripayCreateRequest{
		Method:        method,
		MerchantRef:   req.OrderRef,
		Amount:        req.Amount,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		OrderItems: []tripayOrderItem{
			{Name: req.Description, Price: req.ItemPrice, Quantity: 1},
			{Name: "Biaya admin", Price: req.AdminFee, Quantity: 1},
		},
		ExpiredTime: req.ExpiresAt.Unix(),
		Signature:   t.createSignature(req.OrderRef, req.Amount),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal tripay create request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.cfg.BaseURL+"/transaction/create", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build tripay create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.log.Error("Tripay create request failed", zap.Error(err), zap.String("order_ref", req.OrderRef))
		return nil, fmt.Errorf("tripay create %s: %w", req.OrderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tripay create response: %w", err)
	}

	if resp.StatusCode >= 500 {
		t.log.Error("Tripay returned server error",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("tripay create %s: http %d: %w", req.OrderRef, resp.StatusCode, ErrUnavailable)
	}

	var createResp tripayCreateResponse
	if err := json.Unmarshal(raw, &createResp); err != nil {
		return nil, fmt.Errorf("decode tripay create response: %w", err)
	}

	if !createResp.Success {
		t.log.Warn("Tripay rejected transaction",
			zap.String("message", createResp.Message),
			zap.String("order_ref", req.OrderRef),
		)
		return nil, fmt.Errorf("tripay create %s rejected: %s", req.OrderRef, createResp.Message)
	}

	result := &CreateResult{
		GatewayTxnID: createResp.Data.Reference,
		ExpiresAt:    req.ExpiresAt,
		Raw:          raw,
	}
	if createResp.Data.CheckoutURL != "" {
		result.PayURL = &createResp.Data.CheckoutURL
	}
	if createResp.Data.PayCode != "" {
		result.VANumber = &createResp.Data.PayCode
	}
	if createResp.Data.QRString != "" {
		result.QRString = &createResp.Data.QRString
	}
	if createResp.Data.ExpiredTime > 0 {
		result.ExpiresAt = time.Unix(createResp.Data.ExpiredTime, 0)
	}

	return result, nil
}

type tripayCallback struct {
	Reference   string `json:"reference"`
	MerchantRef string `json:"merchant_ref"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
	PaidAt      int64  `json:"paid_at"`
}

func (t *Tripay) ParseWebhook(payload []byte, headers http.Header) (*WebhookResult, error) {
	signature := headers.Get("X-Callback-Signature")
	if signature == "" || !hmac.Equal([]byte(signature), []byte(t.callbackSignature(payload))) {
		return nil, ErrInvalidSignature
	}

	var callback tripayCallback
	if err := json.Unmarshal(payload, &callback); err != nil {
		return nil, fmt.Errorf("decode tripay callback: %w", err)
	}

	result := &WebhookResult{
		OrderRef:       callback.MerchantRef,
		GatewayTxnID:   callback.Reference,
		Status:         mapTripayStatus(callback.Status),
		AmountObserved: callback.TotalAmount,
		Raw:            payload,
	}

	if result.Status == entity.PaymentStatusPaid {
		paidAt := time.Now()
		if callback.PaidAt > 0 {
			paidAt = time.Unix(callback.PaidAt, 0)
		}
		result.PaidAt = &paidAt
	}

	return result, nil
}

type tripayDetailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
		PaidAt int64  `json:"paid_at"`
	} `json:"data"`
}

// QueryStatus pakai merchant ref; Tripay mengizinkan lookup via
// /transaction/detail dengan reference merchant.
func (t *Tripay) QueryStatus(ctx context.Context, orderRef string) (*StatusResult, error) {
	endpoint := t.cfg.BaseURL + "/merchant/transactions?" + url.Values{
		"reference": {orderRef},
	}.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build tripay detail request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.log.Error("Tripay detail request failed", zap.Error(err), zap.String("order_ref", orderRef))
		return nil, fmt.Errorf("tripay detail %s: %w", orderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tripay detail response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("tripay detail %s: http %d: %w", orderRef, resp.StatusCode, ErrUnavailable)
	}

	var detailResp tripayDetailResponse
	if err := json.Unmarshal(raw, &detailResp); err != nil {
		return nil, fmt.Errorf("decode tripay detail response: %w", err)
	}

	if !detailResp.Success {
		return nil, fmt.Errorf("tripay detail %s: %s", orderRef, detailResp.Message)
	}

	result := &StatusResult{
		Status:         mapTripayStatus(detailResp.Data.Status),
		AmountObserved: detailResp.Data.Amount,
		Raw:            raw,
	}
	if result.Status == entity.PaymentStatusPaid && detailResp.Data.PaidAt > 0 {
		paidAt := time.Unix(detailResp.Data.PaidAt, 0)
		result.PaidAt = &paidAt
	}

	return result, nil
}

func (t *Tripay) createSignature(merchantRef string, amount int64) string {
	mac := hmac.New(sha256.New, []byte(t.cfg.PrivateKey))
	mac.Write([]byte(t.cfg.MerchantCode + merchantRef + strconv.FormatInt(amount, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (t *Tripay) callbackSignature(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(t.cfg.PrivateKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func mapTripayStatus(status string) entity.PaymentStatus {
	switch status {
	case "PAID":
		return entity.PaymentStatusPaid
	case "UNPAID":
		return entity.PaymentStatusPending
	case "EXPIRED":
		return entity.PaymentStatusExpired
	case "FAILED", "REFUND":
		return entity.PaymentStatusFailed
	default:
		return ""
	}
}
