package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
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

// Duitku adapter.
// Signature create: md5(merchant_code + order_ref + amount + api_key).
// Callback dikirim form-encoded dengan signature md5(merchant_code + amount + order_ref + api_key).
type Duitku struct {
	cfg    utils.DuitkuConfig
	client *http.Client
	log    *zap.Logger
}

func NewDuitku(cfg utils.DuitkuConfig, timeout time.Duration, log *zap.Logger) *Duitku {
	return &Duitku{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log.With(zap.String("gateway", "duitku")),
	}
}

func (d *Duitku) Name() string { return "duitku" }

type duitkuItemDetail struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type duitkuInquiryRequest struct {
	MerchantCode    string             `json:"merchantCode"`
	PaymentAmount   int64              `json:"paymentAmount"`
	PaymentMethod   string             `json:"paymentMethod"`
	MerchantOrderID string             `json:"merchantOrderId"`
	ProductDetails  string             `json:"productDetails"`
	CustomerVaName  string             `json:"customerVaName"`
	Email           string             `json:"email"`
	PhoneNumber     string             `json:"phoneNumber"`
	ItemDetails     []duitkuItemDetail `json:"itemDetails"`
	ExpiryPeriod    int                `json:"expiryPeriod"`
	Signature       string             `json:"signature"`
}

type duitkuInquiryResponse struct {
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Reference     string `json:"reference"`
	PaymentURL    string `json:"paymentUrl"`
	VANumber      string `json:"vaNumber"`
	QRString      string `json:"qrString"`
}

func (d *Duitku) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	method := req.Channel
	if method == "" {
		method = "VC"
	}

	expiryMinutes := int(time.Until(req.ExpiresAt).Minutes())
	if expiryMinutes < 1 {
		expiryMinutes = 1
	}

	body := duitkuInquiryRequest{
		MerchantCode:    d.cfg.MerchantCode,
		PaymentAmount:   req.Amount,
		PaymentMethod:   method,
		MerchantOrderID: req.OrderRef,
		ProductDetails:  req.Description,
		CustomerVaName:  req.CustomerName,
		Email:           req.CustomerEmail,
		PhoneNumber:     req.CustomerPhone,
		ItemDetails: []duitkuItemDetail{
			{Name: req.Description, Price: req.ItemPrice, Quantity: 1},
			{Name: "Biaya admin", Price: req.AdminFee, Quantity: 1},
		},
		ExpiryPeriod: expiryMinutes,
		Signature:    d.createSignature(req.OrderRef, req.Amount),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal duitku inquiry request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.cfg.BaseURL+"/api/merchant/v2/inquiry", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build duitku inquiry request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		d.log.Error("Duitku inquiry request failed", zap.Error(err), zap.String("order_ref", req.OrderRef))
		return nil, fmt.Errorf("duitku inquiry %s: %w", req.OrderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read duitku inquiry response: %w", err)
	}

	if resp.StatusCode >= 500 {
		d.log.Error("Duitku returned server error",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("duitku inquiry %s: http %d: %w", req.OrderRef, resp.StatusCode, ErrUnavailable)
	}

	var inquiryResp duitkuInquiryResponse
	if err := json.Unmarshal(raw, &inquiryResp); err != nil {
		return nil, fmt.Errorf("decode duitku inquiry response: %w", err)
	}

	if inquiryResp.StatusCode != "00" {
		d.log.Warn("Duitku rejected inquiry",
			zap.String("status_code", inquiryResp.StatusCode),
			zap.String("status_message", inquiryResp.StatusMessage),
			zap.String("order_ref", req.OrderRef),
		)
		return nil, fmt.Errorf("duitku inquiry %s rejected: %s", req.OrderRef, inquiryResp.StatusMessage)
	}

	result := &CreateResult{
		GatewayTxnID: inquiryResp.Reference,
		ExpiresAt:    req.ExpiresAt,
		Raw:          raw,
	}
	if inquiryResp.PaymentURL != "" {
		result.PayURL = &inquiryResp.PaymentURL
	}
	if inquiryResp.VANumber != "" {
		result.VANumber = &inquiryResp.VANumber
	}
	if inquiryResp.QRString != "" {
		result.QRString = &inquiryResp.QRString
	}

	return result, nil
}

// ParseWebhook menerima callback form-encoded.
// resultCode: 00 sukses, 01 gagal.
func (d *Duitku) ParseWebhook(payload []byte, _ http.Header) (*WebhookResult, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("parse duitku callback: %w", err)
	}

	merchantOrderID := values.Get("merchantOrderId")
	amount := values.Get("amount")
	signature := values.Get("signature")

	expected := d.callbackSignature(merchantOrderID, amount)
	if signature == "" || !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, ErrInvalidSignature
	}

	var status entity.PaymentStatus
	switch values.Get("resultCode") {
	case "00":
		status = entity.PaymentStatusPaid
	case "01":
		status = entity.PaymentStatusFailed
	default:
		status = ""
	}

	amountObserved, _ := strconv.ParseInt(amount, 10, 64)

	result := &WebhookResult{
		OrderRef:       merchantOrderID,
		GatewayTxnID:   values.Get("reference"),
		Status:         status,
		AmountObserved: amountObserved,
		Raw:            payload,
	}

	if status == entity.PaymentStatusPaid {
		now := time.Now()
		result.PaidAt = &now
	}

	return result, nil
}

type duitkuStatusResponse struct {
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Amount        string `json:"amount"`
}

func (d *Duitku) QueryStatus(ctx context.Context, orderRef string) (*StatusResult, error) {
	body := map[string]string{
		"merchantCode":    d.cfg.MerchantCode,
		"merchantOrderId": orderRef,
		"signature":       d.statusSignature(orderRef),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal duitku status request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.cfg.BaseURL+"/api/merchant/transactionStatus", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build duitku status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		d.log.Error("Duitku status request failed", zap.Error(err), zap.String("order_ref", orderRef))
		return nil, fmt.Errorf("duitku status %s: %w", orderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read duitku status response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("duitku status %s: http %d: %w", orderRef, resp.StatusCode, ErrUnavailable)
	}

	var statusResp duitkuStatusResponse
	if err := json.Unmarshal(raw, &statusResp); err != nil {
		return nil, fmt.Errorf("decode duitku status response: %w", err)
	}

	var status entity.PaymentStatus
	switch statusResp.StatusCode {
	case "00":
		status = entity.PaymentStatusPaid
	case "01":
		status = entity.PaymentStatusPending
	case "02":
		status = entity.PaymentStatusFailed
	default:
		status = ""
	}

	amountObserved, _ := strconv.ParseFloat(statusResp.Amount, 64)

	result := &StatusResult{
		Status:         status,
		AmountObserved: int64(amountObserved),
		Raw:            raw,
	}
	if status == entity.PaymentStatusPaid {
		now := time.Now()
		result.PaidAt = &now
	}

	return result, nil
}

func (d *Duitku) createSignature(orderRef string, amount int64) string {
	sum := md5.Sum([]byte(d.cfg.MerchantCode + orderRef + strconv.FormatInt(amount, 10) + d.cfg.APIKey))
	return hex.EncodeToString(sum[:])
}

func (d *Duitku) callbackSignature(orderRef, amount string) string {
	sum := md5.Sum([]byte(d.cfg.MerchantCode + amount + orderRef + d.cfg.APIKey))
	return hex.EncodeToString(sum[:])
}

func (d *Duitku) statusSignature(orderRef string) string {
	sum := md5.Sum([]byte(d.cfg.MerchantCode + orderRef + d.cfg.APIKey))
	return hex.EncodeToString(sum[:])
}
