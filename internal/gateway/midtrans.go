package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

const midtransTimeLayout = "2006-01-02 15:04:05"

// Midtrans adapter untuk Core API (bank transfer / VA).
// Signature webhook: sha512(order_id + status_code + gross_amount + server_key).
type Midtrans struct {
	cfg    utils.MidtransConfig
	client *http.Client
	log    *zap.Logger
}

func NewMidtrans(cfg utils.MidtransConfig, timeout time.Duration, log *zap.Logger) *Midtrans {
	return &Midtrans{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log.With(zap.String("gateway", "midtrans")),
	}
}

func (m *Midtrans) Name() string { return "midtrans" }

type midtransChargeRequest struct {
	PaymentType        string                  `json:"payment_type"`
	TransactionDetails midtransTxnDetails      `json:"transaction_details"`
	ItemDetails        []midtransItemDetail    `json:"item_details"`
	CustomerDetails    midtransCustomerDetails `json:"customer_details"`
	BankTransfer       *midtransBankTransfer   `json:"bank_transfer,omitempty"`
	CustomExpiry       *midtransCustomExpiry   `json:"custom_expiry,omitempty"`
}

type midtransTxnDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type midtransItemDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type midtransCustomerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type midtransBankTransfer struct {
	Bank string `json:"bank"`
}

type midtransCustomExpiry struct {
	ExpiryDuration int    `json:"expiry_duration"`
	Unit           string `json:"unit"`
}

type midtransChargeResponse struct {
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	RedirectURL       string `json:"redirect_url"`
	VANumbers         []struct {
		Bank     string `json:"bank"`
		VANumber string `json:"va_number"`
	} `json:"va_numbers"`
	QRString string `json:"qr_string"`
}

func (m *Midtrans) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	bank := req.Channel
	if bank == "" {
		bank = "bca"
	}

	expiryMinutes := int(time.Until(req.ExpiresAt).Minutes())
	if expiryMinutes < 1 {
		expiryMinutes = 1
	}

	body := midtransChargeRequest{
		PaymentType: "bank_transfer",
		TransactionDetails: midtransTxnDetails{
			OrderID:     req.OrderRef,
			GrossAmount: req.Amount,
		},
		// Itemisasi harus dijumlah sama dengan gross_amount.
		ItemDetails: []midtransItemDetail{
			{ID: "TICKET", Name: req.Description, Price: req.ItemPrice, Quantity: 1},
			{ID: "ADMIN-FEE", Name: "Biaya admin", Price: req.AdminFee, Quantity: 1},
		},
		CustomerDetails: midtransCustomerDetails{
			FirstName: req.CustomerName,
			Email:     req.CustomerEmail,
			Phone:     req.CustomerPhone,
		},
		BankTransfer: &midtransBankTransfer{Bank: bank},
		CustomExpiry: &midtransCustomExpiry{ExpiryDuration: expiryMinutes, Unit: "minute"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal midtrans charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.BaseURL+"/v2/charge", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build midtrans charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", m.basicAuth())

	resp, err := m.client.Do(httpReq)
	if err != nil {
		m.log.Error("Midtrans charge request failed", zap.Error(err), zap.String("order_ref", req.OrderRef))
		return nil, fmt.Errorf("midtrans charge %s: %w", req.OrderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read midtrans charge response: %w", err)
	}

	if resp.StatusCode >= 500 {
		m.log.Error("Midtrans returned server error",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("midtrans charge %s: http %d: %w", req.OrderRef, resp.StatusCode, ErrUnavailable)
	}

	var chargeResp midtransChargeResponse
	if err := json.Unmarshal(raw, &chargeResp); err != nil {
		return nil, fmt.Errorf("decode midtrans charge response: %w", err)
	}

	// Core API pakai status_code 201 untuk charge pending yang sukses dibuat.
	if chargeResp.StatusCode != "201" && chargeResp.StatusCode != "200" {
		m.log.Warn("Midtrans rejected charge",
			zap.String("status_code", chargeResp.StatusCode),
			zap.String("status_message", chargeResp.StatusMessage),
			zap.String("order_ref", req.OrderRef),
		)
		return nil, fmt.Errorf("midtrans charge %s rejected: %s", req.OrderRef, chargeResp.StatusMessage)
	}

	result := &CreateResult{
		GatewayTxnID: chargeResp.TransactionID,
		ExpiresAt:    req.ExpiresAt,
		Raw:          raw,
	}
	if chargeResp.RedirectURL != "" {
		result.PayURL = &chargeResp.RedirectURL
	}
	if len(chargeResp.VANumbers) > 0 {
		result.VANumber = &chargeResp.VANumbers[0].VANumber
	}
	if chargeResp.QRString != "" {
		result.QRString = &chargeResp.QRString
	}

	return result, nil
}

type midtransNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	SettlementTime    string `json:"settlement_time"`
}

func (m *Midtrans) ParseWebhook(payload []byte, _ http.Header) (*WebhookResult, error) {
	var notif midtransNotification
	if err := json.Unmarshal(payload, &notif); err != nil {
		return nil, fmt.Errorf("decode midtrans notification: %w", err)
	}

	expected := m.signature(notif.OrderID, notif.StatusCode, notif.GrossAmount)
	if !hmac.Equal([]byte(notif.SignatureKey), []byte(expected)) {
		return nil, ErrInvalidSignature
	}

	result := &WebhookResult{
		OrderRef:       notif.OrderID,
		GatewayTxnID:   notif.TransactionID,
		Status:         mapMidtransStatus(notif.TransactionStatus, notif.FraudStatus),
		AmountObserved: parseMidtransAmount(notif.GrossAmount),
		Raw:            payload,
	}

	if result.Status == entity.PaymentStatusPaid {
		if t, err := time.Parse(midtransTimeLayout, notif.SettlementTime); err == nil {
			result.PaidAt = &t
		} else {
			now := time.Now()
			result.PaidAt = &now
		}
	}

	return result, nil
}

type midtransStatusResponse struct {
	StatusCode        string `json:"status_code"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	GrossAmount       string `json:"gross_amount"`
	SettlementTime    string `json:"settlement_time"`
}

func (m *Midtrans) QueryStatus(ctx context.Context, orderRef string) (*StatusResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.cfg.BaseURL+"/v2/"+orderRef+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("build midtrans status request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", m.basicAuth())

	resp, err := m.client.Do(httpReq)
	if err != nil {
		m.log.Error("Midtrans status request failed", zap.Error(err), zap.String("order_ref", orderRef))
		return nil, fmt.Errorf("midtrans status %s: %w", orderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read midtrans status response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("midtrans status %s: http %d: %w", orderRef, resp.StatusCode, ErrUnavailable)
	}

	var statusResp midtransStatusResponse
	if err := json.Unmarshal(raw, &statusResp); err != nil {
		return nil, fmt.Errorf("decode midtrans status response: %w", err)
	}

	result := &StatusResult{
		Status:         mapMidtransStatus(statusResp.TransactionStatus, statusResp.FraudStatus),
		AmountObserved: parseMidtransAmount(statusResp.GrossAmount),
		Raw:            raw,
	}
	if result.Status == entity.PaymentStatusPaid {
		if t, err := time.Parse(midtransTimeLayout, statusResp.SettlementTime); err == nil {
			result.PaidAt = &t
		}
	}

	return result, nil
}

func (m *Midtrans) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(m.cfg.ServerKey+":"))
}

func (m *Midtrans) signature(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + m.cfg.ServerKey))
	return hex.EncodeToString(sum[:])
}

func mapMidtransStatus(txnStatus, fraudStatus string) entity.PaymentStatus {
	switch txnStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return entity.PaymentStatusPending
		}
		return entity.PaymentStatusPaid
	case "settlement":
		return entity.PaymentStatusPaid
	case "pending":
		return entity.PaymentStatusPending
	case "expire":
		return entity.PaymentStatusExpired
	case "deny", "cancel", "failure":
		return entity.PaymentStatusFailed
	default:
		// Status tidak dikenali: biar reconciler no-op.
		return ""
	}
}

// gross_amount dikirim sebagai string desimal, contoh "190000.00".
func parseMidtransAmount(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}
