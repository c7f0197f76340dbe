// Package gateway mengisolasi detail protokol tiap payment provider di balik
// satu interface. Orchestrator dan reconciler hanya tahu vocabulary canonical
// (pending/paid/expired/failed); signing scheme, format webhook, dan mapping
// status jadi urusan internal masing-masing adapter.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"travel-booking/internal/data/entity"
)

var (
	// ErrInvalidSignature: payload webhook tidak bisa diautentikasi.
	// Caller tetap balas 200 ke provider tapi tidak boleh apply statusnya.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrUnavailable: transport failure / timeout / 5xx dari provider.
	// Retryable di sisi caller.
	ErrUnavailable = errors.New("payment gateway unavailable")
)

// CreateRequest berisi semua data untuk membuka satu objek pembayaran baru.
// Amount harus sudah lolos pre-check orchestrator: Amount == ItemPrice + AdminFee.
type CreateRequest struct {
	OrderRef      string
	Amount        int64
	ItemPrice     int64
	AdminFee      int64
	Channel       string
	Description   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ExpiresAt     time.Time
}

// CreateResult adalah instruksi bayar yang dikembalikan provider.
type CreateResult struct {
	GatewayTxnID string
	PayURL       *string
	VANumber     *string
	QRString     *string
	ExpiresAt    time.Time
	Raw          json.RawMessage
}

// WebhookResult adalah hasil parse + autentikasi satu notifikasi async.
// Status kosong artinya status provider tidak dikenali; caller no-op.
type WebhookResult struct {
	OrderRef       string
	GatewayTxnID   string
	Status         entity.PaymentStatus
	PaidAt         *time.Time
	AmountObserved int64
	Raw            json.RawMessage
}

// StatusResult adalah hasil polling status on-demand.
type StatusResult struct {
	Status         entity.PaymentStatus
	AmountObserved int64
	PaidAt         *time.Time
	Raw            json.RawMessage
}

type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	ParseWebhook(payload []byte, headers http.Header) (*WebhookResult, error)
	QueryStatus(ctx context.Context, orderRef string) (*StatusResult, error)
}

// Registry memetakan gateway id ke adapternya.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

func (r *Registry) Get(name string) (Gateway, bool) {
	g, ok := r.gateways[name]
	return g, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}
