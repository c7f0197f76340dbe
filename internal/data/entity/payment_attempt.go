package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus adalah vocabulary canonical lintas gateway.
// Setiap adapter wajib memetakan status provider ke salah satu dari empat ini.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusExpired PaymentStatus = "expired"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsTerminal: paid/expired/failed final untuk attempt ini.
// Booking masih bisa bikin attempt baru dari expired/failed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusExpired || s == PaymentStatusFailed
}

// PaymentAttempt adalah satu objek pembayaran di sisi gateway untuk satu Booking.
// RawPayload disimpan opaque untuk audit, tidak pernah di-parse di luar adapter pemiliknya.
type PaymentAttempt struct {
	Base
	BookingID    uuid.UUID       `db:"booking_id"`
	Gateway      string          `db:"gateway"`
	GatewayTxnID *string         `db:"gateway_txn_id"`
	OrderRef     string          `db:"order_ref"`
	GrossAmount  int64           `db:"gross_amount"`
	Status       PaymentStatus   `db:"status"`
	PayURL       *string         `db:"pay_url"`
	VANumber     *string         `db:"va_number"`
	QRString     *string         `db:"qr_string"`
	ExpiresAt    time.Time       `db:"expires_at"`
	RawPayload   json.RawMessage `db:"raw_payload"`
	PaidAt       *time.Time      `db:"paid_at"`
}

func (p *PaymentAttempt) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
