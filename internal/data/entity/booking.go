package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking adalah head transaction untuk satu checkout.
// BookingCode baru diisi saat pembayaran pertama dibuat dan immutable setelah itu.
type Booking struct {
	Base
	BookingCode    *string       `db:"booking_code"`
	UserID         uuid.UUID     `db:"user_id"`
	ScheduleID     uuid.UUID     `db:"schedule_id"`
	BuyerName      string        `db:"buyer_name"`
	BuyerPhone     string        `db:"buyer_phone"`
	BuyerEmail     string        `db:"buyer_email"`
	PassengerCount int           `db:"passenger_count"`
	PromoID        *uuid.UUID    `db:"promo_id"`
	Discount       int64         `db:"discount"`
	TotalPrice     int64         `db:"total_price"`
	Status         BookingStatus `db:"status"`
	PaymentMethod  *string       `db:"payment_method"`
	PaidAt         *time.Time    `db:"paid_at"`
}

// IsPaid cek eksplisit semua status "sudah lunas", bukan sekadar != pending.
func (b *Booking) IsPaid() bool {
	switch string(b.Status) {
	case "paid", "settled", "captured":
		return true
	}
	return b.PaidAt != nil
}
