package entity

import (
	"github.com/google/uuid"
)

// Passenger adalah line item milik satu Booking.
// Ikut di-soft-delete bersama Booking saat sweeper menarik kembali booking basi.
type Passenger struct {
	Base
	BookingID  uuid.UUID `db:"booking_id"`
	Name       string    `db:"name"`
	IDNumber   *string   `db:"id_number"`
	SeatNumber string    `db:"seat_number"`
}
