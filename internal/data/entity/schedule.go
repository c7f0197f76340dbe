package entity

import (
	"time"
)

// Schedule adalah katalog jadwal keberangkatan (read-only untuk subsistem payment).
type Schedule struct {
	Base
	Origin      string    `db:"origin"`
	Destination string    `db:"destination"`
	DepartAt    time.Time `db:"depart_at"`
	VehicleName string    `db:"vehicle_name"`
	Price       int64     `db:"price"`
	SeatCount   int       `db:"seat_count"`
}
