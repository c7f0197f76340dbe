package entity

import (
	"time"
)

// Promo menyimpan potongan harga.
// Potongan <= 100 dibaca sebagai persen, selain itu nominal rupiah.
type Promo struct {
	Base
	Code       string    `db:"code"`
	Potongan   int64     `db:"potongan"`
	ValidFrom  time.Time `db:"valid_from"`
	ValidUntil time.Time `db:"valid_until"`
	IsActive   bool      `db:"is_active"`
}

func (p *Promo) IsValid(now time.Time) bool {
	return p.IsActive && !now.Before(p.ValidFrom) && !now.After(p.ValidUntil)
}
