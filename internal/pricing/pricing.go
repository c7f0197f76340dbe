// Package pricing menghitung harga booking: base total, potongan promo,
// admin fee, dan final total. Murni fungsi tanpa I/O supaya gampang diuji
// dan hasilnya bisa dihitung ulang kapan saja dari state booking terkini.
package pricing

import (
	"fmt"

	"travel-booking/internal/data/entity"
)

// Toleransi pembulatan untuk cek konsistensi itemisasi (dalam rupiah).
const roundingTolerance = 1

// Quote adalah hasil perhitungan harga untuk satu booking.
type Quote struct {
	BaseTotal  int64
	Discount   int64
	AdminFee   int64
	FinalTotal int64
}

// ItemPrice adalah harga item yang dilaporkan ke gateway yang meng-itemisasi
// (base total setelah potongan, belum termasuk fee).
func (q Quote) ItemPrice() int64 {
	return q.BaseTotal - q.Discount
}

// Calculate menghitung quote dari harga dasar, jumlah penumpang, fee, dan promo.
// Potongan <= 100 dibaca sebagai persen (floor), selain itu nominal.
// Potongan tidak pernah melebihi base total.
func Calculate(basePrice int64, passengerCount int, adminFee int64, promo *entity.Promo) Quote {
	baseTotal := basePrice * int64(passengerCount)

	var discount int64
	if promo != nil {
		if promo.Potongan <= 100 {
			discount = baseTotal * promo.Potongan / 100
		} else {
			discount = promo.Potongan
		}
		if discount > baseTotal {
			discount = baseTotal
		}
		if discount < 0 {
			discount = 0
		}
	}

	return Quote{
		BaseTotal:  baseTotal,
		Discount:   discount,
		AdminFee:   adminFee,
		FinalTotal: baseTotal - discount + adminFee,
	}
}

// Validate cek invariant quote sebelum dikirim ke gateway: final total harus
// sama dengan item price + fee dalam toleransi 1 rupiah. Gagal di sini fatal,
// tidak di-retry.
func (q Quote) Validate() error {
	if q.Discount < 0 || q.Discount > q.BaseTotal {
		return fmt.Errorf("discount %d out of range [0, %d]", q.Discount, q.BaseTotal)
	}

	diff := q.FinalTotal - (q.ItemPrice() + q.AdminFee)
	if diff < -roundingTolerance || diff > roundingTolerance {
		return fmt.Errorf("final total %d does not match item price %d + fee %d",
			q.FinalTotal, q.ItemPrice(), q.AdminFee)
	}

	return nil
}
