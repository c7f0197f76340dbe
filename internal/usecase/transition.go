package usecase

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
)

// Toleransi selisih nominal provider vs attempt, dalam rupiah.
const amountTolerance = 1

// observedUpdate adalah fakta status terbaru dari gateway, dari webhook
// maupun polling. Source cuma untuk log.
type observedUpdate struct {
	Status         entity.PaymentStatus
	GatewayTxnID   string
	PaidAt         *time.Time
	AmountObserved int64
	Raw            json.RawMessage
	Source         string
}

// applyObserved adalah satu-satunya jalur mutasi status attempt + booking
// dari sinyal gateway. Idempotent: status sama = no-op, jadi webhook ganda
// dan balapan webhook-vs-resync aman. Aturan:
//   - status kosong (tidak dikenali adapter) -> no-op
//   - attempt sudah paid -> no-op, transisi keluar dari paid tidak ada
//   - attempt expired/failed -> no-op, KECUALI sinyalnya paid (uang sudah
//     pindah, telat bukan alasan menolak)
//
// Return true kalau transisi benar-benar di-apply.
func applyObserved(
	ctx context.Context,
	repo *repository.Repository,
	log *zap.Logger,
	attempt *entity.PaymentAttempt,
	booking *entity.Booking,
	upd observedUpdate,
) (bool, error) {
	fields := []zap.Field{
		zap.String("order_ref", attempt.OrderRef),
		zap.String("gateway", attempt.Gateway),
		zap.String("from", string(attempt.Status)),
		zap.String("to", string(upd.Status)),
		zap.String("source", upd.Source),
	}

	if upd.Status == "" {
		log.Info("Unrecognized gateway status, ignoring", fields...)
		return false, nil
	}

	if upd.AmountObserved > 0 {
		diff := upd.AmountObserved - attempt.GrossAmount
		if diff < -amountTolerance || diff > amountTolerance {
			log.Warn("Gateway amount mismatch",
				append(fields,
					zap.Int64("expected", attempt.GrossAmount),
					zap.Int64("observed", upd.AmountObserved),
				)...,
			)
		}
	}

	if attempt.Status == upd.Status {
		log.Info("Duplicate status notification, no-op", fields...)
		return false, nil
	}

	if attempt.Status == entity.PaymentStatusPaid {
		log.Warn("Conflicting notification for paid attempt, ignoring", fields...)
		return false, nil
	}

	if attempt.Status.IsTerminal() && upd.Status != entity.PaymentStatusPaid {
		log.Info("Attempt already terminal, ignoring", fields...)
		return false, nil
	}

	// Telat bayar setelah disapu sweeper: booking sudah soft-deleted,
	// pulihkan dulu seluruh cascade baru catat pembayarannya.
	if upd.Status == entity.PaymentStatusPaid && booking.IsDeleted() {
		paidAt := upd.PaidAt
		if paidAt == nil {
			now := time.Now()
			paidAt = &now
		}
		log.Warn("Late payment for swept booking, restoring", fields...)
		if err := repo.Booking.RestoreCascade(ctx, booking.ID, attempt.ID, *paidAt); err != nil {
			return false, ErrDataIntegrity
		}
		booking.DeletedAt = nil
	}

	// Attempt yang dipensiunkan Retire juga bisa telat dibayar; hidupkan
	// lagi barengan transisinya supaya uangnya tidak hilang dari catatan.
	if upd.Status == entity.PaymentStatusPaid && attempt.DeletedAt != nil {
		log.Warn("Late payment for retired attempt, reviving", fields...)
		attempt.DeletedAt = nil
	}

	attempt.Status = upd.Status
	if upd.GatewayTxnID != "" {
		attempt.GatewayTxnID = &upd.GatewayTxnID
	}
	if len(upd.Raw) > 0 {
		attempt.RawPayload = upd.Raw
	}

	switch upd.Status {
	case entity.PaymentStatusPaid:
		paidAt := upd.PaidAt
		if paidAt == nil {
			now := time.Now()
			paidAt = &now
		}
		attempt.PaidAt = paidAt
		booking.Status = entity.BookingStatusPaid
		booking.PaidAt = paidAt
		method := attempt.Gateway
		booking.PaymentMethod = &method
	case entity.PaymentStatusExpired:
		if booking.Status == entity.BookingStatusPending {
			booking.Status = entity.BookingStatusExpired
		}
	case entity.PaymentStatusFailed:
		if booking.Status == entity.BookingStatusPending {
			booking.Status = entity.BookingStatusFailed
		}
	}

	if err := repo.Payment.ApplyTransition(ctx, attempt, booking); err != nil {
		return false, ErrDataIntegrity
	}

	log.Info("Payment status transition applied", fields...)
	return true, nil
}
