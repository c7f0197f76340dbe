package repository

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, attempt *entity.PaymentAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentAttempt, error)
	FindByOrderRef(ctx context.Context, orderRef string) (*entity.PaymentAttempt, error)
	FindActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error)
	FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error)
	Update(ctx context.Context, attempt *entity.PaymentAttempt) error
	UpdateStatus(ctx context.Context, attemptID uuid.UUID, status entity.PaymentStatus) error
	Retire(ctx context.Context, attemptID uuid.UUID) error

	// Composite transactional ops - satu transaksi per booking + attempt-nya
	// supaya partial state tidak pernah kelihatan.
	CreateWithBooking(ctx context.Context, attempt *entity.PaymentAttempt, booking *entity.Booking) error
	ApplyTransition(ctx context.Context, attempt *entity.PaymentAttempt, booking *entity.Booking) error
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const attemptColumns = `id, booking_id, gateway, gateway_txn_id, order_ref, gross_amount, status,
	       pay_url, va_number, qr_string, expires_at, raw_payload, paid_at,
	       created_at, updated_at, deleted_at`

func scanAttempt(row pgx.Row) (*entity.PaymentAttempt, error) {
	var p entity.PaymentAttempt
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.Gateway,
		&p.GatewayTxnID,
		&p.OrderRef,
		&p.GrossAmount,
		&p.Status,
		&p.PayURL,
		&p.VANumber,
		&p.QRString,
		&p.ExpiresAt,
		&p.RawPayload,
		&p.PaidAt,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const insertAttemptQuery = `
	INSERT INTO payment_attempts (id, booking_id, gateway, gateway_txn_id, order_ref,
	                              gross_amount, status, pay_url, va_number, qr_string,
	                              expires_at, raw_payload, paid_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

func attemptArgs(p *entity.PaymentAttempt) []any {
	return []any{
		p.ID,
		p.BookingID,
		p.Gateway,
		p.GatewayTxnID,
		p.OrderRef,
		p.GrossAmount,
		p.Status,
		p.PayURL,
		p.VANumber,
		p.QRString,
		p.ExpiresAt,
		p.RawPayload,
		p.PaidAt,
		p.CreatedAt,
		p.UpdatedAt,
	}
}

func (r *paymentRepository) Create(ctx context.Context, attempt *entity.PaymentAttempt) error {
	_, err := r.db.Exec(ctx, insertAttemptQuery, attemptArgs(attempt)...)
	if err != nil {
		r.log.Error("Failed to create payment attempt",
			zap.Error(err),
			zap.String("order_ref", attempt.OrderRef),
			zap.String("booking_id", attempt.BookingID.String()),
		)
		return fmt.Errorf("create payment attempt %s: %w", attempt.OrderRef, err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE id = $1 AND deleted_at IS NULL`

	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment attempt by ID",
			zap.Error(err),
			zap.String("attempt_id", id.String()),
		)
		return nil, fmt.Errorf("find payment attempt by ID %s: %w", id.String(), err)
	}

	return attempt, nil
}

func (r *paymentRepository) FindByOrderRef(ctx context.Context, orderRef string) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE order_ref = $1`

	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, orderRef))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment attempt by order ref",
			zap.Error(err),
			zap.String("order_ref", orderRef),
		)
		return nil, fmt.Errorf("find payment attempt by order ref %s: %w", orderRef, err)
	}

	return attempt, nil
}

// FindActiveByBookingID cari attempt non-terminal terakhir.
// Invariant: maksimal satu attempt pending/paid per booking.
func (r *paymentRepository) FindActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM payment_attempts
		WHERE booking_id = $1
		  AND deleted_at IS NULL
		  AND status IN ('pending', 'paid')
		ORDER BY created_at DESC
		LIMIT 1
	`

	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, bookingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find active payment attempt",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find active payment attempt for booking %s: %w", bookingID.String(), err)
	}

	return attempt, nil
}

// FindLatestByBookingID cari attempt paling baru apapun statusnya, termasuk
// yang sudah disapu sweeper. Dipakai resync dan restore.
func (r *paymentRepository) FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM payment_attempts
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, bookingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find latest payment attempt",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find latest payment attempt for booking %s: %w", bookingID.String(), err)
	}

	return attempt, nil
}

const updateAttemptQuery = `
	UPDATE payment_attempts
	SET gateway_txn_id = $2, status = $3, pay_url = $4, va_number = $5, qr_string = $6,
	    expires_at = $7, raw_payload = $8, paid_at = $9, updated_at = $10
	WHERE id = $1 AND deleted_at IS NULL
`

func (r *paymentRepository) Update(ctx context.Context, attempt *entity.PaymentAttempt) error {
	result, err := r.db.Exec(ctx, updateAttemptQuery,
		attempt.ID,
		attempt.GatewayTxnID,
		attempt.Status,
		attempt.PayURL,
		attempt.VANumber,
		attempt.QRString,
		attempt.ExpiresAt,
		attempt.RawPayload,
		attempt.PaidAt,
		time.Now(),
	)

	if err != nil {
		r.log.Error("Failed to update payment attempt",
			zap.Error(err),
			zap.String("attempt_id", attempt.ID.String()),
		)
		return fmt.Errorf("update payment attempt %s: %w", attempt.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment attempt %s not found", attempt.ID.String())
	}

	return nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, attemptID uuid.UUID, status entity.PaymentStatus) error {
	query := `UPDATE payment_attempts SET status = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, attemptID, status)
	if err != nil {
		r.log.Error("Failed to update payment attempt status",
			zap.Error(err),
			zap.String("attempt_id", attemptID.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update payment attempt %s status to %s: %w", attemptID.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment attempt %s not found", attemptID.String())
	}

	return nil
}

// Retire soft-delete attempt lama sebelum attempt baru dibuat,
// menjaga invariant satu attempt aktif per booking.
func (r *paymentRepository) Retire(ctx context.Context, attemptID uuid.UUID) error {
	query := `
		UPDATE payment_attempts
		SET status = 'expired', deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND status <> 'paid'
	`

	result, err := r.db.Exec(ctx, query, attemptID)
	if err != nil {
		r.log.Error("Failed to retire payment attempt",
			zap.Error(err),
			zap.String("attempt_id", attemptID.String()),
		)
		return fmt.Errorf("retire payment attempt %s: %w", attemptID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment attempt %s not retirable", attemptID.String())
	}

	return nil
}

// CreateWithBooking insert attempt baru + update booking (kode booking, status,
// promo, total) dalam satu transaksi. Dipanggil SETELAH call gateway selesai;
// tidak ada network call yang digantung di dalam transaksi ini.
func (r *paymentRepository) CreateWithBooking(ctx context.Context, attempt *entity.PaymentAttempt, booking *entity.Booking) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertAttemptQuery, attemptArgs(attempt)...); err != nil {
			return fmt.Errorf("create payment attempt %s: %w", attempt.OrderRef, err)
		}

		result, err := tx.Exec(ctx, `
			UPDATE bookings
			SET booking_code = $2, promo_id = $3, discount = $4, total_price = $5,
			    status = $6, payment_method = $7, updated_at = $8
			WHERE id = $1 AND deleted_at IS NULL
		`,
			booking.ID,
			booking.BookingCode,
			booking.PromoID,
			booking.Discount,
			booking.TotalPrice,
			booking.Status,
			booking.PaymentMethod,
			time.Now(),
		)
		if err != nil {
			return fmt.Errorf("update booking %s: %w", booking.ID.String(), err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("booking %s not found", booking.ID.String())
		}

		return nil
	})

	if err != nil {
		r.log.Error("Failed to persist payment attempt with booking",
			zap.Error(err),
			zap.String("order_ref", attempt.OrderRef),
			zap.String("booking_id", booking.ID.String()),
		)
		return err
	}

	return nil
}

// Beda dengan updateAttemptQuery: transisi paid boleh menyentuh attempt
// yang sudah dipensiunkan Retire. Uang sudah pindah di provider, attempt
// dihidupkan lagi (deleted_at dihapus) supaya pembayarannya tercatat.
const transitionAttemptQuery = `
	UPDATE payment_attempts
	SET gateway_txn_id = $2, status = $3, pay_url = $4, va_number = $5, qr_string = $6,
	    expires_at = $7, raw_payload = $8, paid_at = $9, updated_at = $10,
	    deleted_at = CASE WHEN $3 = 'paid' THEN NULL ELSE deleted_at END
	WHERE id = $1 AND (deleted_at IS NULL OR $3 = 'paid')
`

// ApplyTransition update attempt + booking dalam satu transaksi.
// Ini satu-satunya jalur yang boleh memindahkan booking ke paid.
func (r *paymentRepository) ApplyTransition(ctx context.Context, attempt *entity.PaymentAttempt, booking *entity.Booking) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, transitionAttemptQuery,
			attempt.ID,
			attempt.GatewayTxnID,
			attempt.Status,
			attempt.PayURL,
			attempt.VANumber,
			attempt.QRString,
			attempt.ExpiresAt,
			attempt.RawPayload,
			attempt.PaidAt,
			time.Now(),
		)
		if err != nil {
			return fmt.Errorf("update payment attempt %s: %w", attempt.ID.String(), err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("payment attempt %s not found", attempt.ID.String())
		}

		result, err = tx.Exec(ctx, `
			UPDATE bookings
			SET status = $2, payment_method = $3, paid_at = $4, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`,
			booking.ID,
			booking.Status,
			booking.PaymentMethod,
			booking.PaidAt,
		)
		if err != nil {
			return fmt.Errorf("update booking %s: %w", booking.ID.String(), err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("booking %s not found", booking.ID.String())
		}

		return nil
	})

	if err != nil {
		r.log.Error("Failed to apply payment transition",
			zap.Error(err),
			zap.String("attempt_id", attempt.ID.String()),
			zap.String("booking_id", booking.ID.String()),
			zap.String("status", string(attempt.Status)),
		)
		return err
	}

	return nil
}
