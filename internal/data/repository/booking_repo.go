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

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, booking *entity.Booking) error
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus) error
	SumPassengersBySchedule(ctx context.Context, scheduleID uuid.UUID) (int, error)

	// Sweeper queries
	FindStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error)
	ExpireCascade(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error)
	RestoreCascade(ctx context.Context, bookingID, attemptID uuid.UUID, paidAt time.Time) error
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, booking_code, user_id, schedule_id, buyer_name, buyer_phone, buyer_email,
	       passenger_count, promo_id, discount, total_price, status, payment_method, paid_at,
	       created_at, updated_at, deleted_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.BookingCode,
		&b.UserID,
		&b.ScheduleID,
		&b.BuyerName,
		&b.BuyerPhone,
		&b.BuyerEmail,
		&b.PassengerCount,
		&b.PromoID,
		&b.Discount,
		&b.TotalPrice,
		&b.Status,
		&b.PaymentMethod,
		&b.PaidAt,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, booking_code, user_id, schedule_id, buyer_name, buyer_phone,
		                      buyer_email, passenger_count, promo_id, discount, total_price,
		                      status, payment_method, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.BookingCode,
		booking.UserID,
		booking.ScheduleID,
		booking.BuyerName,
		booking.BuyerPhone,
		booking.BuyerEmail,
		booking.PassengerCount,
		booking.PromoID,
		booking.Discount,
		booking.TotalPrice,
		booking.Status,
		booking.PaymentMethod,
		booking.PaidAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("user_id", booking.UserID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID.String(), err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND deleted_at IS NULL`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

// FindByIDIncludingDeleted dipakai operasi restore: booking yang salah
// tersapu sudah punya deleted_at.
func (r *bookingRepository) FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID.String(), err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND deleted_at IS NULL`

	var count int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings
		SET booking_code = $2, promo_id = $3, discount = $4, total_price = $5,
		    status = $6, payment_method = $7, paid_at = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.BookingCode,
		booking.PromoID,
		booking.Discount,
		booking.TotalPrice,
		booking.Status,
		booking.PaymentMethod,
		booking.PaidAt,
		time.Now(),
	)

	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", booking.ID.String())
	}

	return nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus) error {
	query := `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, bookingID, status)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update booking %s status to %s: %w", bookingID.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}

	return nil
}

func (r *bookingRepository) SumPassengersBySchedule(ctx context.Context, scheduleID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(SUM(passenger_count), 0)
		FROM bookings
		WHERE schedule_id = $1
		  AND deleted_at IS NULL
		  AND status IN ('pending', 'paid')
	`

	var total int
	err := r.db.QueryRow(ctx, query, scheduleID).Scan(&total)
	if err != nil {
		r.log.Error("Failed to sum passengers by schedule",
			zap.Error(err),
			zap.String("schedule_id", scheduleID.String()),
		)
		return 0, fmt.Errorf("sum passengers by schedule %s: %w", scheduleID.String(), err)
	}

	return total, nil
}

// FindStaleUnpaid ambil kandidat sweep: booking pending (atau attempt-nya masih
// pending) yang lebih tua dari cutoff. Guard negatif eksplisit terhadap status
// lunas, bukan cuma "status = pending".
func (r *bookingRepository) FindStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT DISTINCT ON (b.id)
		       b.id, b.booking_code, b.user_id, b.schedule_id, b.buyer_name, b.buyer_phone,
		       b.buyer_email, b.passenger_count, b.promo_id, b.discount, b.total_price,
		       b.status, b.payment_method, b.paid_at, b.created_at, b.updated_at, b.deleted_at
		FROM bookings b
		LEFT JOIN payment_attempts pa
		       ON pa.booking_id = b.id AND pa.deleted_at IS NULL
		WHERE (b.status = 'pending' OR pa.status = 'pending')
		  AND b.status NOT IN ('paid', 'settled', 'captured')
		  AND b.paid_at IS NULL
		  AND b.created_at < $1
		  AND b.deleted_at IS NULL
		ORDER BY b.id, b.created_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		r.log.Error("Failed to find stale unpaid bookings", zap.Error(err))
		return nil, fmt.Errorf("find stale unpaid bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

// ExpireCascade soft-delete satu booking beserta attempt dan penumpangnya
// dalam satu transaksi. WHERE pada booking mengulang guard negatif, jadi
// webhook PAID yang mendarat di antara seleksi dan mutasi membuat cascade
// ini jadi no-op (return false).
func (r *bookingRepository) ExpireCascade(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error) {
	applied := false

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE bookings
			SET status = 'expired', deleted_at = $2, updated_at = $2
			WHERE id = $1
			  AND deleted_at IS NULL
			  AND status NOT IN ('paid', 'settled', 'captured')
			  AND paid_at IS NULL
		`, bookingID, now)
		if err != nil {
			return fmt.Errorf("expire booking %s: %w", bookingID.String(), err)
		}

		if result.RowsAffected() == 0 {
			// Booking keburu dibayar atau sudah disapu pass lain.
			return nil
		}
		applied = true

		if _, err := tx.Exec(ctx, `
			UPDATE payment_attempts
			SET status = 'expired', deleted_at = $2, updated_at = $2
			WHERE booking_id = $1 AND deleted_at IS NULL
		`, bookingID, now); err != nil {
			return fmt.Errorf("expire payment attempts for booking %s: %w", bookingID.String(), err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE passengers
			SET deleted_at = $2, updated_at = $2
			WHERE booking_id = $1 AND deleted_at IS NULL
		`, bookingID, now); err != nil {
			return fmt.Errorf("expire passengers for booking %s: %w", bookingID.String(), err)
		}

		return nil
	})

	if err != nil {
		r.log.Error("Failed to expire booking cascade",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, err
	}

	return applied, nil
}

// RestoreCascade adalah safety valve manual: balikkan booking lunas yang
// salah tersapu. Booking dan attempt pemenang dikembalikan ke paid,
// soft-delete dilepas. Caller wajib sudah konfirmasi ke gateway dulu.
func (r *bookingRepository) RestoreCascade(ctx context.Context, bookingID, attemptID uuid.UUID, paidAt time.Time) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE bookings
			SET status = 'paid', paid_at = COALESCE(paid_at, $2), deleted_at = NULL, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NOT NULL
		`, bookingID, paidAt)
		if err != nil {
			return fmt.Errorf("restore booking %s: %w", bookingID.String(), err)
		}

		if result.RowsAffected() == 0 {
			return fmt.Errorf("booking %s not found or not restorable", bookingID.String())
		}

		if _, err := tx.Exec(ctx, `
			UPDATE payment_attempts
			SET status = 'paid', paid_at = COALESCE(paid_at, $3), deleted_at = NULL, updated_at = NOW()
			WHERE id = $1 AND booking_id = $2
		`, attemptID, bookingID, paidAt); err != nil {
			return fmt.Errorf("restore payment attempt %s: %w", attemptID.String(), err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE passengers
			SET deleted_at = NULL, updated_at = NOW()
			WHERE booking_id = $1
		`, bookingID); err != nil {
			return fmt.Errorf("restore passengers for booking %s: %w", bookingID.String(), err)
		}

		return nil
	})

	if err != nil {
		r.log.Error("Failed to restore booking cascade",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return err
	}

	r.log.Info("Booking restored", zap.String("booking_id", bookingID.String()))
	return nil
}
