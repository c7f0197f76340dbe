package repository

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PassengerRepository interface {
	CreateBatch(ctx context.Context, passengers []*entity.Passenger) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.Passenger, error)
}

type passengerRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPassengerRepository(db database.PgxIface, log *zap.Logger) PassengerRepository {
	return &passengerRepository{
		db:  db,
		log: log.With(zap.String("repository", "passenger")),
	}
}

func (r *passengerRepository) CreateBatch(ctx context.Context, passengers []*entity.Passenger) error {
	query := `
		INSERT INTO passengers (id, booking_id, name, id_number, seat_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, p := range passengers {
		_, err := r.db.Exec(ctx, query,
			p.ID,
			p.BookingID,
			p.Name,
			p.IDNumber,
			p.SeatNumber,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create passenger",
				zap.Error(err),
				zap.String("booking_id", p.BookingID.String()),
			)
			return fmt.Errorf("create passenger for booking %s: %w", p.BookingID.String(), err)
		}
	}

	return nil
}

func (r *passengerRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.Passenger, error) {
	query := `
		SELECT id, booking_id, name, id_number, seat_number, created_at, updated_at, deleted_at
		FROM passengers
		WHERE booking_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find passengers by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find passengers by booking ID %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var passengers []*entity.Passenger
	for rows.Next() {
		var p entity.Passenger
		err := rows.Scan(
			&p.ID,
			&p.BookingID,
			&p.Name,
			&p.IDNumber,
			&p.SeatNumber,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.DeletedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan passenger row", zap.Error(err))
			return nil, fmt.Errorf("scan passenger row: %w", err)
		}
		passengers = append(passengers, &p)
	}

	return passengers, nil
}
