package repository

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ScheduleRepository read-only: katalog jadwal dikelola subsistem lain.
type ScheduleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Schedule, error)
}

type scheduleRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewScheduleRepository(db database.PgxIface, log *zap.Logger) ScheduleRepository {
	return &scheduleRepository{
		db:  db,
		log: log.With(zap.String("repository", "schedule")),
	}
}

func (r *scheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Schedule, error) {
	query := `
		SELECT id, origin, destination, depart_at, vehicle_name, price, seat_count,
		       created_at, updated_at, deleted_at
		FROM schedules
		WHERE id = $1 AND deleted_at IS NULL
	`

	var s entity.Schedule
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Origin,
		&s.Destination,
		&s.DepartAt,
		&s.VehicleName,
		&s.Price,
		&s.SeatCount,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find schedule by ID",
			zap.Error(err),
			zap.String("schedule_id", id.String()),
		)
		return nil, fmt.Errorf("find schedule by ID %s: %w", id.String(), err)
	}

	return &s, nil
}
