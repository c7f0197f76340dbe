package repository

import (
	"travel-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User      UserRepository
	Session   SessionRepository
	Schedule  ScheduleRepository
	Promo     PromoRepository
	Booking   BookingRepository
	Passenger PassengerRepository
	Payment   PaymentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:      NewUserRepository(db, log),
		Session:   NewSessionRepository(db, log),
		Schedule:  NewScheduleRepository(db, log),
		Promo:     NewPromoRepository(db, log),
		Booking:   NewBookingRepository(db, log),
		Passenger: NewPassengerRepository(db, log),
		Payment:   NewPaymentRepository(db, log),
	}
}
