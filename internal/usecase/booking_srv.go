package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/pkg/utils"
)

type BookingService interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBookingByID(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, page, limit int) (*response.BookingListResponse, error)
	CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) error
}

type bookingService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewBookingService(repo *repository.Repository, log *zap.Logger) BookingService {
	return &bookingService{repo: repo, log: log}
}

// CreateBooking membuat booking pending beserta penumpangnya.
// Harga final belum dihitung di sini; itu urusan orchestrator saat
// pembayaran dibuka, supaya promo dan fee selalu dihitung dari state terkini.
func (s *bookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req request.CreateBookingRequest) (*response.BookingResponse, error) {
	scheduleID, err := utils.ParseUUID(req.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid schedule id", ErrValidation)
	}

	schedule, err := s.repo.Schedule.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, ErrDataIntegrity
	}
	if schedule == nil {
		return nil, fmt.Errorf("%w: schedule not found", ErrValidation)
	}
	if schedule.DepartAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: schedule already departed", ErrValidation)
	}

	taken, err := s.repo.Booking.SumPassengersBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, ErrDataIntegrity
	}
	if taken+len(req.Passengers) > schedule.SeatCount {
		return nil, fmt.Errorf("%w: only %d seats left", ErrValidation, schedule.SeatCount-taken)
	}

	now := time.Now()
	booking := &entity.Booking{
		UserID:         userID,
		ScheduleID:     scheduleID,
		BuyerName:      req.BuyerName,
		BuyerPhone:     req.BuyerPhone,
		BuyerEmail:     req.BuyerEmail,
		PassengerCount: len(req.Passengers),
		TotalPrice:     schedule.Price * int64(len(req.Passengers)),
		Status:         entity.BookingStatusPending,
	}
	booking.ID = utils.GenerateUUID()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, ErrDataIntegrity
	}

	passengers := make([]*entity.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passenger := &entity.Passenger{
			BookingID:  booking.ID,
			Name:       p.Name,
			SeatNumber: p.SeatNumber,
		}
		passenger.ID = utils.GenerateUUID()
		passenger.CreatedAt = now
		passenger.UpdatedAt = now
		if p.IdentityNo != "" {
			idNo := p.IdentityNo
			passenger.IDNumber = &idNo
		}
		passengers = append(passengers, passenger)
	}

	if err := s.repo.Passenger.CreateBatch(ctx, passengers); err != nil {
		return nil, ErrDataIntegrity
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("schedule_id", scheduleID.String()),
		zap.Int("passengers", len(passengers)),
	)

	return toBookingResponse(booking, passengers), nil
}

func (s *bookingService) GetBookingByID(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, ErrDataIntegrity
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if userID != uuid.Nil && booking.UserID != userID {
		return nil, ErrBookingNotFound
	}

	passengers, err := s.repo.Passenger.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, ErrDataIntegrity
	}

	return toBookingResponse(booking, passengers), nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, page, limit int) (*response.BookingListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, ErrDataIntegrity
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		return nil, ErrDataIntegrity
	}

	list := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		list = append(list, *toBookingResponse(b, nil))
	}

	return &response.BookingListResponse{
		Bookings: list,
		Page:     page,
		Limit:    limit,
		Total:    int(total),
	}, nil
}

// CancelBooking pembatalan eksplisit oleh pemilik. Hanya booking yang belum
// lunas yang bisa dibatalkan; refund bukan urusan subsistem ini.
func (s *bookingService) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) error {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return ErrDataIntegrity
	}
	if booking == nil {
		return ErrBookingNotFound
	}
	if userID != uuid.Nil && booking.UserID != userID {
		return ErrBookingNotFound
	}
	if booking.IsPaid() {
		return fmt.Errorf("%w: paid booking cannot be cancelled", ErrValidation)
	}
	if booking.Status == entity.BookingStatusCancelled {
		return nil
	}

	if err := s.repo.Booking.UpdateStatus(ctx, bookingID, entity.BookingStatusCancelled); err != nil {
		return ErrDataIntegrity
	}

	s.log.Info("Booking cancelled", zap.String("booking_id", bookingID.String()))
	return nil
}

func toBookingResponse(b *entity.Booking, passengers []*entity.Passenger) *response.BookingResponse {
	res := &response.BookingResponse{
		ID:             b.ID.String(),
		BookingCode:    b.BookingCode,
		ScheduleID:     b.ScheduleID.String(),
		Status:         string(b.Status),
		BuyerName:      b.BuyerName,
		BuyerPhone:     b.BuyerPhone,
		BuyerEmail:     b.BuyerEmail,
		PassengerCount: b.PassengerCount,
		Discount:       b.Discount,
		TotalPrice:     b.TotalPrice,
		PaymentMethod:  b.PaymentMethod,
		PaidAt:         b.PaidAt,
		CreatedAt:      b.CreatedAt,
	}
	for _, p := range passengers {
		res.Passengers = append(res.Passengers, response.PassengerResponse{
			Name:       p.Name,
			SeatNumber: p.SeatNumber,
		})
	}
	return res
}
