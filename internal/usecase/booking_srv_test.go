package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/usecase"
)

type bookingFixture struct {
	*fixture
	service    usecase.BookingService
	userID     uuid.UUID
	scheduleID uuid.UUID
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	fx := newFixture()

	schedule := &entity.Schedule{
		Origin:      "Jakarta",
		Destination: "Bandung",
		DepartAt:    time.Now().Add(48 * time.Hour),
		Price:       100000,
		SeatCount:   3,
	}
	schedule.ID = uuid.New()
	fx.schedules.schedules[schedule.ID] = schedule

	return &bookingFixture{
		fixture:    fx,
		service:    usecase.NewBookingService(fx.repo, zap.NewNop()),
		userID:     uuid.New(),
		scheduleID: schedule.ID,
	}
}

func validBookingRequest(scheduleID uuid.UUID, passengers int) request.CreateBookingRequest {
	req := request.CreateBookingRequest{
		ScheduleID: scheduleID.String(),
		BuyerName:  "Budi",
		BuyerPhone: "08123456789",
		BuyerEmail: "budi@example.com",
	}
	for i := 0; i < passengers; i++ {
		req.Passengers = append(req.Passengers, request.PassengerRequest{
			Name:       "Penumpang",
			SeatNumber: string(rune('A' + i)),
		})
	}
	return req
}

func TestCreateBooking(t *testing.T) {
	fx := newBookingFixture(t)

	res, err := fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(fx.scheduleID, 2))
	require.NoError(t, err)

	assert.Equal(t, "pending", res.Status)
	assert.Equal(t, 2, res.PassengerCount)
	assert.Equal(t, int64(200000), res.TotalPrice)
	assert.Nil(t, res.BookingCode, "booking code baru muncul saat pembayaran pertama")

	bookingID, _ := uuid.Parse(res.ID)
	passengers, _ := fx.passengers.FindByBookingID(context.Background(), bookingID)
	assert.Len(t, passengers, 2)
}

func TestCreateBooking_SeatCapacity(t *testing.T) {
	fx := newBookingFixture(t)

	_, err := fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(fx.scheduleID, 2))
	require.NoError(t, err)

	// Sisa 1 kursi, minta 2.
	_, err = fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(fx.scheduleID, 2))
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestCreateBooking_DepartedSchedule(t *testing.T) {
	fx := newBookingFixture(t)

	schedule := fx.schedules.schedules[fx.scheduleID]
	schedule.DepartAt = time.Now().Add(-time.Hour)

	_, err := fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(fx.scheduleID, 1))
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestCreateBooking_UnknownSchedule(t *testing.T) {
	fx := newBookingFixture(t)

	_, err := fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(uuid.New(), 1))
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestGetBookingByID_OwnershipEnforced(t *testing.T) {
	fx := newBookingFixture(t)

	res, err := fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(fx.scheduleID, 1))
	require.NoError(t, err)
	bookingID, _ := uuid.Parse(res.ID)

	_, err = fx.service.GetBookingByID(context.Background(), uuid.New(), bookingID)
	assert.ErrorIs(t, err, usecase.ErrBookingNotFound)

	// Admin lewat uuid.Nil boleh lihat semua.
	got, err := fx.service.GetBookingByID(context.Background(), uuid.Nil, bookingID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
}

func TestGetUserBookings_Pagination(t *testing.T) {
	fx := newBookingFixture(t)

	// SeatCount fake 3, tiap booking 1 kursi.
	for i := 0; i < 3; i++ {
		_, err := fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(fx.scheduleID, 1))
		require.NoError(t, err)
	}

	list, err := fx.service.GetUserBookings(context.Background(), fx.userID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, list.Bookings, 2)
	assert.Equal(t, 3, list.Total)

	list, err = fx.service.GetUserBookings(context.Background(), fx.userID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, list.Bookings, 1)
}

func TestCancelBooking(t *testing.T) {
	fx := newBookingFixture(t)

	res, err := fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(fx.scheduleID, 1))
	require.NoError(t, err)
	bookingID, _ := uuid.Parse(res.ID)

	require.NoError(t, fx.service.CancelBooking(context.Background(), fx.userID, bookingID))
	assert.Equal(t, entity.BookingStatusCancelled, fx.bookings.get(bookingID).Status)

	// Cancel ulang idempotent.
	require.NoError(t, fx.service.CancelBooking(context.Background(), fx.userID, bookingID))
}

func TestCancelBooking_PaidRejected(t *testing.T) {
	fx := newBookingFixture(t)

	res, err := fx.service.CreateBooking(context.Background(), fx.userID, validBookingRequest(fx.scheduleID, 1))
	require.NoError(t, err)
	bookingID, _ := uuid.Parse(res.ID)

	booking := fx.bookings.get(bookingID)
	now := time.Now()
	booking.Status = entity.BookingStatusPaid
	booking.PaidAt = &now
	fx.bookings.put(booking)

	err = fx.service.CancelBooking(context.Background(), fx.userID, bookingID)
	assert.ErrorIs(t, err, usecase.ErrValidation)
}
