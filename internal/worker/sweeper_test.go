package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/worker"
	"travel-booking/pkg/utils"
)

type sweepBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*entity.Booking

	// paidDuringSweep mensimulasikan webhook yang menang balapan: booking
	// ini berubah jadi paid tepat sebelum ExpireCascade mengevaluasi guard.
	paidDuringSweep map[uuid.UUID]bool

	expireErr error
	expired   []uuid.UUID
}

func newSweepBookingRepo() *sweepBookingRepo {
	return &sweepBookingRepo{
		bookings:        make(map[uuid.UUID]*entity.Booking),
		paidDuringSweep: make(map[uuid.UUID]bool),
	}
}

func (f *sweepBookingRepo) add(b *entity.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
}

func (f *sweepBookingRepo) Create(context.Context, *entity.Booking) error { return nil }
func (f *sweepBookingRepo) Update(context.Context, *entity.Booking) error { return nil }
func (f *sweepBookingRepo) UpdateStatus(context.Context, uuid.UUID, entity.BookingStatus) error {
	return nil
}
func (f *sweepBookingRepo) FindByUserID(context.Context, uuid.UUID, int, int) ([]*entity.Booking, error) {
	return nil, nil
}
func (f *sweepBookingRepo) CountByUserID(context.Context, uuid.UUID) (int64, error) { return 0, nil }
func (f *sweepBookingRepo) SumPassengersBySchedule(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}
func (f *sweepBookingRepo) RestoreCascade(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
	return nil
}

func (f *sweepBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.DeletedAt != nil {
		return nil, nil
	}
	clone := *b
	return &clone, nil
}

func (f *sweepBookingRepo) FindByIDIncludingDeleted(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	clone := *b
	return &clone, nil
}

func (f *sweepBookingRepo) FindStaleUnpaid(_ context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Booking
	for _, b := range f.bookings {
		if b.DeletedAt == nil && !b.IsPaid() && b.Status == entity.BookingStatusPending && b.CreatedAt.Before(cutoff) {
			clone := *b
			out = append(out, &clone)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *sweepBookingRepo) ExpireCascade(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	if f.expireErr != nil {
		return false, f.expireErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || b.DeletedAt != nil {
		return false, nil
	}
	if f.paidDuringSweep[id] {
		paidAt := now
		b.Status = entity.BookingStatusPaid
		b.PaidAt = &paidAt
	}
	// Guard SQL: jangan sapu yang sudah lunas.
	if b.IsPaid() {
		return false, nil
	}
	b.Status = entity.BookingStatusExpired
	b.DeletedAt = &now
	f.expired = append(f.expired, id)
	return true, nil
}

var _ repository.BookingRepository = (*sweepBookingRepo)(nil)

func newSweeper(bookings *sweepBookingRepo) *worker.Sweeper {
	return worker.NewSweeper(
		&repository.Repository{Booking: bookings},
		utils.SweeperConfig{
			Schedule:  "*/5 * * * *",
			Staleness: 15 * time.Minute,
			BatchSize: 100,
		},
		zap.NewNop(),
	)
}

func staleBooking(age time.Duration, status entity.BookingStatus) *entity.Booking {
	b := &entity.Booking{
		UserID:         uuid.New(),
		ScheduleID:     uuid.New(),
		PassengerCount: 1,
		TotalPrice:     105000,
		Status:         status,
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now().Add(-age)
	return b
}

func TestSweep_ExpiresStaleUnpaid(t *testing.T) {
	bookings := newSweepBookingRepo()
	stale := staleBooking(time.Hour, entity.BookingStatusPending)
	bookings.add(stale)

	swept := newSweeper(bookings).Sweep(context.Background())

	assert.Equal(t, 1, swept)
	require.NotNil(t, stale.DeletedAt)
	assert.Equal(t, entity.BookingStatusExpired, stale.Status)
}

func TestSweep_FreshBookingUntouched(t *testing.T) {
	bookings := newSweepBookingRepo()
	fresh := staleBooking(5*time.Minute, entity.BookingStatusPending)
	bookings.add(fresh)

	swept := newSweeper(bookings).Sweep(context.Background())

	assert.Equal(t, 0, swept)
	assert.Nil(t, fresh.DeletedAt)
}

func TestSweep_PaidBookingProtected(t *testing.T) {
	bookings := newSweepBookingRepo()
	paid := staleBooking(time.Hour, entity.BookingStatusPaid)
	now := time.Now()
	paid.PaidAt = &now
	bookings.add(paid)

	swept := newSweeper(bookings).Sweep(context.Background())

	assert.Equal(t, 0, swept)
	assert.Nil(t, paid.DeletedAt)
}

func TestSweep_RaceWithPayment_PaymentWins(t *testing.T) {
	bookings := newSweepBookingRepo()
	stale := staleBooking(time.Hour, entity.BookingStatusPending)
	bookings.add(stale)

	// Webhook paid mendarat di antara listing kandidat dan ExpireCascade.
	bookings.paidDuringSweep[stale.ID] = true

	swept := newSweeper(bookings).Sweep(context.Background())

	assert.Equal(t, 0, swept)
	assert.Nil(t, stale.DeletedAt)
	assert.Equal(t, entity.BookingStatusPaid, stale.Status)
}

func TestSweep_ErrorDoesNotAbortPass(t *testing.T) {
	bookings := newSweepBookingRepo()
	bookings.add(staleBooking(time.Hour, entity.BookingStatusPending))
	bookings.add(staleBooking(2*time.Hour, entity.BookingStatusPending))
	bookings.expireErr = errors.New("connection reset")

	swept := newSweeper(bookings).Sweep(context.Background())

	// Semua gagal tapi pass selesai tanpa panic.
	assert.Equal(t, 0, swept)
}

func TestSweep_MultipleCandidates(t *testing.T) {
	bookings := newSweepBookingRepo()
	for i := 0; i < 5; i++ {
		bookings.add(staleBooking(time.Hour, entity.BookingStatusPending))
	}

	swept := newSweeper(bookings).Sweep(context.Background())

	assert.Equal(t, 5, swept)
	assert.Len(t, bookings.expired, 5)
}
