package usecase_test

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
)

// Fake repositories in-memory. Semantik meniru lapisan pgx: not found
// dikembalikan sebagai nil tanpa error, Find mengembalikan salinan.

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*entity.Booking
	restored []uuid.UUID
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*entity.Booking)}
}

func (f *fakeBookingRepo) put(b *entity.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *b
	f.bookings[b.ID] = &clone
}

func (f *fakeBookingRepo) get(id uuid.UUID) *entity.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil
	}
	clone := *b
	return &clone
}

func (f *fakeBookingRepo) Create(_ context.Context, b *entity.Booking) error {
	f.put(b)
	return nil
}

func (f *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	b := f.get(id)
	if b == nil || b.DeletedAt != nil {
		return nil, nil
	}
	return b, nil
}

func (f *fakeBookingRepo) FindByIDIncludingDeleted(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	return f.get(id), nil
}

func (f *fakeBookingRepo) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Booking
	for _, b := range f.bookings {
		if b.UserID == userID && b.DeletedAt == nil {
			clone := *b
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBookingRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.bookings {
		if b.UserID == userID && b.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookingRepo) Update(_ context.Context, b *entity.Booking) error {
	f.put(b)
	return nil
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		b.Status = status
	}
	return nil
}

func (f *fakeBookingRepo) SumPassengersBySchedule(_ context.Context, scheduleID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, b := range f.bookings {
		if b.ScheduleID == scheduleID && b.DeletedAt == nil && b.Status != entity.BookingStatusCancelled {
			n += b.PassengerCount
		}
	}
	return n, nil
}

func (f *fakeBookingRepo) FindStaleUnpaid(_ context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Booking
	for _, b := range f.bookings {
		if b.DeletedAt == nil && !b.IsPaid() && b.Status == entity.BookingStatusPending && b.CreatedAt.Before(cutoff) {
			clone := *b
			out = append(out, &clone)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBookingRepo) ExpireCascade(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.DeletedAt != nil || b.IsPaid() {
		return false, nil
	}
	b.Status = entity.BookingStatusExpired
	b.DeletedAt = &now
	return true, nil
}

func (f *fakeBookingRepo) RestoreCascade(_ context.Context, bookingID, attemptID uuid.UUID, paidAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return nil
	}
	b.DeletedAt = nil
	b.Status = entity.BookingStatusPaid
	if b.PaidAt == nil {
		b.PaidAt = &paidAt
	}
	f.restored = append(f.restored, attemptID)
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*entity.PaymentAttempt
	bookings *fakeBookingRepo
	retired  []uuid.UUID
}

func newFakePaymentRepo(bookings *fakeBookingRepo) *fakePaymentRepo {
	return &fakePaymentRepo{
		attempts: make(map[uuid.UUID]*entity.PaymentAttempt),
		bookings: bookings,
	}
}

func (f *fakePaymentRepo) put(a *entity.PaymentAttempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *a
	f.attempts[a.ID] = &clone
}

func (f *fakePaymentRepo) Create(_ context.Context, a *entity.PaymentAttempt) error {
	f.put(a)
	return nil
}

func (f *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok || a.DeletedAt != nil {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (f *fakePaymentRepo) FindByOrderRef(_ context.Context, orderRef string) (*entity.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.OrderRef == orderRef {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) FindActiveByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *entity.PaymentAttempt
	for _, a := range f.attempts {
		if a.BookingID != bookingID || a.DeletedAt != nil {
			continue
		}
		if a.Status != entity.PaymentStatusPending && a.Status != entity.PaymentStatusPaid {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (f *fakePaymentRepo) FindLatestByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *entity.PaymentAttempt
	for _, a := range f.attempts {
		if a.BookingID != bookingID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (f *fakePaymentRepo) Update(_ context.Context, a *entity.PaymentAttempt) error {
	f.put(a)
	return nil
}

func (f *fakePaymentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.attempts[id]; ok {
		a.Status = status
	}
	return nil
}

func (f *fakePaymentRepo) Retire(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.attempts[id]; ok && a.Status != entity.PaymentStatusPaid {
		now := time.Now()
		a.Status = entity.PaymentStatusExpired
		a.DeletedAt = &now
		f.retired = append(f.retired, id)
	}
	return nil
}

func (f *fakePaymentRepo) CreateWithBooking(_ context.Context, a *entity.PaymentAttempt, b *entity.Booking) error {
	f.put(a)
	f.bookings.put(b)
	return nil
}

// ApplyTransition meniru guard SQL: attempt yang sudah di-soft-delete
// hanya boleh ditransisikan ke paid, dan transisi paid menghapus deleted_at.
func (f *fakePaymentRepo) ApplyTransition(_ context.Context, a *entity.PaymentAttempt, b *entity.Booking) error {
	f.mu.Lock()
	stored, ok := f.attempts[a.ID]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("payment attempt %s not found", a.ID.String())
	}
	if stored.DeletedAt != nil && a.Status != entity.PaymentStatusPaid {
		f.mu.Unlock()
		return fmt.Errorf("payment attempt %s not found", a.ID.String())
	}
	f.mu.Unlock()

	clone := *a
	if clone.Status == entity.PaymentStatusPaid {
		clone.DeletedAt = nil
	}
	f.put(&clone)
	f.bookings.put(b)
	return nil
}

type fakeScheduleRepo struct {
	schedules map[uuid.UUID]*entity.Schedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: make(map[uuid.UUID]*entity.Schedule)}
}

func (f *fakeScheduleRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

type fakePromoRepo struct {
	promos map[string]*entity.Promo
}

func newFakePromoRepo() *fakePromoRepo {
	return &fakePromoRepo{promos: make(map[string]*entity.Promo)}
}

func (f *fakePromoRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Promo, error) {
	for _, p := range f.promos {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakePromoRepo) FindByCode(_ context.Context, code string) (*entity.Promo, error) {
	p, ok := f.promos[code]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

type fakePassengerRepo struct {
	mu         sync.Mutex
	passengers map[uuid.UUID][]*entity.Passenger
}

func newFakePassengerRepo() *fakePassengerRepo {
	return &fakePassengerRepo{passengers: make(map[uuid.UUID][]*entity.Passenger)}
}

func (f *fakePassengerRepo) CreateBatch(_ context.Context, passengers []*entity.Passenger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range passengers {
		clone := *p
		f.passengers[p.BookingID] = append(f.passengers[p.BookingID], &clone)
	}
	return nil
}

func (f *fakePassengerRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*entity.Passenger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passengers[bookingID], nil
}

// fakeGateway adapter yang bisa diprogram per test.
type fakeGateway struct {
	name        string
	createFn    func(ctx context.Context, req gateway.CreateRequest) (*gateway.CreateResult, error)
	parseFn     func(payload []byte, headers http.Header) (*gateway.WebhookResult, error)
	statusFn    func(ctx context.Context, orderRef string) (*gateway.StatusResult, error)
	createCalls int
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) CreatePayment(ctx context.Context, req gateway.CreateRequest) (*gateway.CreateResult, error) {
	f.createCalls++
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	payURL := "https://pay.example/" + req.OrderRef
	return &gateway.CreateResult{
		GatewayTxnID: "txn-" + req.OrderRef,
		PayURL:       &payURL,
		ExpiresAt:    req.ExpiresAt,
	}, nil
}

func (f *fakeGateway) ParseWebhook(payload []byte, headers http.Header) (*gateway.WebhookResult, error) {
	if f.parseFn != nil {
		return f.parseFn(payload, headers)
	}
	return nil, gateway.ErrInvalidSignature
}

func (f *fakeGateway) QueryStatus(ctx context.Context, orderRef string) (*gateway.StatusResult, error) {
	if f.statusFn != nil {
		return f.statusFn(ctx, orderRef)
	}
	return &gateway.StatusResult{Status: entity.PaymentStatusPending}, nil
}

type fixture struct {
	bookings   *fakeBookingRepo
	payments   *fakePaymentRepo
	schedules  *fakeScheduleRepo
	promos     *fakePromoRepo
	passengers *fakePassengerRepo
	repo       *repository.Repository
}

func newFixture() *fixture {
	bookings := newFakeBookingRepo()
	payments := newFakePaymentRepo(bookings)
	schedules := newFakeScheduleRepo()
	promos := newFakePromoRepo()
	passengers := newFakePassengerRepo()

	return &fixture{
		bookings:   bookings,
		payments:   payments,
		schedules:  schedules,
		promos:     promos,
		passengers: passengers,
		repo: &repository.Repository{
			Booking:   bookings,
			Payment:   payments,
			Schedule:  schedules,
			Promo:     promos,
			Passenger: passengers,
		},
	}
}
