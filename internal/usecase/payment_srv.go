package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/internal/pricing"
	"travel-booking/pkg/utils"
)

type PaymentService interface {
	RequestPayment(ctx context.Context, userID uuid.UUID, req request.CreatePaymentRequest) (*response.PaymentResponse, error)
	CheckStatus(ctx context.Context, userID uuid.UUID, orderRef string) (*response.PaymentStatusResponse, error)
	ResyncStatus(ctx context.Context, bookingID uuid.UUID) (*response.ResyncResponse, error)
	RestoreBooking(ctx context.Context, bookingID uuid.UUID) error
}

type paymentService struct {
	repo     *repository.Repository
	gateways *gateway.Registry
	cfg      *utils.Config
	log      *zap.Logger
}

func NewPaymentService(repo *repository.Repository, gateways *gateway.Registry, cfg *utils.Config, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:     repo,
		gateways: gateways,
		cfg:      cfg,
		log:      log,
	}
}

// RequestPayment membuka attempt pembayaran baru untuk booking.
// Idempotent terhadap double-click: attempt pending yang masih hidup
// dikembalikan lagi, tidak bikin objek baru di gateway.
func (s *paymentService) RequestPayment(ctx context.Context, userID uuid.UUID, req request.CreatePaymentRequest) (*response.PaymentResponse, error) {
	bookingID, err := utils.ParseUUID(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking id", ErrValidation)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, ErrDataIntegrity
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	// Customer cuma boleh bayar booking miliknya; admin (uuid.Nil) bebas.
	if userID != uuid.Nil && booking.UserID != userID {
		return nil, ErrBookingNotFound
	}

	if booking.IsPaid() {
		return nil, fmt.Errorf("%w: booking already paid", ErrValidation)
	}
	if booking.Status == entity.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: booking cancelled", ErrValidation)
	}

	gw, ok := s.gateways.Get(req.Gateway)
	if !ok {
		return nil, fmt.Errorf("%w: unknown gateway %q", ErrValidation, req.Gateway)
	}

	now := time.Now()

	quote, promoID, err := s.quoteBooking(ctx, booking, req.PromoCode, now)
	if err != nil {
		return nil, err
	}

	// Attempt pending yang masih hidup dipakai ulang, tapi cuma kalau
	// harganya masih sama. Promo atau tarif yang berubah bikin attempt
	// lama dipensiunkan dan dibuka ulang di nominal baru; yang kadaluarsa
	// dipensiunkan juga supaya order ref baru bisa dibuka.
	if existing, err := s.repo.Payment.FindActiveByBookingID(ctx, booking.ID); err != nil {
		return nil, ErrDataIntegrity
	} else if existing != nil {
		if existing.Status == entity.PaymentStatusPaid {
			return nil, fmt.Errorf("%w: booking already paid", ErrValidation)
		}
		if !existing.IsExpired(now) && existing.GrossAmount == quote.FinalTotal {
			s.log.Info("Reusing live payment attempt",
				zap.String("order_ref", existing.OrderRef),
				zap.String("booking_id", booking.ID.String()),
			)
			return s.toPaymentResponse(existing, booking, req.Channel), nil
		}
		if !existing.IsExpired(now) {
			s.log.Info("Pricing changed, retiring live attempt",
				zap.String("order_ref", existing.OrderRef),
				zap.String("booking_id", booking.ID.String()),
				zap.Int64("old_amount", existing.GrossAmount),
				zap.Int64("new_amount", quote.FinalTotal),
			)
		}
		if err := s.repo.Payment.Retire(ctx, existing.ID); err != nil {
			return nil, ErrDataIntegrity
		}
	}

	attempt := &entity.PaymentAttempt{
		BookingID:   booking.ID,
		Gateway:     gw.Name(),
		OrderRef:    utils.GenerateOrderRef(),
		GrossAmount: quote.FinalTotal,
		Status:      entity.PaymentStatusPending,
		ExpiresAt:   now.Add(s.cfg.Payment.AttemptTTL),
	}
	attempt.ID = utils.GenerateUUID()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now

	// Call gateway di luar transaksi database. Transport error di-retry
	// sekali setelah backoff; error validasi provider langsung menyerah.
	result, err := s.createWithRetry(ctx, gw, gateway.CreateRequest{
		OrderRef:      attempt.OrderRef,
		Amount:        quote.FinalTotal,
		ItemPrice:     quote.ItemPrice(),
		AdminFee:      quote.AdminFee,
		Channel:       req.Channel,
		Description:   fmt.Sprintf("Travel booking %s", booking.ID.String()),
		CustomerName:  booking.BuyerName,
		CustomerEmail: booking.BuyerEmail,
		CustomerPhone: booking.BuyerPhone,
		ExpiresAt:     attempt.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return nil, ErrGatewayUnavailable
		}
		s.log.Error("Gateway rejected payment creation",
			zap.Error(err),
			zap.String("gateway", gw.Name()),
			zap.String("order_ref", attempt.OrderRef),
		)
		return nil, fmt.Errorf("%w: gateway rejected request", ErrValidation)
	}

	attempt.GatewayTxnID = &result.GatewayTxnID
	attempt.PayURL = result.PayURL
	attempt.VANumber = result.VANumber
	attempt.QRString = result.QRString
	attempt.RawPayload = result.Raw
	if !result.ExpiresAt.IsZero() {
		attempt.ExpiresAt = result.ExpiresAt
	}

	// Booking code dibuat lazy di pembayaran pertama, setelah itu immutable.
	if booking.BookingCode == nil {
		code := utils.GenerateBookingCode()
		booking.BookingCode = &code
	}
	booking.PromoID = promoID
	booking.Discount = quote.Discount
	booking.TotalPrice = quote.FinalTotal
	booking.Status = entity.BookingStatusPending
	method := gw.Name()
	booking.PaymentMethod = &method

	if err := s.repo.Payment.CreateWithBooking(ctx, attempt, booking); err != nil {
		// Objek pembayaran sudah terbuka di provider tapi kita gagal
		// mencatatnya. Biarkan expire di sana, jangan kasih instruksi
		// bayar yang tidak kita track.
		s.log.Error("Failed to persist payment attempt, orphaning gateway object",
			zap.Error(err),
			zap.String("order_ref", attempt.OrderRef),
		)
		return nil, ErrDataIntegrity
	}

	s.log.Info("Payment attempt created",
		zap.String("order_ref", attempt.OrderRef),
		zap.String("booking_id", booking.ID.String()),
		zap.String("gateway", gw.Name()),
		zap.Int64("gross_amount", attempt.GrossAmount),
	)

	return s.toPaymentResponse(attempt, booking, req.Channel), nil
}

// CheckStatus status attempt dari sisi kita. Attempt pending yang sudah
// lewat ExpiresAt ditransisikan lazy di sini, tidak menunggu sweeper.
func (s *paymentService) CheckStatus(ctx context.Context, userID uuid.UUID, orderRef string) (*response.PaymentStatusResponse, error) {
	attempt, err := s.repo.Payment.FindByOrderRef(ctx, orderRef)
	if err != nil {
		return nil, ErrDataIntegrity
	}
	if attempt == nil {
		return nil, ErrPaymentNotFound
	}

	booking, err := s.repo.Booking.FindByIDIncludingDeleted(ctx, attempt.BookingID)
	if err != nil {
		return nil, ErrDataIntegrity
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	// Order ref bukan rahasia; user lain tidak boleh ngintip status
	// pembayaran orang. Admin (uuid.Nil) bebas.
	if userID != uuid.Nil && booking.UserID != userID {
		return nil, ErrPaymentNotFound
	}

	if attempt.Status == entity.PaymentStatusPending && attempt.IsExpired(time.Now()) {
		if _, err := applyObserved(ctx, s.repo, s.log, attempt, booking, observedUpdate{
			Status: entity.PaymentStatusExpired,
			Source: "lazy-expiry",
		}); err != nil {
			return nil, err
		}
	}

	expiresAt := attempt.ExpiresAt
	return &response.PaymentStatusResponse{
		OrderRef:      attempt.OrderRef,
		BookingID:     booking.ID.String(),
		Gateway:       attempt.Gateway,
		Status:        string(attempt.Status),
		BookingStatus: string(booking.Status),
		GrossAmount:   attempt.GrossAmount,
		Discount:      booking.Discount,
		PaidAt:        attempt.PaidAt,
		ExpiresAt:     &expiresAt,
	}, nil
}

// ResyncStatus menarik status langsung dari gateway dan menyetarakan state
// lokal. Jalur perbaikan manual saat webhook hilang.
func (s *paymentService) ResyncStatus(ctx context.Context, bookingID uuid.UUID) (*response.ResyncResponse, error) {
	booking, err := s.repo.Booking.FindByIDIncludingDeleted(ctx, bookingID)
	if err != nil {
		return nil, ErrDataIntegrity
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	attempt, err := s.repo.Payment.FindLatestByBookingID(ctx, bookingID)
	if err != nil {
		return nil, ErrDataIntegrity
	}
	if attempt == nil {
		return nil, ErrPaymentNotFound
	}

	gw, ok := s.gateways.Get(attempt.Gateway)
	if !ok {
		return nil, fmt.Errorf("%w: gateway %q not configured", ErrValidation, attempt.Gateway)
	}

	status, err := gw.QueryStatus(ctx, attempt.OrderRef)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return nil, ErrGatewayUnavailable
		}
		return nil, fmt.Errorf("%w: status query rejected", ErrValidation)
	}

	before := attempt.Status
	applied, err := applyObserved(ctx, s.repo, s.log, attempt, booking, observedUpdate{
		Status:         status.Status,
		PaidAt:         status.PaidAt,
		AmountObserved: status.AmountObserved,
		Raw:            status.Raw,
		Source:         "resync",
	})
	if err != nil {
		return nil, err
	}

	return &response.ResyncResponse{
		OrderRef:  attempt.OrderRef,
		Before:    string(before),
		After:     string(attempt.Status),
		Applied:   applied,
		RawStatus: string(status.Status),
	}, nil
}

// RestoreBooking mengembalikan booking lunas yang salah disapu sweeper.
// Wajib dikonfirmasi dulu ke gateway; tanpa bukti paid dari provider
// tidak ada restore buta.
func (s *paymentService) RestoreBooking(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.repo.Booking.FindByIDIncludingDeleted(ctx, bookingID)
	if err != nil {
		return ErrDataIntegrity
	}
	if booking == nil {
		return ErrBookingNotFound
	}
	if !booking.IsDeleted() {
		return fmt.Errorf("%w: booking is not swept", ErrValidation)
	}

	attempt, err := s.repo.Payment.FindLatestByBookingID(ctx, bookingID)
	if err != nil {
		return ErrDataIntegrity
	}
	if attempt == nil {
		return ErrPaymentNotFound
	}

	gw, ok := s.gateways.Get(attempt.Gateway)
	if !ok {
		return fmt.Errorf("%w: gateway %q not configured", ErrValidation, attempt.Gateway)
	}

	status, err := gw.QueryStatus(ctx, attempt.OrderRef)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return ErrGatewayUnavailable
		}
		return fmt.Errorf("%w: status query rejected", ErrValidation)
	}
	if status.Status != entity.PaymentStatusPaid {
		return fmt.Errorf("%w: gateway reports %q, not paid", ErrValidation, status.Status)
	}

	paidAt := time.Now()
	if status.PaidAt != nil {
		paidAt = *status.PaidAt
	}

	if err := s.repo.Booking.RestoreCascade(ctx, bookingID, attempt.ID, paidAt); err != nil {
		return ErrDataIntegrity
	}

	s.log.Info("Swept booking restored",
		zap.String("booking_id", bookingID.String()),
		zap.String("order_ref", attempt.OrderRef),
	)
	return nil
}

func (s *paymentService) createWithRetry(ctx context.Context, gw gateway.Gateway, req gateway.CreateRequest) (*gateway.CreateResult, error) {
	result, err := gw.CreatePayment(ctx, req)
	if err == nil || !errors.Is(err, gateway.ErrUnavailable) {
		return result, err
	}

	s.log.Warn("Gateway unreachable, retrying once",
		zap.Error(err),
		zap.String("gateway", gw.Name()),
		zap.String("order_ref", req.OrderRef),
		zap.Duration("backoff", s.cfg.Payment.RetryBackoff),
	)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, ctx.Err())
	case <-time.After(s.cfg.Payment.RetryBackoff):
	}

	return gw.CreatePayment(ctx, req)
}

// quoteBooking hitung ulang harga dari state terkini. Promo dari request
// menggantikan promo yang tersimpan; promo kadaluarsa menolak request,
// bukan diam-diam dihitung tanpa potongan.
func (s *paymentService) quoteBooking(ctx context.Context, booking *entity.Booking, promoCode string, now time.Time) (pricing.Quote, *uuid.UUID, error) {
	schedule, err := s.repo.Schedule.FindByID(ctx, booking.ScheduleID)
	if err != nil {
		return pricing.Quote{}, nil, ErrDataIntegrity
	}
	if schedule == nil {
		return pricing.Quote{}, nil, fmt.Errorf("%w: schedule missing", ErrValidation)
	}

	var promo *entity.Promo
	switch {
	case promoCode != "":
		promo, err = s.repo.Promo.FindByCode(ctx, promoCode)
		if err != nil {
			return pricing.Quote{}, nil, ErrDataIntegrity
		}
		if promo == nil || !promo.IsValid(now) {
			return pricing.Quote{}, nil, fmt.Errorf("%w: promo code invalid or expired", ErrValidation)
		}
	case booking.PromoID != nil:
		promo, err = s.repo.Promo.FindByID(ctx, *booking.PromoID)
		if err != nil {
			return pricing.Quote{}, nil, ErrDataIntegrity
		}
		if promo != nil && !promo.IsValid(now) {
			promo = nil
		}
	}

	quote := pricing.Calculate(schedule.Price, booking.PassengerCount, s.cfg.Payment.AdminFee, promo)
	if err := quote.Validate(); err != nil {
		s.log.Error("Pricing invariant violated",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return pricing.Quote{}, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var promoID *uuid.UUID
	if promo != nil {
		promoID = &promo.ID
	}
	return quote, promoID, nil
}

func (s *paymentService) toPaymentResponse(attempt *entity.PaymentAttempt, booking *entity.Booking, channel string) *response.PaymentResponse {
	res := &response.PaymentResponse{
		AttemptID:   attempt.ID.String(),
		BookingID:   booking.ID.String(),
		OrderRef:    attempt.OrderRef,
		Gateway:     attempt.Gateway,
		Channel:     channel,
		Status:      string(attempt.Status),
		GrossAmount: attempt.GrossAmount,
		Discount:    booking.Discount,
		AdminFee:    s.cfg.Payment.AdminFee,
		PayURL:      attempt.PayURL,
		VANumber:    attempt.VANumber,
		QRString:    attempt.QRString,
	}
	if booking.BookingCode != nil {
		res.BookingCode = *booking.BookingCode
	}
	expiresAt := attempt.ExpiresAt
	res.ExpiresAt = &expiresAt
	return res
}
