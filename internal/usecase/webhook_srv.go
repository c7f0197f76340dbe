package usecase

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
)

type WebhookService interface {
	HandleWebhook(ctx context.Context, gatewayID string, payload []byte, headers http.Header) error
}

type webhookService struct {
	repo     *repository.Repository
	gateways *gateway.Registry
	log      *zap.Logger
}

func NewWebhookService(repo *repository.Repository, gateways *gateway.Registry, log *zap.Logger) WebhookService {
	return &webhookService{
		repo:     repo,
		gateways: gateways,
		log:      log,
	}
}

// HandleWebhook memproses satu notifikasi async dari provider. Provider
// me-retry kalau dibalas non-2xx, jadi semua kegagalan selain integritas
// data dipetakan ke error yang handler terjemahkan tetap jadi 200:
// signature palsu dan order ref tak dikenal cuma dicatat, tidak diulang.
func (s *webhookService) HandleWebhook(ctx context.Context, gatewayID string, payload []byte, headers http.Header) error {
	gw, ok := s.gateways.Get(gatewayID)
	if !ok {
		s.log.Warn("Webhook for unknown gateway", zap.String("gateway", gatewayID))
		return ErrPaymentNotFound
	}

	result, err := gw.ParseWebhook(payload, headers)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			s.log.Warn("Webhook signature rejected",
				zap.String("gateway", gatewayID),
			)
			return ErrInvalidSignature
		}
		s.log.Warn("Webhook payload unparseable",
			zap.Error(err),
			zap.String("gateway", gatewayID),
		)
		return ErrValidation
	}

	attempt, err := s.repo.Payment.FindByOrderRef(ctx, result.OrderRef)
	if err != nil {
		return ErrDataIntegrity
	}
	if attempt == nil {
		// Order ref bukan punya kita atau dari environment lain.
		s.log.Warn("Webhook for unknown order ref",
			zap.String("gateway", gatewayID),
			zap.String("order_ref", result.OrderRef),
		)
		return ErrPaymentNotFound
	}

	if attempt.Gateway != gatewayID {
		s.log.Warn("Webhook gateway mismatch",
			zap.String("order_ref", result.OrderRef),
			zap.String("expected", attempt.Gateway),
			zap.String("got", gatewayID),
		)
		return ErrValidation
	}

	booking, err := s.repo.Booking.FindByIDIncludingDeleted(ctx, attempt.BookingID)
	if err != nil {
		return ErrDataIntegrity
	}
	if booking == nil {
		return ErrDataIntegrity
	}

	_, err = applyObserved(ctx, s.repo, s.log, attempt, booking, observedUpdate{
		Status:         result.Status,
		GatewayTxnID:   result.GatewayTxnID,
		PaidAt:         result.PaidAt,
		AmountObserved: result.AmountObserved,
		Raw:            result.Raw,
		Source:         "webhook",
	})
	return err
}
