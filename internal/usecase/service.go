package usecase

import (
	"go.uber.org/zap"

	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"
)

type Service struct {
	Booking BookingService
	Payment PaymentService
	Webhook WebhookService
}

func NewService(repo *repository.Repository, gateways *gateway.Registry, cfg *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Booking: NewBookingService(repo, log),
		Payment: NewPaymentService(repo, gateways, cfg, log),
		Webhook: NewWebhookService(repo, gateways, log),
	}
}
