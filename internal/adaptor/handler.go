package adaptor

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"
)

type Handler struct {
	Booking *BookingHandler
	Payment *PaymentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Booking, log),
		Payment: NewPaymentHandler(service.Payment, service.Webhook, log),
	}
}

// handleServiceError memetakan sentinel usecase ke status HTTP.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("operation", operation),
	}

	switch {
	case errors.Is(err, usecase.ErrBookingNotFound), errors.Is(err, usecase.ErrPaymentNotFound):
		log.Warn(operation+" failed - not found", fields...)
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrValidation):
		log.Warn(operation+" failed - validation", fields...)
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrGatewayUnavailable):
		log.Error(operation+" failed - gateway unavailable", fields...)
		utils.ResponseBadGateway(w, err.Error())

	default:
		log.Error(operation+" failed", fields...)
		utils.ResponseInternalError(w, "Internal server error")
	}
}
