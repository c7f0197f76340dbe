package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"travel-booking/internal/dto/request"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"
)

// Batas ukuran body webhook, provider tidak pernah kirim sebesar ini.
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	service usecase.PaymentService
	webhook usecase.WebhookService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, webhook usecase.WebhookService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		webhook: webhook,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreatePayment handles POST /api/payment (protected)
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.RequestPayment(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "create payment")
		return
	}

	utils.ResponseCreated(w, "success", payment)
}

// PaymentStatus handles GET /api/payment/status/{orderRef} (protected)
func (h *PaymentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	orderRef := chi.URLParam(r, "orderRef")
	if orderRef == "" {
		utils.ResponseBadRequest(w, "Order ref is required", nil)
		return
	}

	status, err := h.service.CheckStatus(r.Context(), userID, orderRef)
	if err != nil {
		handleServiceError(w, h.log, err, "payment status")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}

// Webhook handles POST /api/payment/webhook/{gateway} (public).
// Selalu 200 kecuali fault internal: balas non-2xx bikin provider
// me-retry notifikasi yang memang kita tolak (signature palsu, order
// ref asing), dan retry itu tidak akan pernah berhasil.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	gatewayID := chi.URLParam(r, "gateway")

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Cannot read body", nil)
		return
	}

	err = h.webhook.HandleWebhook(r.Context(), gatewayID, payload, r.Header)
	if err != nil && errors.Is(err, usecase.ErrDataIntegrity) {
		// Yang ini memang layak di-retry provider.
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	utils.ResponseSuccess(w, "OK", nil)
}

// ==================== ADMIN METHODS ====================

// Resync handles POST /api/admin/payments/resync (admin only)
func (h *PaymentHandler) Resync(w http.ResponseWriter, r *http.Request) {
	var req request.ResyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	bookingID, err := utils.ParseUUID(req.BookingID)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	result, err := h.service.ResyncStatus(r.Context(), bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "resync payment")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// Restore handles POST /api/admin/payments/restore (admin only)
func (h *PaymentHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req request.RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	bookingID, err := utils.ParseUUID(req.BookingID)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	if err := h.service.RestoreBooking(r.Context(), bookingID); err != nil {
		handleServiceError(w, h.log, err, "restore booking")
		return
	}

	utils.ResponseSuccess(w, "Booking restored", nil)
}
