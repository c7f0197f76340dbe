package wire

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"travel-booking/internal/adaptor"
	"travel-booking/internal/data/repository"
	"travel-booking/pkg/middleware"
	"travel-booking/pkg/utils"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		// POST /api/payment - Open payment attempt for a booking
		r.Post("/api/payment", paymentHandler.CreatePayment)

		// GET /api/payment/status/{orderRef} - Check payment status
		r.Get("/api/payment/status/{orderRef}", paymentHandler.PaymentStatus)
	})

	// ==================== PUBLIC ROUTES ====================
	// Webhook diautentikasi lewat signature di payload, bukan session.
	r.Post("/api/payment/webhook/{gateway}", paymentHandler.Webhook)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/payments", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))
		r.Use(middleware.Admin(repo.User, log))

		// POST /api/admin/payments/resync - Pull status from gateway
		r.Post("/resync", paymentHandler.Resync)

		// POST /api/admin/payments/restore - Restore wrongly swept booking
		r.Post("/restore", paymentHandler.Restore)
	})
}
