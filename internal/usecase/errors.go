package usecase

import (
	"errors"
)

// Taksonomi error subsistem payment. Semua fault gateway dan database
// diterjemahkan ke salah satu dari ini di boundary usecase; body error
// provider tidak pernah bocor ke end user, cuma masuk log.
var (
	// ErrBookingNotFound: booking tidak ada atau sudah di-soft-delete.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrPaymentNotFound: attempt dengan order ref itu tidak ada.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrValidation: input jelek atau pre-check amount gagal. Tidak di-retry.
	ErrValidation = errors.New("validation failed")

	// ErrGatewayUnavailable: provider tidak bisa dihubungi setelah retry internal.
	// Retryable untuk caller.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable, please retry")

	// ErrInvalidSignature: webhook tidak terautentikasi. Di-drop setelah log,
	// provider tetap dapat acknowledgment.
	ErrInvalidSignature = errors.New("webhook signature invalid")

	// ErrDataIntegrity: commit transaksi gagal atau constraint violation.
	// Fatal untuk operasi berjalan, tidak ada partial state.
	ErrDataIntegrity = errors.New("data integrity fault")
)
