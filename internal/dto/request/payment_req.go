package request

// CreatePaymentRequest request pembukaan attempt pembayaran untuk satu booking.
type CreatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
	Gateway   string `json:"gateway" validate:"required,oneof=midtrans tripay duitku"`
	Channel   string `json:"channel" validate:"required"`
	PromoCode string `json:"promo_code" validate:"omitempty,min=3,max=32"`
}

// ResyncRequest request admin untuk menarik ulang status dari gateway.
type ResyncRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
}

// RestoreRequest request admin untuk mengembalikan booking paid yang
// ter-expire oleh sweeper.
type RestoreRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
}
