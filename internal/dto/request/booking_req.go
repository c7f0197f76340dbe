package request

// PassengerRequest data satu penumpang dalam booking.
type PassengerRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	IdentityNo string `json:"identity_no" validate:"omitempty,min=8,max=32"`
	SeatNumber string `json:"seat_number" validate:"required,min=1,max=8"`
}

// CreateBookingRequest request pembuatan booking baru, belum termasuk pembayaran.
type CreateBookingRequest struct {
	ScheduleID string             `json:"schedule_id" validate:"required,uuid4"`
	BuyerName  string             `json:"buyer_name" validate:"required,min=2,max=100"`
	BuyerPhone string             `json:"buyer_phone" validate:"required,min=8,max=20"`
	BuyerEmail string             `json:"buyer_email" validate:"required,email"`
	Passengers []PassengerRequest `json:"passengers" validate:"required,min=1,max=10,dive"`
}

// PaginationRequest query param list endpoint.
type PaginationRequest struct {
	Page  int `json:"page" validate:"omitempty,min=1"`
	Limit int `json:"limit" validate:"omitempty,min=1,max=100"`
}
