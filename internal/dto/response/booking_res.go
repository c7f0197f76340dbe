package response

import "time"

// PassengerResponse penumpang dalam detail booking.
type PassengerResponse struct {
	Name       string `json:"name"`
	SeatNumber string `json:"seat_number"`
}

// BookingResponse detail satu booking.
type BookingResponse struct {
	ID             string              `json:"id"`
	BookingCode    *string             `json:"booking_code,omitempty"`
	ScheduleID     string              `json:"schedule_id"`
	Status         string              `json:"status"`
	BuyerName      string              `json:"buyer_name"`
	BuyerPhone     string              `json:"buyer_phone"`
	BuyerEmail     string              `json:"buyer_email"`
	PassengerCount int                 `json:"passenger_count"`
	Discount       int64               `json:"discount"`
	TotalPrice     int64               `json:"total_price"`
	PaymentMethod  *string             `json:"payment_method,omitempty"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	Passengers     []PassengerResponse `json:"passengers,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// BookingListResponse list booking user dengan metadata pagination.
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Total    int               `json:"total"`
}
