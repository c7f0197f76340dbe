package response

import "time"

// PaymentResponse hasil pembukaan attempt pembayaran. PayURL / VANumber /
// QRString terisi sesuai channel yang dipilih, sisanya nil.
type PaymentResponse struct {
	AttemptID   string     `json:"attempt_id"`
	BookingID   string     `json:"booking_id"`
	BookingCode string     `json:"booking_code,omitempty"`
	OrderRef    string     `json:"order_ref"`
	Gateway     string     `json:"gateway"`
	Channel     string     `json:"channel"`
	Status      string     `json:"status"`
	GrossAmount int64      `json:"gross_amount"`
	Discount    int64      `json:"discount"`
	AdminFee    int64      `json:"admin_fee"`
	PayURL      *string    `json:"pay_url,omitempty"`
	VANumber    *string    `json:"va_number,omitempty"`
	QRString    *string    `json:"qr_string,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// PaymentStatusResponse status attempt dilihat dari sisi kita, bukan hasil
// query langsung ke gateway.
type PaymentStatusResponse struct {
	OrderRef      string     `json:"order_ref"`
	BookingID     string     `json:"booking_id"`
	Gateway       string     `json:"gateway"`
	Status        string     `json:"status"`
	BookingStatus string     `json:"booking_status"`
	GrossAmount   int64      `json:"gross_amount"`
	Discount      int64      `json:"discount"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// ResyncResponse hasil tarik ulang status dari gateway oleh admin.
type ResyncResponse struct {
	OrderRef  string `json:"order_ref"`
	Before    string `json:"before"`
	After     string `json:"after"`
	Applied   bool   `json:"applied"`
	RawStatus string `json:"raw_status"`
}
