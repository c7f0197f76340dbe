package entity

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

// User dikelola auth service eksternal; dipakai di sini hanya untuk
// scoping "my bookings" dan cek role admin.
type User struct {
	Base
	Username string   `db:"username"`
	Email    string   `db:"email"`
	Phone    *string  `db:"phone"`
	Role     UserRole `db:"role"`
	IsActive bool     `db:"is_active"`
}
