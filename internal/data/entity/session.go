package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session dikelola auth service eksternal, di sini hanya dibaca
// oleh middleware untuk resolve user dari bearer token.
type Session struct {
	BaseSimple
	UserID    uuid.UUID  `db:"user_id"`
	Token     uuid.UUID  `db:"token"`
	UserAgent *string    `db:"user_agent"`
	IPAddress *string    `db:"ip_address"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

// Active cek session masih dipakai: belum expired dan belum direvoke.
func (s *Session) Active(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	return now.Before(s.ExpiresAt)
}
