package utils

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ==================== UUID ====================

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ==================== ORDER REF ====================

// GenerateOrderRef bikin merchant ref unik per attempt.
// Format: TRV-YYYYMMDD-HHMMSS-RANDOM. Unik per call karena dipakai
// sebagai order_ref baru setiap kali attempt dibuat ulang.
func GenerateOrderRef() string {
	now := time.Now()

	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	randomPart := fmt.Sprintf("%04d", rand.Intn(10000))

	return fmt.Sprintf("TRV-%s-%s-%s", datePart, timePart, randomPart)
}

// GenerateBookingCode bikin kode booking human-readable.
// Sekali terpasang di Booking tidak pernah diganti.
func GenerateBookingCode() string {
	now := time.Now()
	return fmt.Sprintf("BK%s%04d", now.Format("060102150405"), rand.Intn(10000))
}

// ==================== HELPERS ====================

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}
