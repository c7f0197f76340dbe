package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base untuk row dengan soft delete. Sweeper menandai booking expired
// dengan set deleted_at, jadi helper IsDeleted dipakai di alur restore.
type Base struct {
	ID        uuid.UUID  `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

func (b *Base) IsDeleted() bool {
	return b.DeletedAt != nil
}

type BaseSimple struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}
