package repository

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PromoRepository read-only: promo dikelola subsistem katalog.
type PromoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Promo, error)
	FindByCode(ctx context.Context, code string) (*entity.Promo, error)
}

type promoRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPromoRepository(db database.PgxIface, log *zap.Logger) PromoRepository {
	return &promoRepository{
		db:  db,
		log: log.With(zap.String("repository", "promo")),
	}
}

const promoColumns = `id, code, potongan, valid_from, valid_until, is_active, created_at, updated_at, deleted_at`

func scanPromo(row pgx.Row) (*entity.Promo, error) {
	var p entity.Promo
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Potongan,
		&p.ValidFrom,
		&p.ValidUntil,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promoRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Promo, error) {
	query := `SELECT ` + promoColumns + ` FROM promos WHERE id = $1 AND deleted_at IS NULL`

	promo, err := scanPromo(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find promo by ID",
			zap.Error(err),
			zap.String("promo_id", id.String()),
		)
		return nil, fmt.Errorf("find promo by ID %s: %w", id.String(), err)
	}

	return promo, nil
}

func (r *promoRepository) FindByCode(ctx context.Context, code string) (*entity.Promo, error) {
	query := `SELECT ` + promoColumns + ` FROM promos WHERE code = $1 AND deleted_at IS NULL`

	promo, err := scanPromo(r.db.QueryRow(ctx, query, code))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find promo by code",
			zap.Error(err),
			zap.String("code", code),
		)
		return nil, fmt.Errorf("find promo by code %s: %w", code, err)
	}

	return promo, nil
}
