package repositories

import (
	"context"
	"database/sql"

	"intihelp/internal/models"
)

type couponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) Create(ctx context.Context, c *models.Coupon) error {
	const q = `
		INSERT INTO coupons (code, discount_type, discount_value, is_active, valid_until)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, q, c.Code, c.DiscountType, c.DiscountValue, c.IsActive, c.ValidUntil).
		Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	const q = `
		SELECT id, code, discount_type, discount_value, is_active, valid_until, created_at
		FROM coupons WHERE code = $1`
	var c models.Coupon
	err := r.db.QueryRowContext(ctx, q, code).Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.IsActive, &c.ValidUntil, &c.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *couponRepository) Deactivate(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE coupons SET is_active = FALSE WHERE code = $1`, code)
	if err != nil {
		return err
	}
	return expectOne(res)
}
