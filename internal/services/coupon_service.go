package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"intihelp/internal/models"
	"intihelp/internal/pricing"
	"intihelp/internal/repositories"
)

type CreateCouponInput struct {
	Code          string              `json:"code" binding:"required"`
	DiscountType  models.DiscountType `json:"discount_type" binding:"required"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	ValidUntil    time.Time           `json:"valid_until" binding:"required"`
}

type CouponService interface {
	// Discount returns the raw discount the coupon grants on total.
	Discount(ctx context.Context, code string, total decimal.Decimal) (decimal.Decimal, *models.Coupon, error)
	Create(ctx context.Context, in CreateCouponInput) (*models.Coupon, error)
	Deactivate(ctx context.Context, code string) error
}

type couponService struct {
	repo repositories.CouponRepository
	now  func() time.Time
}

func NewCouponService(repo repositories.CouponRepository) CouponService {
	return &couponService{repo: repo, now: time.Now}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *couponService) Discount(ctx context.Context, code string, total decimal.Decimal) (decimal.Decimal, *models.Coupon, error) {
	c, err := s.repo.GetByCode(ctx, normalizeCode(code))
	if errors.Is(err, repositories.ErrNotFound) {
		return decimal.Zero, nil, pricing.ErrCouponInvalid
	}
	if err != nil {
		return decimal.Zero, nil, err
	}
	d, err := pricing.CouponDiscount(*c, total, s.now())
	if err != nil {
		return decimal.Zero, nil, err
	}
	return d, c, nil
}

func (s *couponService) Create(ctx context.Context, in CreateCouponInput) (*models.Coupon, error) {
	code := normalizeCode(in.Code)
	if code == "" {
		return nil, invalid("code is required")
	}
	if in.DiscountType != models.DiscountPercentage && in.DiscountType != models.DiscountFixed {
		return nil, invalid("discount_type must be percentage or fixed")
	}
	if !in.DiscountValue.IsPositive() {
		return nil, invalid("discount_value must be positive")
	}
	if in.DiscountType == models.DiscountPercentage && in.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, invalid("percentage cannot exceed 100")
	}
	if !in.ValidUntil.After(s.now()) {
		return nil, invalid("valid_until must be in the future")
	}
	c := &models.Coupon{
		Code:          code,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		IsActive:      true,
		ValidUntil:    in.ValidUntil,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *couponService) Deactivate(ctx context.Context, code string) error {
	return s.repo.Deactivate(ctx, normalizeCode(code))
}
