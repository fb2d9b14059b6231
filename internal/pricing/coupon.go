package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"intihelp/internal/models"
)

var (
	ErrCouponInactive = errors.New("coupon is not active")
	ErrCouponExpired  = errors.New("coupon has expired")
	ErrCouponInvalid  = errors.New("coupon is invalid")
)

var hundred = decimal.NewFromInt(100)

// CouponDiscount returns the raw discount a coupon grants on total. The
// result may exceed total; Quote.WithDiscount clamps it.
func CouponDiscount(c models.Coupon, total decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !c.IsActive {
		return decimal.Zero, ErrCouponInactive
	}
	if c.ValidUntil.Before(now) {
		return decimal.Zero, ErrCouponExpired
	}
	if c.DiscountValue.IsNegative() {
		return decimal.Zero, ErrCouponInvalid
	}
	switch c.DiscountType {
	case models.DiscountPercentage:
		if c.DiscountValue.GreaterThan(hundred) {
			return decimal.Zero, ErrCouponInvalid
		}
		return total.Mul(c.DiscountValue).Div(hundred), nil
	case models.DiscountFixed:
		return c.DiscountValue, nil
	}
	return decimal.Zero, ErrCouponInvalid
}
