package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intihelp/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func band(id int64, c models.Criterion, min, max int, cost string) models.PriceBand {
	return models.PriceBand{ID: id, Criterion: c, MinValue: min, MaxValue: max, Cost: d(cost)}
}

func pageBands() []models.PriceBand {
	return []models.PriceBand{
		band(1, models.CriterionPages, 1, 5, "10"),
		band(2, models.CriterionPages, 6, 10, "20"),
	}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestMatchBandBoundaries(t *testing.T) {
	cases := []struct {
		pages int
		cost  string
		found bool
	}{
		{1, "10", true},
		{5, "10", true},
		{6, "20", true},
		{7, "20", true},
		{10, "20", true},
		{0, "0", false},
		{20, "0", false},
	}
	for _, tc := range cases {
		b, ok := MatchBand(pageBands(), models.CriterionPages, tc.pages)
		assert.Equal(t, tc.found, ok, "pages=%d", tc.pages)
		if ok {
			assertMoney(t, tc.cost, b.Cost)
		}
	}
}

func TestMatchBandIgnoresOtherCriteria(t *testing.T) {
	bands := []models.PriceBand{band(1, models.CriterionAI, 0, 100, "3")}
	_, ok := MatchBand(bands, models.CriterionPages, 5)
	assert.False(t, ok)
}

func TestMatchBandOverlapIsDeterministic(t *testing.T) {
	bands := []models.PriceBand{
		band(9, models.CriterionPages, 1, 10, "30"),
		band(4, models.CriterionPages, 3, 6, "15"),
		band(2, models.CriterionPages, 3, 6, "12"),
		band(1, models.CriterionPages, 4, 7, "12"),
	}
	b, ok := MatchBand(bands, models.CriterionPages, 5)
	require.True(t, ok)
	// all narrow bands have width 3; lower min wins, then lower cost
	assert.Equal(t, int64(2), b.ID)

	// order of input does not matter
	reversed := []models.PriceBand{bands[3], bands[2], bands[1], bands[0]}
	b2, _ := MatchBand(reversed, models.CriterionPages, 5)
	assert.Equal(t, b.ID, b2.ID)
}

func TestQuote(t *testing.T) {
	e := NewEngine(DefaultFeeRate)

	q := e.Quote(Input{PageCount: 5}, pageBands())
	assertMoney(t, "10", q.AssistantPrice)
	assertMoney(t, "2", q.PlatformFee)
	assertMoney(t, "12", q.Total)
	assertMoney(t, "12", q.Payable)

	q = e.Quote(Input{PageCount: 7}, pageBands())
	assertMoney(t, "20", q.AssistantPrice)

	q = e.Quote(Input{PageCount: 20}, pageBands())
	assertMoney(t, "0", q.AssistantPrice)
	assert.False(t, q.Available())
}

func TestQuoteSumsAllCriteria(t *testing.T) {
	bands := append(pageBands(),
		band(3, models.CriterionAI, 0, 10, "3"),
		band(4, models.CriterionAI, 11, 100, "1"),
		band(5, models.CriterionPlagiarism, 0, 15, "1"),
	)
	q := NewEngine(DefaultFeeRate).Quote(Input{PageCount: 8, MaxAIPercentage: 5, MaxPlagiarismPercentage: 10}, bands)
	assertMoney(t, "20", q.PagesCost)
	assertMoney(t, "3", q.AICost)
	assertMoney(t, "1", q.PlagiarismCost)
	assertMoney(t, "24", q.AssistantPrice)
	assertMoney(t, "4.8", q.PlatformFee)
	assertMoney(t, "28.8", q.Total)
}

func TestFeeIsExact(t *testing.T) {
	e := NewEngine(DefaultFeeRate)
	q := e.Quote(Input{PageCount: 1}, []models.PriceBand{band(1, models.CriterionPages, 1, 1, "14")})
	assertMoney(t, "2.80", q.PlatformFee)
	assertMoney(t, "16.80", q.Total)

	q = e.Quote(Input{PageCount: 1}, []models.PriceBand{band(1, models.CriterionPages, 1, 1, "10.01")})
	assertMoney(t, "2.002", q.PlatformFee)
	assert.Equal(t, "2.00", q.PlatformFee.StringFixed(2))
}

func TestWithDiscountClamps(t *testing.T) {
	q := Quote{Total: d("3")}.WithDiscount(d("5"))
	assertMoney(t, "0", q.Payable)
	assertMoney(t, "3", q.Discount)

	q = Quote{Total: d("100")}.WithDiscount(d("-1"))
	assertMoney(t, "100", q.Payable)
}

func TestCouponDiscount(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	active := models.Coupon{IsActive: true, ValidUntil: now.Add(time.Hour)}

	pct := active
	pct.DiscountType, pct.DiscountValue = models.DiscountPercentage, d("10")
	disc, err := CouponDiscount(pct, d("100"), now)
	require.NoError(t, err)
	assertMoney(t, "10", disc)
	assertMoney(t, "90", Quote{Total: d("100")}.WithDiscount(disc).Payable)

	flat := active
	flat.DiscountType, flat.DiscountValue = models.DiscountFixed, d("5")
	disc, err = CouponDiscount(flat, d("3"), now)
	require.NoError(t, err)
	assertMoney(t, "0", Quote{Total: d("3")}.WithDiscount(disc).Payable)

	expired := pct
	expired.ValidUntil = now.Add(-time.Second)
	_, err = CouponDiscount(expired, d("100"), now)
	assert.True(t, errors.Is(err, ErrCouponExpired))

	inactive := pct
	inactive.IsActive = false
	_, err = CouponDiscount(inactive, d("100"), now)
	assert.True(t, errors.Is(err, ErrCouponInactive))

	bad := pct
	bad.DiscountValue = d("150")
	_, err = CouponDiscount(bad, d("100"), now)
	assert.True(t, errors.Is(err, ErrCouponInvalid))
}

func TestValidateBands(t *testing.T) {
	assert.NoError(t, ValidateBands(pageBands()))
	assert.NoError(t, ValidateBands(nil))

	overlapping := append(pageBands(), band(3, models.CriterionPages, 10, 12, "30"))
	assert.ErrorIs(t, ValidateBands(overlapping), ErrOverlappingBands)

	// same range on different criteria is fine
	assert.NoError(t, ValidateBands([]models.PriceBand{
		band(1, models.CriterionAI, 0, 10, "1"),
		band(2, models.CriterionPlagiarism, 0, 10, "1"),
	}))

	invalid := []models.PriceBand{
		band(1, models.CriterionPages, 5, 1, "1"),
		band(1, models.CriterionPages, -1, 1, "1"),
		band(1, models.CriterionAI, 0, 101, "1"),
		band(1, models.CriterionPages, 1, 2, "-1"),
		band(1, models.Criterion("words"), 1, 2, "1"),
	}
	for _, b := range invalid {
		assert.ErrorIs(t, ValidateBands([]models.PriceBand{b}), ErrInvalidBand, "%+v", b)
	}
}
