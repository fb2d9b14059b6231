// Package pricing computes assistant quotes from price bands, the platform
// fee, coupon discounts and group shares. It has no I/O.
package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"intihelp/internal/models"
)

// DefaultFeeRate is the platform fee as a fraction of the assistant price.
var DefaultFeeRate = decimal.RequireFromString("0.20")

var (
	ErrInvalidBand      = errors.New("invalid price band")
	ErrOverlappingBands = errors.New("overlapping price bands")
)

// Input is the part of a task request that drives pricing.
type Input struct {
	PageCount               int `json:"page_count"`
	MaxAIPercentage         int `json:"max_ai_percentage"`
	MaxPlagiarismPercentage int `json:"max_plagiarism_percentage"`
}

func (in Input) valueFor(c models.Criterion) int {
	switch c {
	case models.CriterionPages:
		return in.PageCount
	case models.CriterionAI:
		return in.MaxAIPercentage
	case models.CriterionPlagiarism:
		return in.MaxPlagiarismPercentage
	}
	return 0
}

// Quote is the price breakdown for one assistant.
type Quote struct {
	PagesCost      decimal.Decimal `json:"pages_cost"`
	AICost         decimal.Decimal `json:"ia_cost"`
	PlagiarismCost decimal.Decimal `json:"plagiarism_cost"`
	AssistantPrice decimal.Decimal `json:"assistant_price"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	Total          decimal.Decimal `json:"total"`
	Discount       decimal.Decimal `json:"discount"`
	Payable        decimal.Decimal `json:"payable"`
}

// Available reports whether the assistant can be offered for this request.
func (q Quote) Available() bool {
	return q.AssistantPrice.IsPositive()
}

type Engine struct {
	feeRate decimal.Decimal
}

func NewEngine(feeRate decimal.Decimal) *Engine {
	return &Engine{feeRate: feeRate}
}

func (e *Engine) FeeRate() decimal.Decimal { return e.feeRate }

// Quote sums the matching band cost of every criterion and adds the fee.
// A criterion with no matching band contributes zero.
func (e *Engine) Quote(in Input, bands []models.PriceBand) Quote {
	cost := func(c models.Criterion) decimal.Decimal {
		if b, ok := MatchBand(bands, c, in.valueFor(c)); ok {
			return b.Cost
		}
		return decimal.Zero
	}

	q := Quote{
		PagesCost:      cost(models.CriterionPages),
		AICost:         cost(models.CriterionAI),
		PlagiarismCost: cost(models.CriterionPlagiarism),
	}
	q.AssistantPrice = q.PagesCost.Add(q.AICost).Add(q.PlagiarismCost)
	q.PlatformFee = q.AssistantPrice.Mul(e.feeRate)
	q.Total = q.AssistantPrice.Add(q.PlatformFee)
	q.Discount = decimal.Zero
	q.Payable = q.Total
	return q
}

// WithDiscount applies a discount, clamping so the payable amount never goes
// below zero. The recorded discount is the amount actually applied.
func (q Quote) WithDiscount(discount decimal.Decimal) Quote {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(q.Total) {
		discount = q.Total
	}
	q.Discount = discount
	q.Payable = q.Total.Sub(discount)
	return q
}

// MatchBand returns the band for criterion c whose inclusive range contains v.
// If several legacy bands overlap, the narrowest wins, then the lower min,
// then the lower cost, then the lower id.
func MatchBand(bands []models.PriceBand, c models.Criterion, v int) (models.PriceBand, bool) {
	var (
		best  models.PriceBand
		found bool
	)
	for _, b := range bands {
		if b.Criterion != c || !b.Contains(v) {
			continue
		}
		if !found || preferBand(b, best) {
			best, found = b, true
		}
	}
	return best, found
}

func preferBand(a, b models.PriceBand) bool {
	wa, wb := a.MaxValue-a.MinValue, b.MaxValue-b.MinValue
	if wa != wb {
		return wa < wb
	}
	if a.MinValue != b.MinValue {
		return a.MinValue < b.MinValue
	}
	if !a.Cost.Equal(b.Cost) {
		return a.Cost.LessThan(b.Cost)
	}
	return a.ID < b.ID
}

// ValidateBands checks a band set before it is saved.
func ValidateBands(bands []models.PriceBand) error {
	byCriterion := map[models.Criterion][]models.PriceBand{}
	for i, b := range bands {
		if !b.Criterion.Valid() {
			return fmt.Errorf("%w: band %d has unknown criterion %q", ErrInvalidBand, i, b.Criterion)
		}
		if b.MinValue < 0 || b.MinValue > b.MaxValue {
			return fmt.Errorf("%w: band %d has range [%d, %d]", ErrInvalidBand, i, b.MinValue, b.MaxValue)
		}
		if b.Criterion != models.CriterionPages && b.MaxValue > 100 {
			return fmt.Errorf("%w: band %d exceeds 100%%", ErrInvalidBand, i)
		}
		if b.Cost.IsNegative() {
			return fmt.Errorf("%w: band %d has negative cost", ErrInvalidBand, i)
		}
		byCriterion[b.Criterion] = append(byCriterion[b.Criterion], b)
	}

	for c, list := range byCriterion {
		sort.Slice(list, func(i, j int) bool { return list[i].MinValue < list[j].MinValue })
		for i := 1; i < len(list); i++ {
			if list[i].MinValue <= list[i-1].MaxValue {
				return fmt.Errorf("%w: %s [%d, %d] and [%d, %d]", ErrOverlappingBands, c,
					list[i-1].MinValue, list[i-1].MaxValue, list[i].MinValue, list[i].MaxValue)
			}
		}
	}
	return nil
}
