package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNoMembers = errors.New("group needs at least one member")

var cent = decimal.New(1, -2)

// SplitEqually divides total into n shares that sum exactly to total. Shares
// are whole cents; leftover cents go to the first members, and any sub-cent
// residue (from an unrounded fee) goes to the first member.
func SplitEqually(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, ErrNoMembers
	}
	count := decimal.NewFromInt(int64(n))
	base := total.Div(count).Truncate(2)

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = base
	}

	rest := total.Sub(base.Mul(count))
	for i := 0; rest.GreaterThanOrEqual(cent); i++ {
		shares[i%n] = shares[i%n].Add(cent)
		rest = rest.Sub(cent)
	}
	if rest.IsPositive() {
		shares[0] = shares[0].Add(rest)
	}
	return shares, nil
}
