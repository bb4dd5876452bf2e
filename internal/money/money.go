// Package money holds the cent-exact rounding and allocation rules used for
// every monetary value.
package money

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// Cent is the smallest representable amount.
var Cent = decimal.New(1, -2)

// Round rounds d to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Share is one participant in an allocation.
type Share struct {
	Name   string
	Weight decimal.Decimal
}

// Allocate splits total across shares in proportion to their weights. Each
// share first receives its exact portion truncated to cents; leftover cents
// go one at a time to the shares with the largest discarded fraction, ties
// broken by name. The result is in input order and always sums to total
// rounded to cents.
//
// Shares with a non-positive weight receive zero. If no weight is positive
// everything is zero.
func Allocate(total decimal.Decimal, shares []Share) []decimal.Decimal {
	out := make([]decimal.Decimal, len(shares))
	for i := range out {
		out[i] = decimal.Zero
	}
	sum := decimal.Zero
	for _, s := range shares {
		if s.Weight.IsPositive() {
			sum = sum.Add(s.Weight)
		}
	}
	if !sum.IsPositive() {
		return out
	}

	total = Round(total)
	type rem struct {
		idx  int
		frac decimal.Decimal
	}
	rems := make([]rem, 0, len(shares))
	given := decimal.Zero
	for i, s := range shares {
		if !s.Weight.IsPositive() {
			continue
		}
		exact := total.Mul(s.Weight).Div(sum)
		floor := exact.Truncate(2)
		if exact.IsNegative() && !floor.Equal(exact) {
			floor = floor.Sub(Cent)
		}
		out[i] = floor
		given = given.Add(floor)
		rems = append(rems, rem{idx: i, frac: exact.Sub(floor)})
	}

	slices.SortStableFunc(rems, func(a, b rem) int {
		if c := b.frac.Cmp(a.frac); c != 0 {
			return c
		}
		return cmp.Compare(shares[a.idx].Name, shares[b.idx].Name)
	})
	left := total.Sub(given).Div(Cent).IntPart()
	for i := int64(0); i < left && len(rems) > 0; i++ {
		r := rems[int(i)%len(rems)]
		out[r.idx] = out[r.idx].Add(Cent)
	}
	return out
}

// Equal splits total evenly across names using [Allocate].
func Equal(total decimal.Decimal, names []string) []decimal.Decimal {
	shares := make([]Share, len(names))
	one := decimal.NewFromInt(1)
	for i, n := range names {
		shares[i] = Share{Name: n, Weight: one}
	}
	return Allocate(total, shares)
}

// Sum adds ds.
func Sum(ds ...decimal.Decimal) decimal.Decimal {
	s := decimal.Zero
	for _, d := range ds {
		s = s.Add(d)
	}
	return s
}
