// Package settlement holds the only implementation of the weighbridge money
// math. Every caller that needs netto, netto bersih or a total goes through
// Calculate so that the figures can never drift between views.
package settlement

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
)

// Input carries the weights and the price/discount snapshot of a visit.
type Input struct {
	GrossWeight     *float64
	TareWeight      *float64
	DiscountPercent float64
	PricePerKg      decimal.Decimal
}

// Result holds the derived settlement figures.
type Result struct {
	NetWeight              float64
	NetWeightAfterDiscount int64
	TotalAmount            decimal.Decimal
}

// Calculate derives net weight, discounted net weight and total amount.
//
// Net weight is zero until both legs are present. A tare heavier than the
// gross is not clamped: the negative net propagates into a negative total so
// the operator can see and correct the entry.
func Calculate(in Input) Result {
	var net float64
	if in.GrossWeight != nil && in.TareWeight != nil {
		net = *in.GrossWeight - *in.TareWeight
	}

	netDec := decimal.NewFromFloat(net)
	discount := netDec.Mul(decimal.NewFromFloat(in.DiscountPercent)).Div(hundred)
	afterDiscount := RoundHalfUp(netDec.Sub(discount))

	return Result{
		NetWeight:              net,
		NetWeightAfterDiscount: afterDiscount,
		TotalAmount:            decimal.NewFromInt(afterDiscount).Mul(in.PricePerKg),
	}
}

// RoundHalfUp rounds to the nearest whole kilogram, halves toward +inf.
func RoundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// Verify recomputes the figures from the stored inputs and reports whether
// they match the stored outputs.
func Verify(in Input, stored Result) (Result, bool) {
	got := Calculate(in)
	ok := got.NetWeight == stored.NetWeight &&
		got.NetWeightAfterDiscount == stored.NetWeightAfterDiscount &&
		got.TotalAmount.Equal(stored.TotalAmount)
	return got, ok
}
