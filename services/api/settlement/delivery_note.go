package settlement

import (
	"github.com/shopspring/decimal"
)

const (
	// BunchFee is deducted per delivered bunch.
	BunchFee = 16
	// RejectedBunchFee is deducted per rejected bunch.
	RejectedBunchFee = 8
)

// DeliveryNoteInput carries the operator-entered fields of a delivery note.
type DeliveryNoteInput struct {
	WeightIn         float64
	WeightOut        float64
	Penalty          float64
	LooseWeight      float64
	LooseWeightPrice decimal.Decimal
	Price            decimal.Decimal
	Bunches          int
	RejectedBunches  int
}

// DeliveryNoteResult holds the derived delivery note figures.
type DeliveryNoteResult struct {
	NetGross  float64
	NetWeight float64
	Total     decimal.Decimal
}

// CalculateDeliveryNote applies the delivery note formula:
//
//	net gross  = weight in - weight out
//	net weight = net gross - penalty
//	total      = net weight*price + loose weight*loose price - bunches*16 - rejected*8
func CalculateDeliveryNote(in DeliveryNoteInput) DeliveryNoteResult {
	netGross := in.WeightIn - in.WeightOut
	netWeight := netGross - in.Penalty

	total := decimal.NewFromFloat(netWeight).Mul(in.Price).
		Add(decimal.NewFromFloat(in.LooseWeight).Mul(in.LooseWeightPrice)).
		Sub(decimal.NewFromInt(int64(in.Bunches) * BunchFee)).
		Sub(decimal.NewFromInt(int64(in.RejectedBunches) * RejectedBunchFee))

	return DeliveryNoteResult{
		NetGross:  netGross,
		NetWeight: netWeight,
		Total:     total,
	}
}
