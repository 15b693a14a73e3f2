package report

import (
	"github.com/shopspring/decimal"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

var hundred = decimal.NewFromInt(100)

// Difference compares a delivery note figure against the weighed one.
type Difference struct {
	DeliveryNotes decimal.Decimal `json:"delivery_notes"`
	Weighed       decimal.Decimal `json:"weighed"`
	Value         decimal.Decimal `json:"value"`
	// Percentage is Value relative to Weighed, two decimals. Zero when
	// nothing was weighed.
	Percentage decimal.Decimal `json:"percentage"`
}

// Comparison lines delivery note totals up against weighing totals for the
// same period.
type Comparison struct {
	NetWeight              Difference `json:"net_weight"`
	NetWeightAfterDiscount Difference `json:"net_weight_after_discount"`
	TotalAmount            Difference `json:"total_amount"`
}

// CompareDeliveries reports how far the mill's delivery notes drift from the
// station weighings. Net weight on the notes is compared against both the
// raw and the discounted weighed net.
func CompareDeliveries(notes models.DeliveryNoteTotals, weighed StationTotals) Comparison {
	spNet := decimal.NewFromFloat(notes.TotalNetWeight)
	return Comparison{
		NetWeight:              diff(spNet, decimal.NewFromFloat(weighed.NetWeight)),
		NetWeightAfterDiscount: diff(spNet, decimal.NewFromInt(weighed.NetWeightAfterDiscount)),
		TotalAmount:            diff(notes.TotalAmount, weighed.TotalAmount),
	}
}

func diff(sp, weighed decimal.Decimal) Difference {
	d := Difference{
		DeliveryNotes: sp,
		Weighed:       weighed,
		Value:         sp.Sub(weighed),
	}
	if !weighed.IsZero() {
		d.Percentage = d.Value.Div(weighed).Mul(hundred).Round(2)
	}
	return d
}
