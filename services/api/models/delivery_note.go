package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FruitType classifies the bunches on a delivery note.
type FruitType string

const (
	FruitLarge FruitType = "Buah Besar"
	FruitSmall FruitType = "Buah Kecil"
	FruitSuper FruitType = "Buah Super"
)

// Valid reports whether f is one of the accepted fruit types.
func (f FruitType) Valid() bool {
	switch f {
	case FruitLarge, FruitSmall, FruitSuper:
		return true
	}
	return false
}

// DeliveryNote (surat pengantar) records a mill delivery with its own
// settlement formula.
type DeliveryNote struct {
	ID               int64           `json:"id"`
	DocReference     string          `json:"doc_reference"`
	VehicleID        string          `json:"vehicle_id"`
	Date             time.Time       `json:"date"`
	WeightIn         float64         `json:"weight_in"`
	WeightOut        float64         `json:"weight_out"`
	NetGross         float64         `json:"net_gross"`
	LooseWeight      float64         `json:"loose_weight"`
	LooseWeightPrice decimal.Decimal `json:"loose_weight_price"`
	Bunches          int             `json:"bunches"`
	Penalty          float64         `json:"penalty"`
	NetWeight        float64         `json:"net_weight"`
	Price            decimal.Decimal `json:"price"`
	Komidel          decimal.Decimal `json:"komidel"`
	FruitType        FruitType       `json:"fruit_type"`
	RejectedBunches  int             `json:"rejected_bunches"`
	RejectedWeight   float64         `json:"rejected_weight"`
	Total            decimal.Decimal `json:"total"`
}

// DeliveryNoteTotals sums stored delivery note fields.
type DeliveryNoteTotals struct {
	FruitType           FruitType       `json:"fruit_type,omitempty"`
	Count               int             `json:"count"`
	TotalNetGross       float64         `json:"total_net_gross"`
	TotalNetWeight      float64         `json:"total_net_weight"`
	TotalLooseWeight    float64         `json:"total_loose_weight"`
	TotalBunches        int             `json:"total_bunches"`
	TotalRejected       int             `json:"total_rejected_bunches"`
	TotalRejectedWeight float64         `json:"total_rejected_weight"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
}

// Message is a notice posted by an operator or admin.
type Message struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	SenderRole string    `json:"sender_role"`
	CreatedAt  time.Time `json:"created_at"`
}

// DeliveryNoteQuery filters delivery note listings. Search matches the
// document reference or vehicle id, case-insensitively.
type DeliveryNoteQuery struct {
	Search string
	Since  *time.Time
	Until  *time.Time
	Limit  int
}
