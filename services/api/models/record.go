package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStaleWrite is returned when a record changed between read and write.
	ErrStaleWrite = errors.New("record was modified concurrently")
)

// Leg identifies which weighing of a visit a reading belongs to.
type Leg string

const (
	LegGross Leg = "gross"
	LegTare  Leg = "tare"
)

// Valid reports whether l is a known leg.
func (l Leg) Valid() bool {
	return l == LegGross || l == LegTare
}

// RecordStatus is the lifecycle state of a weighing record.
type RecordStatus string

const (
	StatusAwaitingGross RecordStatus = "awaiting_gross"
	StatusAwaitingTare  RecordStatus = "awaiting_tare"
	StatusSettled       RecordStatus = "settled"
)

// Record is one vehicle visit at a weighing station.
type Record struct {
	ID                     int64           `json:"id"`
	PlateNumber            string          `json:"plate_number"`
	GrossWeight            *float64        `json:"gross_weight,omitempty"`
	TareWeight             *float64        `json:"tare_weight,omitempty"`
	NetWeight              float64         `json:"net_weight"`
	DiscountPercent        float64         `json:"discount_percent"`
	NetWeightAfterDiscount int64           `json:"net_weight_after_discount"`
	PricePerKg             decimal.Decimal `json:"price_per_kg"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	StationID              string          `json:"station_id"`
	Status                 RecordStatus    `json:"status"`
	Timestamp              time.Time       `json:"timestamp"`
	CreatedAt              time.Time       `json:"created_at"`
	Version                int             `json:"-"`
}

// CurrentStatus derives the lifecycle state from the recorded legs.
func (r *Record) CurrentStatus() RecordStatus {
	switch {
	case r.GrossWeight == nil:
		return StatusAwaitingGross
	case r.TareWeight == nil:
		return StatusAwaitingTare
	default:
		return StatusSettled
	}
}

// Open reports whether the visit still misses a leg.
func (r *Record) Open() bool {
	return r.CurrentStatus() != StatusSettled
}

// RecordQuery filters record listings. Zero values mean "no filter".
type RecordQuery struct {
	StationID   string
	PlateNumber string
	Since       *time.Time
	Until       *time.Time
	Limit       int
}
