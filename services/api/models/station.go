package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StationConfig is the current price and discount of a weighing station.
type StationConfig struct {
	StationID         string          `json:"station_id"`
	PricePerKg        decimal.Decimal `json:"price_per_kg"`
	DiscountPercent   float64         `json:"discount_percent"`
	PriceUpdatedAt    *time.Time      `json:"price_updated_at,omitempty"`
	DiscountUpdatedAt *time.Time      `json:"discount_updated_at,omitempty"`
}

// PriceEntry is one row of a station's price history. Prices are never
// updated in place; the latest entry is the current price.
type PriceEntry struct {
	ID         int64           `json:"id"`
	StationID  string          `json:"station_id"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ScaleReading is the live load-cell value reported by the IoT backend.
type ScaleReading struct {
	StationID string    `json:"station_id"`
	Weight    *float64  `json:"weight"`
	FetchedAt time.Time `json:"fetched_at"`
}
