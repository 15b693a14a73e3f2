package db

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

const currentConfigSQL = `
    SELECT p.price_per_kg, p.created_at, d.discount_percent, d.updated_at
    FROM (SELECT $1::text AS station_id) s
    LEFT JOIN LATERAL (
        SELECT price_per_kg, created_at
        FROM weighbridge.station_prices
        WHERE station_id = s.station_id
        ORDER BY id DESC
        LIMIT 1
    ) p ON true
    LEFT JOIN weighbridge.station_discounts d ON d.station_id = s.station_id
`

// CurrentConfig returns the latest price and the discount of a station. A
// station with nothing stored yet has price 0 and discount 0.
func (s *Store) CurrentConfig(ctx context.Context, stationID string) (models.StationConfig, error) {
	var price decimal.NullDecimal
	var discount *float64
	cfg := models.StationConfig{StationID: stationID}

	if err := s.pool.QueryRow(ctx, currentConfigSQL, stationID).Scan(
		&price,
		&cfg.PriceUpdatedAt,
		&discount,
		&cfg.DiscountUpdatedAt,
	); err != nil {
		return models.StationConfig{}, err
	}

	if price.Valid {
		cfg.PricePerKg = price.Decimal
	}
	if discount != nil {
		cfg.DiscountPercent = *discount
	}
	return cfg, nil
}

const insertPriceSQL = `
    INSERT INTO weighbridge.station_prices (station_id, price_per_kg)
    VALUES ($1, $2)
    RETURNING id, created_at
`

// SetPrice appends a price to the station's history.
func (s *Store) SetPrice(ctx context.Context, stationID string, price decimal.Decimal) (models.PriceEntry, error) {
	entry := models.PriceEntry{StationID: stationID, PricePerKg: price}
	if err := s.pool.QueryRow(ctx, insertPriceSQL, stationID, price).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return models.PriceEntry{}, err
	}
	return entry, nil
}

const upsertDiscountSQL = `
    INSERT INTO weighbridge.station_discounts (station_id, discount_percent, updated_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (station_id) DO UPDATE
    SET discount_percent = EXCLUDED.discount_percent,
        updated_at = EXCLUDED.updated_at
`

// SetDiscount replaces the station's discount.
func (s *Store) SetDiscount(ctx context.Context, stationID string, percent float64) error {
	_, err := s.pool.Exec(ctx, upsertDiscountSQL, stationID, percent, time.Now().UTC())
	return err
}

const priceHistorySQL = `
    SELECT id, station_id, price_per_kg, created_at
    FROM weighbridge.station_prices
    WHERE station_id = $1
    ORDER BY id DESC
    LIMIT $2
`

// PriceHistory returns up to limit prices, newest first.
func (s *Store) PriceHistory(ctx context.Context, stationID string, limit int) ([]models.PriceEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, priceHistorySQL, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.PriceEntry, 0)
	for rows.Next() {
		var e models.PriceEntry
		if err := rows.Scan(&e.ID, &e.StationID, &e.PricePerKg, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
