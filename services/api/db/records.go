package db

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

const recordColumns = `id, plate_number, gross_weight, tare_weight, net_weight, discount_percent,
    net_weight_after_discount, price_per_kg, total_amount, station_id, status, ts, created_at, version`

func scanRecord(row pgx.Row) (models.Record, error) {
	var rec models.Record
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.PlateNumber,
		&rec.GrossWeight,
		&rec.TareWeight,
		&rec.NetWeight,
		&rec.DiscountPercent,
		&rec.NetWeightAfterDiscount,
		&rec.PricePerKg,
		&rec.TotalAmount,
		&rec.StationID,
		&status,
		&rec.Timestamp,
		&rec.CreatedAt,
		&rec.Version,
	)
	rec.Status = models.RecordStatus(status)
	return rec, err
}

const latestByPlateSQL = `
    SELECT ` + recordColumns + `
    FROM weighbridge.weighing_records
    WHERE plate_number = $1
    ORDER BY id DESC
    LIMIT 1
`

// FindLatestByPlate returns the newest record for a plate, or nil when the
// plate has never been weighed.
func (s *Store) FindLatestByPlate(ctx context.Context, plateNumber string) (*models.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, latestByPlateSQL, plateNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

const recordByIDSQL = `
    SELECT ` + recordColumns + `
    FROM weighbridge.weighing_records
    WHERE id = $1
`

// GetRecord returns one record by id.
func (s *Store) GetRecord(ctx context.Context, id int64) (*models.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, recordByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

const latestIDForPlateSQL = `
    SELECT COALESCE(MAX(id), 0)
    FROM weighbridge.weighing_records
    WHERE plate_number = $1
`

const insertRecordSQL = `
    INSERT INTO weighbridge.weighing_records (
        plate_number, gross_weight, tare_weight, net_weight, discount_percent,
        net_weight_after_discount, price_per_kg, total_amount, station_id, status, ts
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id, created_at, version
`

// InsertRecord stores a new record. The plate is locked for the duration of
// the transaction so two concurrent visits cannot both start from afterID.
func (s *Store) InsertRecord(ctx context.Context, rec *models.Record, afterID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.PlateNumber); err != nil {
		return err
	}

	var latest int64
	if err := tx.QueryRow(ctx, latestIDForPlateSQL, rec.PlateNumber).Scan(&latest); err != nil {
		return err
	}
	if latest != afterID {
		return models.ErrStaleWrite
	}

	if err := tx.QueryRow(ctx, insertRecordSQL,
		rec.PlateNumber,
		rec.GrossWeight,
		rec.TareWeight,
		rec.NetWeight,
		rec.DiscountPercent,
		rec.NetWeightAfterDiscount,
		rec.PricePerKg,
		rec.TotalAmount,
		rec.StationID,
		string(rec.Status),
		rec.Timestamp,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.Version); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const updateRecordSQL = `
    UPDATE weighbridge.weighing_records
    SET plate_number = $2,
        gross_weight = $3,
        tare_weight = $4,
        net_weight = $5,
        discount_percent = $6,
        net_weight_after_discount = $7,
        price_per_kg = $8,
        total_amount = $9,
        station_id = $10,
        status = $11,
        ts = $12,
        version = version + 1
    WHERE id = $1 AND version = $13
    RETURNING version
`

// UpdateRecord rewrites a record if nobody changed it since it was read.
func (s *Store) UpdateRecord(ctx context.Context, rec *models.Record) error {
	err := s.pool.QueryRow(ctx, updateRecordSQL,
		rec.ID,
		rec.PlateNumber,
		rec.GrossWeight,
		rec.TareWeight,
		rec.NetWeight,
		rec.DiscountPercent,
		rec.NetWeightAfterDiscount,
		rec.PricePerKg,
		rec.TotalAmount,
		rec.StationID,
		string(rec.Status),
		rec.Timestamp,
		rec.Version,
	).Scan(&rec.Version)
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM weighbridge.weighing_records WHERE id = $1)`, rec.ID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrStaleWrite
}

// DeleteRecord removes one record.
func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM weighbridge.weighing_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteRecords removes every listed record and reports how many existed.
func (s *Store) DeleteRecords(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM weighbridge.weighing_records WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListRecords returns records matching q, newest first.
func (s *Store) ListRecords(ctx context.Context, q models.RecordQuery) ([]models.Record, error) {
	args := []any{}
	clause := " WHERE TRUE"
	argPos := 1
	if q.StationID != "" {
		clause += " AND station_id = $" + strconv.Itoa(argPos)
		args = append(args, q.StationID)
		argPos++
	}
	if q.PlateNumber != "" {
		clause += " AND plate_number = $" + strconv.Itoa(argPos)
		args = append(args, q.PlateNumber)
		argPos++
	}
	if q.Since != nil {
		clause += " AND ts >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		clause += " AND ts < $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
		argPos++
	}
	order := " ORDER BY ts DESC, id DESC"
	limit := ""
	if q.Limit > 0 {
		limit = " LIMIT $" + strconv.Itoa(argPos)
		args = append(args, q.Limit)
	}

	sql := "SELECT " + recordColumns + " FROM weighbridge.weighing_records" + clause + order + limit

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
