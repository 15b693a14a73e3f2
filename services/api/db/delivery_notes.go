package db

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

const deliveryNoteColumns = `id, doc_reference, vehicle_id, date, weight_in, weight_out, net_gross,
    loose_weight, loose_weight_price, bunches, penalty, net_weight, price, komidel, fruit_type,
    rejected_bunches, rejected_weight, total`

func scanDeliveryNote(row pgx.Row) (models.DeliveryNote, error) {
	var n models.DeliveryNote
	var fruit string
	err := row.Scan(
		&n.ID,
		&n.DocReference,
		&n.VehicleID,
		&n.Date,
		&n.WeightIn,
		&n.WeightOut,
		&n.NetGross,
		&n.LooseWeight,
		&n.LooseWeightPrice,
		&n.Bunches,
		&n.Penalty,
		&n.NetWeight,
		&n.Price,
		&n.Komidel,
		&fruit,
		&n.RejectedBunches,
		&n.RejectedWeight,
		&n.Total,
	)
	n.FruitType = models.FruitType(fruit)
	return n, err
}

func deliveryNoteArgs(n *models.DeliveryNote) []any {
	return []any{
		n.DocReference,
		n.VehicleID,
		n.Date,
		n.WeightIn,
		n.WeightOut,
		n.NetGross,
		n.LooseWeight,
		n.LooseWeightPrice,
		n.Bunches,
		n.Penalty,
		n.NetWeight,
		n.Price,
		n.Komidel,
		string(n.FruitType),
		n.RejectedBunches,
		n.RejectedWeight,
		n.Total,
	}
}

const insertDeliveryNoteSQL = `
    INSERT INTO weighbridge.delivery_notes (
        doc_reference, vehicle_id, date, weight_in, weight_out, net_gross, loose_weight,
        loose_weight_price, bunches, penalty, net_weight, price, komidel, fruit_type,
        rejected_bunches, rejected_weight, total
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
    RETURNING id
`

// CreateDeliveryNote stores a delivery note and fills in its id.
func (s *Store) CreateDeliveryNote(ctx context.Context, n *models.DeliveryNote) error {
	return s.pool.QueryRow(ctx, insertDeliveryNoteSQL, deliveryNoteArgs(n)...).Scan(&n.ID)
}

const updateDeliveryNoteSQL = `
    UPDATE weighbridge.delivery_notes
    SET doc_reference = $1, vehicle_id = $2, date = $3, weight_in = $4, weight_out = $5,
        net_gross = $6, loose_weight = $7, loose_weight_price = $8, bunches = $9, penalty = $10,
        net_weight = $11, price = $12, komidel = $13, fruit_type = $14, rejected_bunches = $15,
        rejected_weight = $16, total = $17
    WHERE id = $18
`

// UpdateDeliveryNote replaces every field of an existing delivery note.
func (s *Store) UpdateDeliveryNote(ctx context.Context, n *models.DeliveryNote) error {
	args := append(deliveryNoteArgs(n), n.ID)
	tag, err := s.pool.Exec(ctx, updateDeliveryNoteSQL, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetDeliveryNote returns one delivery note by id.
func (s *Store) GetDeliveryNote(ctx context.Context, id int64) (*models.DeliveryNote, error) {
	n, err := scanDeliveryNote(s.pool.QueryRow(ctx,
		"SELECT "+deliveryNoteColumns+" FROM weighbridge.delivery_notes WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteDeliveryNote removes one delivery note.
func (s *Store) DeleteDeliveryNote(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM weighbridge.delivery_notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func deliveryNoteWhere(q models.DeliveryNoteQuery) (string, []any) {
	args := []any{}
	clause := " WHERE TRUE"
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		pos := strconv.Itoa(len(args))
		clause += " AND (doc_reference ILIKE $" + pos + " OR vehicle_id ILIKE $" + pos + ")"
	}
	if q.Since != nil {
		args = append(args, *q.Since)
		clause += " AND date >= $" + strconv.Itoa(len(args))
	}
	if q.Until != nil {
		args = append(args, *q.Until)
		clause += " AND date < $" + strconv.Itoa(len(args))
	}
	return clause, args
}

// ListDeliveryNotes returns delivery notes matching q, newest first.
func (s *Store) ListDeliveryNotes(ctx context.Context, q models.DeliveryNoteQuery) ([]models.DeliveryNote, error) {
	clause, args := deliveryNoteWhere(q)
	limit := ""
	if q.Limit > 0 {
		args = append(args, q.Limit)
		limit = " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx,
		"SELECT "+deliveryNoteColumns+" FROM weighbridge.delivery_notes"+clause+" ORDER BY date DESC, id DESC"+limit,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]models.DeliveryNote, 0)
	for rows.Next() {
		n, err := scanDeliveryNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

const deliveryNoteTotalsColumns = `COUNT(*), COALESCE(SUM(net_gross), 0), COALESCE(SUM(net_weight), 0),
    COALESCE(SUM(loose_weight), 0), COALESCE(SUM(bunches), 0), COALESCE(SUM(rejected_bunches), 0),
    COALESCE(SUM(rejected_weight), 0), COALESCE(SUM(total), 0)`

func scanTotals(row pgx.Row, t *models.DeliveryNoteTotals, extra ...any) error {
	dest := append(extra,
		&t.Count,
		&t.TotalNetGross,
		&t.TotalNetWeight,
		&t.TotalLooseWeight,
		&t.TotalBunches,
		&t.TotalRejected,
		&t.TotalRejectedWeight,
		&t.TotalAmount,
	)
	return row.Scan(dest...)
}

// DeliveryNoteTotals sums the stored fields of every matching note.
func (s *Store) DeliveryNoteTotals(ctx context.Context, q models.DeliveryNoteQuery) (models.DeliveryNoteTotals, error) {
	clause, args := deliveryNoteWhere(q)
	var t models.DeliveryNoteTotals
	err := scanTotals(s.pool.QueryRow(ctx, "SELECT "+deliveryNoteTotalsColumns+" FROM weighbridge.delivery_notes"+clause, args...), &t)
	return t, err
}

// DeliveryNoteTotalsByFruitType is DeliveryNoteTotals grouped by fruit type.
func (s *Store) DeliveryNoteTotalsByFruitType(ctx context.Context, q models.DeliveryNoteQuery) ([]models.DeliveryNoteTotals, error) {
	clause, args := deliveryNoteWhere(q)
	rows, err := s.pool.Query(ctx,
		"SELECT fruit_type, "+deliveryNoteTotalsColumns+
			" FROM weighbridge.delivery_notes"+clause+" GROUP BY fruit_type ORDER BY fruit_type",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.DeliveryNoteTotals, 0)
	for rows.Next() {
		var t models.DeliveryNoteTotals
		var fruit string
		if err := scanTotals(rows, &t, &fruit); err != nil {
			return nil, err
		}
		t.FruitType = models.FruitType(fruit)
		out = append(out, t)
	}
	return out, rows.Err()
}
