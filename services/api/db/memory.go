package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

// Memory is a process-local store with the same behaviour as Store. It backs
// DATABASE_URL=memory:// and the HTTP tests.
type Memory struct {
	mu sync.Mutex

	recordSeq int64
	records   map[int64]models.Record

	priceSeq  int64
	prices    map[string][]models.PriceEntry
	discounts map[string]models.StationConfig

	noteSeq int64
	notes   map[int64]models.DeliveryNote

	messageSeq int64
	messages   []models.Message

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:   map[int64]models.Record{},
		prices:    map[string][]models.PriceEntry{},
		discounts: map[string]models.StationConfig{},
		notes:     map[int64]models.DeliveryNote{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Close is a no-op.
func (m *Memory) Close() {}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Migrate is a no-op.
func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) latestLocked(plate string) *models.Record {
	var latest *models.Record
	for _, r := range m.records {
		if r.PlateNumber != plate {
			continue
		}
		if latest == nil || r.ID > latest.ID {
			cp := r
			latest = &cp
		}
	}
	return latest
}

// FindLatestByPlate returns the newest record for a plate or nil.
func (m *Memory) FindLatestByPlate(_ context.Context, plateNumber string) (*models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestLocked(plateNumber), nil
}

// GetRecord returns one record by id.
func (m *Memory) GetRecord(_ context.Context, id int64) (*models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &rec, nil
}

// InsertRecord stores a new record if the plate's latest id is still afterID.
func (m *Memory) InsertRecord(_ context.Context, rec *models.Record, afterID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest int64
	if r := m.latestLocked(rec.PlateNumber); r != nil {
		latest = r.ID
	}
	if latest != afterID {
		return models.ErrStaleWrite
	}

	m.recordSeq++
	rec.ID = m.recordSeq
	rec.Version = 1
	rec.CreatedAt = m.now()
	m.records[rec.ID] = *rec
	return nil
}

// UpdateRecord rewrites a record if its version still matches.
func (m *Memory) UpdateRecord(_ context.Context, rec *models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.records[rec.ID]
	if !ok {
		return models.ErrNotFound
	}
	if cur.Version != rec.Version {
		return models.ErrStaleWrite
	}
	rec.Version++
	rec.CreatedAt = cur.CreatedAt
	m.records[rec.ID] = *rec
	return nil
}

// DeleteRecord removes one record.
func (m *Memory) DeleteRecord(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// DeleteRecords removes every listed record that exists.
func (m *Memory) DeleteRecords(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// ListRecords returns records matching q, newest first.
func (m *Memory) ListRecords(_ context.Context, q models.RecordQuery) ([]models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Record, 0)
	for _, r := range m.records {
		if q.StationID != "" && r.StationID != q.StationID {
			continue
		}
		if q.PlateNumber != "" && r.PlateNumber != q.PlateNumber {
			continue
		}
		if q.Since != nil && r.Timestamp.Before(*q.Since) {
			continue
		}
		if q.Until != nil && !r.Timestamp.Before(*q.Until) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// CurrentConfig returns the latest price and the discount of a station.
func (m *Memory) CurrentConfig(_ context.Context, stationID string) (models.StationConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := models.StationConfig{StationID: stationID}
	if d, ok := m.discounts[stationID]; ok {
		cfg.DiscountPercent = d.DiscountPercent
		cfg.DiscountUpdatedAt = d.DiscountUpdatedAt
	}
	if h := m.prices[stationID]; len(h) > 0 {
		latest := h[len(h)-1]
		cfg.PricePerKg = latest.PricePerKg
		at := latest.CreatedAt
		cfg.PriceUpdatedAt = &at
	}
	return cfg, nil
}

// SetPrice appends a price to the station's history.
func (m *Memory) SetPrice(_ context.Context, stationID string, price decimal.Decimal) (models.PriceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.priceSeq++
	entry := models.PriceEntry{ID: m.priceSeq, StationID: stationID, PricePerKg: price, CreatedAt: m.now()}
	m.prices[stationID] = append(m.prices[stationID], entry)
	return entry, nil
}

// SetDiscount replaces the station's discount.
func (m *Memory) SetDiscount(_ context.Context, stationID string, percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	at := m.now()
	m.discounts[stationID] = models.StationConfig{
		StationID:         stationID,
		DiscountPercent:   percent,
		DiscountUpdatedAt: &at,
	}
	return nil
}

// PriceHistory returns up to limit prices, newest first.
func (m *Memory) PriceHistory(_ context.Context, stationID string, limit int) ([]models.PriceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.prices[stationID]
	out := make([]models.PriceEntry, 0, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, h[i])
	}
	return out, nil
}

// CreateDeliveryNote stores a delivery note and fills in its id.
func (m *Memory) CreateDeliveryNote(_ context.Context, n *models.DeliveryNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noteSeq++
	n.ID = m.noteSeq
	m.notes[n.ID] = *n
	return nil
}

// UpdateDeliveryNote replaces an existing delivery note.
func (m *Memory) UpdateDeliveryNote(_ context.Context, n *models.DeliveryNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[n.ID]; !ok {
		return models.ErrNotFound
	}
	m.notes[n.ID] = *n
	return nil
}

// GetDeliveryNote returns one delivery note by id.
func (m *Memory) GetDeliveryNote(_ context.Context, id int64) (*models.DeliveryNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &n, nil
}

// DeleteDeliveryNote removes one delivery note.
func (m *Memory) DeleteDeliveryNote(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *Memory) matchingNotesLocked(q models.DeliveryNoteQuery) []models.DeliveryNote {
	search := strings.ToLower(q.Search)
	out := make([]models.DeliveryNote, 0)
	for _, n := range m.notes {
		if search != "" &&
			!strings.Contains(strings.ToLower(n.DocReference), search) &&
			!strings.Contains(strings.ToLower(n.VehicleID), search) {
			continue
		}
		if q.Since != nil && n.Date.Before(*q.Since) {
			continue
		}
		if q.Until != nil && !n.Date.Before(*q.Until) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ListDeliveryNotes returns delivery notes matching q, newest first.
func (m *Memory) ListDeliveryNotes(_ context.Context, q models.DeliveryNoteQuery) ([]models.DeliveryNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.matchingNotesLocked(q)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func addToTotals(t *models.DeliveryNoteTotals, n models.DeliveryNote) {
	t.Count++
	t.TotalNetGross += n.NetGross
	t.TotalNetWeight += n.NetWeight
	t.TotalLooseWeight += n.LooseWeight
	t.TotalBunches += n.Bunches
	t.TotalRejected += n.RejectedBunches
	t.TotalRejectedWeight += n.RejectedWeight
	t.TotalAmount = t.TotalAmount.Add(n.Total)
}

// DeliveryNoteTotals sums the stored fields of every matching note.
func (m *Memory) DeliveryNoteTotals(_ context.Context, q models.DeliveryNoteQuery) (models.DeliveryNoteTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t models.DeliveryNoteTotals
	for _, n := range m.matchingNotesLocked(q) {
		addToTotals(&t, n)
	}
	return t, nil
}

// DeliveryNoteTotalsByFruitType is DeliveryNoteTotals grouped by fruit type.
func (m *Memory) DeliveryNoteTotalsByFruitType(_ context.Context, q models.DeliveryNoteQuery) ([]models.DeliveryNoteTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	groups := map[models.FruitType]*models.DeliveryNoteTotals{}
	for _, n := range m.matchingNotesLocked(q) {
		t, ok := groups[n.FruitType]
		if !ok {
			t = &models.DeliveryNoteTotals{FruitType: n.FruitType}
			groups[n.FruitType] = t
		}
		addToTotals(t, n)
	}

	out := make([]models.DeliveryNoteTotals, 0, len(groups))
	for _, t := range groups {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FruitType < out[j].FruitType })
	return out, nil
}

// CreateMessage stores a notice and fills in its id and timestamp.
func (m *Memory) CreateMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageSeq++
	msg.ID = m.messageSeq
	msg.CreatedAt = m.now()
	m.messages = append(m.messages, *msg)
	return nil
}

// ListMessages returns the newest messages first.
func (m *Memory) ListMessages(_ context.Context, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Message, 0, len(m.messages))
	for i := len(m.messages) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.messages[i])
	}
	return out, nil
}
