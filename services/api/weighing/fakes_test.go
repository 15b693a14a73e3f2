package weighing

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

// fakeRecords is an in-memory RecordStore with hooks to simulate races and
// outages.
type fakeRecords struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]models.Record
	writes  int
	failErr error
	// beforeWrite runs inside Insert/Update before the staleness check.
	beforeWrite func(f *fakeRecords)
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{rows: map[int64]models.Record{}}
}

func (f *fakeRecords) latestLocked(plate string) *models.Record {
	var latest *models.Record
	for _, r := range f.rows {
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

func (f *fakeRecords) FindLatestByPlate(_ context.Context, plate string) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	return f.latestLocked(plate), nil
}

func (f *fakeRecords) GetRecord(_ context.Context, id int64) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRecords) InsertRecord(_ context.Context, rec *models.Record, afterID int64) error {
	if f.beforeWrite != nil {
		f.beforeWrite(f)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var cur int64
	if latest := f.latestLocked(rec.PlateNumber); latest != nil {
		cur = latest.ID
	}
	if cur != afterID {
		return models.ErrStaleWrite
	}
	f.nextID++
	rec.ID = f.nextID
	rec.Version = 1
	rec.CreatedAt = rec.Timestamp
	f.rows[rec.ID] = *rec
	f.writes++
	return nil
}

func (f *fakeRecords) UpdateRecord(_ context.Context, rec *models.Record) error {
	if f.beforeWrite != nil {
		f.beforeWrite(f)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[rec.ID]
	if !ok {
		return models.ErrNotFound
	}
	if cur.Version != rec.Version {
		return models.ErrStaleWrite
	}
	rec.Version++
	f.rows[rec.ID] = *rec
	f.writes++
	return nil
}

func (f *fakeRecords) DeleteRecord(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRecords) DeleteRecords(_ context.Context, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := f.rows[id]; ok {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRecords) ListRecords(_ context.Context, q models.RecordQuery) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Record, 0)
	for _, r := range f.rows {
		if q.StationID != "" && r.StationID != q.StationID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeStations struct {
	mu      sync.Mutex
	configs map[string]models.StationConfig
	history map[string][]models.PriceEntry
	failErr error
}

func newFakeStations() *fakeStations {
	return &fakeStations{
		configs: map[string]models.StationConfig{},
		history: map[string][]models.PriceEntry{},
	}
}

func (f *fakeStations) set(station string, price int64, discount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[station] = models.StationConfig{
		StationID:       station,
		PricePerKg:      decimal.NewFromInt(price),
		DiscountPercent: discount,
	}
}

func (f *fakeStations) CurrentConfig(_ context.Context, station string) (models.StationConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return models.StationConfig{}, f.failErr
	}
	cfg, ok := f.configs[station]
	if !ok {
		return models.StationConfig{StationID: station}, nil
	}
	return cfg, nil
}

func (f *fakeStations) SetPrice(_ context.Context, station string, price decimal.Decimal) (models.PriceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return models.PriceEntry{}, f.failErr
	}
	cfg := f.configs[station]
	cfg.StationID = station
	cfg.PricePerKg = price
	f.configs[station] = cfg
	entry := models.PriceEntry{ID: int64(len(f.history[station]) + 1), StationID: station, PricePerKg: price}
	f.history[station] = append([]models.PriceEntry{entry}, f.history[station]...)
	return entry, nil
}

func (f *fakeStations) SetDiscount(_ context.Context, station string, pct float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := f.configs[station]
	cfg.StationID = station
	cfg.DiscountPercent = pct
	f.configs[station] = cfg
	return nil
}

func (f *fakeStations) PriceHistory(_ context.Context, station string, _ int) ([]models.PriceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[station], nil
}

type fakePublisher struct {
	settled []models.Record
	err     error
}

func (p *fakePublisher) RecordSettled(_ context.Context, rec models.Record) error {
	if p.err != nil {
		return p.err
	}
	p.settled = append(p.settled, rec)
	return nil
}

var errStoreDown = errors.New("connection refused")
