package db

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

// contractStore is implemented by both Store and Memory.
type contractStore interface {
	FindLatestByPlate(ctx context.Context, plateNumber string) (*models.Record, error)
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
	InsertRecord(ctx context.Context, rec *models.Record, afterID int64) error
	UpdateRecord(ctx context.Context, rec *models.Record) error
	DeleteRecord(ctx context.Context, id int64) error
	DeleteRecords(ctx context.Context, ids []int64) (int64, error)
	ListRecords(ctx context.Context, q models.RecordQuery) ([]models.Record, error)

	CurrentConfig(ctx context.Context, stationID string) (models.StationConfig, error)
	SetPrice(ctx context.Context, stationID string, price decimal.Decimal) (models.PriceEntry, error)
	SetDiscount(ctx context.Context, stationID string, percent float64) error
	PriceHistory(ctx context.Context, stationID string, limit int) ([]models.PriceEntry, error)

	CreateDeliveryNote(ctx context.Context, n *models.DeliveryNote) error
	UpdateDeliveryNote(ctx context.Context, n *models.DeliveryNote) error
	GetDeliveryNote(ctx context.Context, id int64) (*models.DeliveryNote, error)
	DeleteDeliveryNote(ctx context.Context, id int64) error
	ListDeliveryNotes(ctx context.Context, q models.DeliveryNoteQuery) ([]models.DeliveryNote, error)
	DeliveryNoteTotals(ctx context.Context, q models.DeliveryNoteQuery) (models.DeliveryNoteTotals, error)
	DeliveryNoteTotalsByFruitType(ctx context.Context, q models.DeliveryNoteQuery) ([]models.DeliveryNoteTotals, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, limit int) ([]models.Message, error)
}

var (
	_ contractStore = (*Store)(nil)
	_ contractStore = (*Memory)(nil)
)

var base = time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func testRecordLifecycle(t *testing.T, s contractStore) {
	ctx := context.Background()

	none, err := s.FindLatestByPlate(ctx, "BK1")
	require.NoError(t, err)
	assert.Nil(t, none)

	rec := &models.Record{
		PlateNumber:     "BK1",
		GrossWeight:     ptr(12000),
		DiscountPercent: 5,
		PricePerKg:      decimal.NewFromInt(2200),
		StationID:       "Binanga",
		Status:          models.StatusAwaitingTare,
		Timestamp:       base,
	}
	require.NoError(t, s.InsertRecord(ctx, rec, 0))
	require.NotZero(t, rec.ID)
	assert.Equal(t, 1, rec.Version)

	// A second insert that did not see rec is stale.
	other := &models.Record{PlateNumber: "BK1", GrossWeight: ptr(9000), StationID: "Binanga", Status: models.StatusAwaitingTare, Timestamp: base}
	assert.ErrorIs(t, s.InsertRecord(ctx, other, 0), models.ErrStaleWrite)

	latest, err := s.FindLatestByPlate(ctx, "BK1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, rec.ID, latest.ID)
	assert.True(t, latest.PricePerKg.Equal(decimal.NewFromInt(2200)))
	assert.Nil(t, latest.TareWeight)

	settled := *latest
	settled.TareWeight = ptr(4000)
	settled.NetWeight = 8000
	settled.NetWeightAfterDiscount = 7600
	settled.TotalAmount = decimal.NewFromInt(16720000)
	settled.Status = models.StatusSettled
	settled.Timestamp = base.Add(30 * time.Minute)
	require.NoError(t, s.UpdateRecord(ctx, &settled))
	assert.Equal(t, 2, settled.Version)

	// The copy read before the update is now stale.
	assert.ErrorIs(t, s.UpdateRecord(ctx, latest), models.ErrStaleWrite)

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettled, got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(16720000)))
	assert.Equal(t, int64(7600), got.NetWeightAfterDiscount)
	assert.Equal(t, 4000.0, *got.TareWeight)

	missing := settled
	missing.ID = 999999
	assert.ErrorIs(t, s.UpdateRecord(ctx, &missing), models.ErrNotFound)

	_, err = s.GetRecord(ctx, 999999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testRecordListingAndDelete(t *testing.T, s contractStore) {
	ctx := context.Background()
	var ids []int64
	for i, st := range []string{"Binanga", "Portibi", "Binanga"} {
		rec := &models.Record{
			PlateNumber: "LST" + st,
			GrossWeight: ptr(10000),
			StationID:   st,
			Status:      models.StatusAwaitingTare,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
		}
		afterID := int64(0)
		if prev, _ := s.FindLatestByPlate(ctx, rec.PlateNumber); prev != nil {
			afterID = prev.ID
		}
		require.NoError(t, s.InsertRecord(ctx, rec, afterID))
		ids = append(ids, rec.ID)
	}

	since := base
	until := base.Add(2 * time.Hour)
	list, err := s.ListRecords(ctx, models.RecordQuery{StationID: "Binanga", Since: &since, Until: &until})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ids[0], list[0].ID)

	all, err := s.ListRecords(ctx, models.RecordQuery{PlateNumber: "LSTBinanga"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	limited, err := s.ListRecords(ctx, models.RecordQuery{PlateNumber: "LSTBinanga", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.DeleteRecord(ctx, ids[0]))
	assert.ErrorIs(t, s.DeleteRecord(ctx, ids[0]), models.ErrNotFound)

	n, err := s.DeleteRecords(ctx, []int64{ids[0], ids[1], ids[2]})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func testStationConfig(t *testing.T, s contractStore) {
	ctx := context.Background()

	empty, err := s.CurrentConfig(ctx, "Paranjulu")
	require.NoError(t, err)
	assert.True(t, empty.PricePerKg.IsZero())
	assert.Zero(t, empty.DiscountPercent)
	assert.Nil(t, empty.PriceUpdatedAt)

	_, err = s.SetPrice(ctx, "Paranjulu", decimal.NewFromInt(2100))
	require.NoError(t, err)
	_, err = s.SetPrice(ctx, "Paranjulu", decimal.RequireFromString("2150.5"))
	require.NoError(t, err)
	require.NoError(t, s.SetDiscount(ctx, "Paranjulu", 4))
	require.NoError(t, s.SetDiscount(ctx, "Paranjulu", 6.5))

	cfg, err := s.CurrentConfig(ctx, "Paranjulu")
	require.NoError(t, err)
	assert.True(t, cfg.PricePerKg.Equal(decimal.RequireFromString("2150.5")), cfg.PricePerKg.String())
	assert.Equal(t, 6.5, cfg.DiscountPercent)
	assert.NotNil(t, cfg.PriceUpdatedAt)
	assert.NotNil(t, cfg.DiscountUpdatedAt)

	history, err := s.PriceHistory(ctx, "Paranjulu", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].PricePerKg.Equal(decimal.RequireFromString("2150.5")))

	one, err := s.PriceHistory(ctx, "Paranjulu", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func note(ref, vehicle string, at time.Time, fruit models.FruitType, netWeight float64, total int64) *models.DeliveryNote {
	return &models.DeliveryNote{
		DocReference:     ref,
		VehicleID:        vehicle,
		Date:             at,
		WeightIn:         netWeight + 3000,
		WeightOut:        3000,
		NetGross:         netWeight,
		LooseWeightPrice: decimal.Zero,
		Bunches:          10,
		NetWeight:        netWeight,
		Price:            decimal.NewFromInt(2000),
		Komidel:          decimal.NewFromInt(1),
		FruitType:        fruit,
		Total:            decimal.NewFromInt(total),
	}
}

func testDeliveryNotes(t *testing.T, s contractStore) {
	ctx := context.Background()

	a := note("SP-001", "BK 1 AA", base, models.FruitLarge, 5000, 9999840)
	b := note("SP-002", "BK 2 BB", base.Add(24*time.Hour), models.FruitSmall, 4000, 7999840)
	c := note("SP-003", "bk 1 cc", base.Add(48*time.Hour), models.FruitLarge, 3000, 5999840)
	for _, n := range []*models.DeliveryNote{a, b, c} {
		require.NoError(t, s.CreateDeliveryNote(ctx, n))
		require.NotZero(t, n.ID)
	}

	found, err := s.ListDeliveryNotes(ctx, models.DeliveryNoteQuery{Search: "bk 1"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, c.ID, found[0].ID)

	byRef, err := s.ListDeliveryNotes(ctx, models.DeliveryNoteQuery{Search: "sp-002"})
	require.NoError(t, err)
	require.Len(t, byRef, 1)

	until := base.Add(48 * time.Hour)
	totals, err := s.DeliveryNoteTotals(ctx, models.DeliveryNoteQuery{Until: &until})
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Count)
	assert.Equal(t, 9000.0, totals.TotalNetWeight)
	assert.Equal(t, 20, totals.TotalBunches)
	assert.True(t, totals.TotalAmount.Equal(decimal.NewFromInt(17999680)))

	byFruit, err := s.DeliveryNoteTotalsByFruitType(ctx, models.DeliveryNoteQuery{})
	require.NoError(t, err)
	require.Len(t, byFruit, 2)
	assert.Equal(t, models.FruitLarge, byFruit[0].FruitType)
	assert.Equal(t, 2, byFruit[0].Count)
	assert.Equal(t, 8000.0, byFruit[0].TotalNetWeight)

	b.VehicleID = "BK 9 ZZ"
	require.NoError(t, s.UpdateDeliveryNote(ctx, b))
	got, err := s.GetDeliveryNote(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "BK 9 ZZ", got.VehicleID)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(2000)))

	require.NoError(t, s.DeleteDeliveryNote(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteDeliveryNote(ctx, a.ID), models.ErrNotFound)
	_, err = s.GetDeliveryNote(ctx, a.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	missing := *b
	missing.ID = 999999
	assert.ErrorIs(t, s.UpdateDeliveryNote(ctx, &missing), models.ErrNotFound)
}

func testMessages(t *testing.T, s contractStore) {
	ctx := context.Background()
	for _, text := range []string{"timbangan rusak", "harga naik"} {
		require.NoError(t, s.CreateMessage(ctx, &models.Message{Text: text, SenderRole: "Binanga"}))
	}

	msgs, err := s.ListMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "harga naik", msgs[0].Text)
	assert.False(t, msgs[0].CreatedAt.IsZero())

	one, err := s.ListMessages(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func runContract(t *testing.T, newStore func(t *testing.T) contractStore) {
	t.Run("record lifecycle", func(t *testing.T) { testRecordLifecycle(t, newStore(t)) })
	t.Run("record listing and delete", func(t *testing.T) { testRecordListingAndDelete(t, newStore(t)) })
	t.Run("station config", func(t *testing.T) { testStationConfig(t, newStore(t)) })
	t.Run("delivery notes", func(t *testing.T) { testDeliveryNotes(t, newStore(t)) })
	t.Run("messages", func(t *testing.T) { testMessages(t, newStore(t)) })
}
