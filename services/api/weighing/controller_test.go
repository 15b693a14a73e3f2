package weighing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/session"
	"github.com/tbs-timbangan/weighbridge/services/api/settlement"
)

type harness struct {
	ctrl     *Controller
	records  *fakeRecords
	stations *fakeStations
	events   *fakePublisher
	now      time.Time
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		records:  newFakeRecords(),
		stations: newFakeStations(),
		events:   &fakePublisher{},
		now:      time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC),
	}
	h.stations.set("Binanga", 2200, 5)
	h.stations.set("Portibi", 2100, 3)
	opts = append([]Option{
		WithStationResolver(NewStationService(h.stations, []string{"Binanga", "Portibi"}, nil)),
		WithPublisher(h.events),
		WithVisitGap(24 * time.Hour),
		WithClock(func() time.Time { return h.now }),
	}, opts...)
	h.ctrl = NewController(h.records, h.stations, nil, opts...)
	return h
}

func (h *harness) leg(t *testing.T, sess session.Session, plate string, w float64, leg models.Leg) (*models.Record, error) {
	t.Helper()
	return h.ctrl.RecordLeg(context.Background(), sess, LegInput{PlateNumber: plate, Weight: w, Leg: leg})
}

var binanga = session.Operator("Binanga")

func TestRecordLegSettlesVisit(t *testing.T) {
	h := newHarness(t)

	gross, err := h.leg(t, binanga, "bk 1234 xy", 12000, models.LegGross)
	require.NoError(t, err)
	assert.Equal(t, "BK1234XY", gross.PlateNumber)
	assert.Equal(t, models.StatusAwaitingTare, gross.Status)
	assert.Equal(t, "Binanga", gross.StationID)
	assert.Zero(t, gross.NetWeight)
	assert.True(t, gross.TotalAmount.IsZero())

	h.now = h.now.Add(20 * time.Minute)
	rec, err := h.leg(t, binanga, "BK1234XY", 4000, models.LegTare)
	require.NoError(t, err)
	assert.Equal(t, gross.ID, rec.ID)
	assert.Equal(t, models.StatusSettled, rec.Status)
	assert.Equal(t, 8000.0, rec.NetWeight)
	assert.Equal(t, int64(7600), rec.NetWeightAfterDiscount)
	assert.True(t, rec.TotalAmount.Equal(decimal.NewFromInt(16720000)), "total = %s", rec.TotalAmount)
	assert.Equal(t, h.now, rec.Timestamp)

	require.Len(t, h.events.settled, 1)
	assert.Equal(t, rec.ID, h.events.settled[0].ID)
	assert.Equal(t, 2, h.records.writes)
}

func TestRecordLegTareWithoutGross(t *testing.T) {
	h := newHarness(t)

	_, err := h.leg(t, binanga, "BK1", 4000, models.LegTare)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingGrossLeg)

	var legErr *LegError
	require.ErrorAs(t, err, &legErr)
	assert.Equal(t, "BK1", legErr.PlateNumber)
	assert.Zero(t, h.records.writes)
	assert.Empty(t, h.events.settled)
}

func TestRecordLegTareAfterSettledVisit(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)
	_, err = h.leg(t, binanga, "BK1", 3000, models.LegTare)
	require.NoError(t, err)

	_, err = h.leg(t, binanga, "BK1", 3100, models.LegTare)
	assert.ErrorIs(t, err, ErrMissingGrossLeg)
	assert.Equal(t, 2, h.records.writes)
}

func TestRecordLegDuplicateGross(t *testing.T) {
	h := newHarness(t)
	first, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)

	_, err = h.leg(t, binanga, "BK1", 9100, models.LegGross)
	assert.ErrorIs(t, err, ErrDuplicateLeg)

	stored, err := h.records.GetRecord(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, *stored.GrossWeight)
	assert.Equal(t, 1, h.records.writes)
}

func TestRecordLegNewVisitAfterSettlement(t *testing.T) {
	h := newHarness(t)
	first, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)
	_, err = h.leg(t, binanga, "BK1", 3000, models.LegTare)
	require.NoError(t, err)

	second, err := h.leg(t, binanga, "BK1", 9500, models.LegGross)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.StatusAwaitingTare, second.Status)
}

func TestRecordLegVisitGapExpiry(t *testing.T) {
	h := newHarness(t)
	stale, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)

	h.now = h.now.Add(25 * time.Hour)

	_, err = h.leg(t, binanga, "BK1", 3000, models.LegTare)
	assert.ErrorIs(t, err, ErrMissingGrossLeg)

	fresh, err := h.leg(t, binanga, "BK1", 9200, models.LegGross)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)
}

func TestRecordLegNoVisitGap(t *testing.T) {
	h := newHarness(t, WithVisitGap(0))
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)

	h.now = h.now.Add(72 * time.Hour)
	rec, err := h.leg(t, binanga, "BK1", 3000, models.LegTare)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettled, rec.Status)
}

func TestRecordLegSnapshotsConfigAtTare(t *testing.T) {
	h := newHarness(t)
	h.stations.set("Binanga", 2000, 2)

	gross, err := h.leg(t, binanga, "BK1", 10000, models.LegGross)
	require.NoError(t, err)
	assert.True(t, gross.PricePerKg.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, 2.0, gross.DiscountPercent)

	h.stations.set("Binanga", 2300, 4)
	rec, err := h.leg(t, binanga, "BK1", 2000, models.LegTare)
	require.NoError(t, err)
	assert.True(t, rec.PricePerKg.Equal(decimal.NewFromInt(2300)))
	assert.Equal(t, 4.0, rec.DiscountPercent)
	assert.Equal(t, int64(7680), rec.NetWeightAfterDiscount)

	// Later config changes do not touch the settled record.
	h.stations.set("Binanga", 9999, 50)
	stored, err := h.records.GetRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.PricePerKg.Equal(decimal.NewFromInt(2300)))
}

func TestRecordLegNegativeNetIsKept(t *testing.T) {
	h := newHarness(t)
	h.stations.set("Binanga", 2000, 0)
	_, err := h.leg(t, binanga, "BK1", 5000, models.LegGross)
	require.NoError(t, err)

	rec, err := h.leg(t, binanga, "BK1", 6000, models.LegTare)
	require.NoError(t, err)
	assert.Equal(t, -1000.0, rec.NetWeight)
	assert.True(t, rec.TotalAmount.IsNegative())
}

func TestRecordLegValidation(t *testing.T) {
	tests := []struct {
		name    string
		sess    session.Session
		in      LegInput
		wantErr error
	}{
		{"empty plate", binanga, LegInput{PlateNumber: "  ", Weight: 100, Leg: models.LegGross}, ErrPlateRequired},
		{"zero weight", binanga, LegInput{PlateNumber: "BK1", Weight: 0, Leg: models.LegGross}, ErrInvalidWeight},
		{"negative weight", binanga, LegInput{PlateNumber: "BK1", Weight: -5, Leg: models.LegTare}, ErrInvalidWeight},
		{"not a number", binanga, LegInput{PlateNumber: "BK1", Weight: math.NaN(), Leg: models.LegGross}, ErrInvalidWeight},
		{"unknown leg", binanga, LegInput{PlateNumber: "BK1", Weight: 100, Leg: "Bruto"}, ErrInvalidLeg},
		{"admin without station", session.Admin(), LegInput{PlateNumber: "BK1", Weight: 100, Leg: models.LegGross}, ErrStationRequired},
		{"factory cannot write", session.Session{Role: session.RoleFactory}, LegInput{PlateNumber: "BK1", Weight: 100, Leg: models.LegGross}, ErrForbidden},
		{"operator for other station", binanga, LegInput{PlateNumber: "BK1", Weight: 100, Leg: models.LegGross, StationID: "Portibi"}, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.ctrl.RecordLeg(context.Background(), tt.sess, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, h.records.writes)
		})
	}
}

func TestRecordLegValidationErrorType(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "", 100, models.LegGross)
	assert.True(t, IsValidation(err))

	_, err = h.leg(t, binanga, "BK1", 100, models.LegTare)
	assert.False(t, IsValidation(err))
}

func TestRecordLegAdminNamesStation(t *testing.T) {
	h := newHarness(t)
	rec, err := h.ctrl.RecordLeg(context.Background(), session.Admin(), LegInput{
		PlateNumber: "BK1", Weight: 8000, Leg: models.LegGross, StationID: "Portibi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Portibi", rec.StationID)
	assert.True(t, rec.PricePerKg.Equal(decimal.NewFromInt(2100)))
}

func TestRecordLegAdminStationIsCanonical(t *testing.T) {
	h := newHarness(t)
	rec, err := h.ctrl.RecordLeg(context.Background(), session.Admin(), LegInput{
		PlateNumber: "BK1", Weight: 8000, Leg: models.LegGross, StationID: " portibi ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Portibi", rec.StationID)

	_, err = h.ctrl.RecordLeg(context.Background(), session.Admin(), LegInput{
		PlateNumber: "BK2", Weight: 8000, Leg: models.LegGross, StationID: "Nowhere",
	})
	assert.ErrorIs(t, err, ErrUnknownStation)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 1, h.records.writes)
}

func TestRecordLegTareAtOtherStation(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)

	_, err = h.leg(t, session.Operator("Portibi"), "BK1", 3000, models.LegTare)
	assert.ErrorIs(t, err, ErrMissingGrossLeg)
	assert.Equal(t, 1, h.records.writes)
}

func TestRecordLegConcurrentTare(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)

	// Another station settles the record between our read and write.
	h.records.beforeWrite = func(f *fakeRecords) {
		f.beforeWrite = nil
		f.mu.Lock()
		defer f.mu.Unlock()
		r := f.latestLocked("BK1")
		tare := 2500.0
		r.TareWeight = &tare
		r.Version++
		f.rows[r.ID] = *r
	}

	_, err = h.leg(t, binanga, "BK1", 3000, models.LegTare)
	assert.ErrorIs(t, err, ErrMissingGrossLeg)

	stored := h.records.latestLocked("BK1")
	assert.Equal(t, 2500.0, *stored.TareWeight)
	assert.Empty(t, h.events.settled)
}

func TestRecordLegConcurrentGross(t *testing.T) {
	h := newHarness(t)
	h.records.beforeWrite = func(f *fakeRecords) {
		f.beforeWrite = nil
		gross := 8800.0
		require.NoError(t, f.InsertRecord(context.Background(), &models.Record{PlateNumber: "BK1", StationID: "Binanga", GrossWeight: &gross}, 0))
	}

	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	assert.ErrorIs(t, err, ErrDuplicateLeg)
	assert.Equal(t, 1, h.records.writes)
}

func TestRecordLegPersistenceFailure(t *testing.T) {
	h := newHarness(t)
	h.records.failErr = errStoreDown

	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.ErrorIs(t, err, errStoreDown)

	h.records.failErr = nil
	h.stations.failErr = errStoreDown
	_, err = h.leg(t, binanga, "BK1", 9000, models.LegGross)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Zero(t, h.records.writes)
}

func TestRecordLegPublishFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.events.err = errors.New("broker unavailable")
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)

	rec, err := h.leg(t, binanga, "BK1", 3000, models.LegTare)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettled, rec.Status)
}

func TestEditRecordRecomputes(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 12000, models.LegGross)
	require.NoError(t, err)
	rec, err := h.leg(t, binanga, "BK1", 4000, models.LegTare)
	require.NoError(t, err)

	tare := 5000.0
	discount := 10.0
	price := decimal.NewFromInt(2000)
	plate := "bk 9 zz"
	edited, err := h.ctrl.EditRecord(context.Background(), session.Admin(), rec.ID, RecordEdit{
		PlateNumber:     &plate,
		TareWeight:      &tare,
		DiscountPercent: &discount,
		PricePerKg:      &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "BK9ZZ", edited.PlateNumber)
	assert.Equal(t, 7000.0, edited.NetWeight)
	assert.Equal(t, int64(6300), edited.NetWeightAfterDiscount)
	assert.True(t, edited.TotalAmount.Equal(decimal.NewFromInt(12600000)))
	assert.Equal(t, rec.Timestamp, edited.Timestamp)

	_, ok := settlement.Verify(SettlementInput(*edited), StoredResult(*edited))
	assert.True(t, ok)
}

func TestEditRecordClearTareReopens(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 12000, models.LegGross)
	require.NoError(t, err)
	rec, err := h.leg(t, binanga, "BK1", 4000, models.LegTare)
	require.NoError(t, err)

	edited, err := h.ctrl.EditRecord(context.Background(), session.Admin(), rec.ID, RecordEdit{ClearTare: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingTare, edited.Status)
	assert.Zero(t, edited.NetWeight)
	assert.True(t, edited.TotalAmount.IsZero())
}

func TestEditRecordRejects(t *testing.T) {
	h := newHarness(t)
	rec, err := h.leg(t, binanga, "BK1", 12000, models.LegGross)
	require.NoError(t, err)

	neg := -1.0
	zero := 0.0
	over := 101.0
	negPrice := decimal.NewFromInt(-1)
	empty := " "

	tests := []struct {
		name    string
		sess    session.Session
		edit    RecordEdit
		wantErr error
	}{
		{"operator", binanga, RecordEdit{}, ErrForbidden},
		{"negative gross", session.Admin(), RecordEdit{GrossWeight: &neg}, ErrInvalidWeight},
		{"zero gross", session.Admin(), RecordEdit{GrossWeight: &zero}, ErrInvalidWeight},
		{"zero tare", session.Admin(), RecordEdit{TareWeight: &zero}, ErrInvalidWeight},
		{"discount over 100", session.Admin(), RecordEdit{DiscountPercent: &over}, ErrInvalidDiscount},
		{"negative price", session.Admin(), RecordEdit{PricePerKg: &negPrice}, ErrInvalidPrice},
		{"empty plate", session.Admin(), RecordEdit{PlateNumber: &empty}, ErrPlateRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ctrl.EditRecord(context.Background(), tt.sess, rec.ID, tt.edit)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = h.ctrl.EditRecord(context.Background(), session.Admin(), 999, RecordEdit{})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 1, h.records.writes)
}

func TestEditRecordPlateChangeKeepsOneOpenVisit(t *testing.T) {
	h := newHarness(t)
	first, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)
	second, err := h.leg(t, binanga, "BK2", 9500, models.LegGross)
	require.NoError(t, err)

	bk2 := "BK2"
	_, err = h.ctrl.EditRecord(context.Background(), session.Admin(), first.ID, RecordEdit{PlateNumber: &bk2})
	assert.ErrorIs(t, err, ErrNewerVisitExists)
	assert.True(t, IsValidation(err))

	bk1 := "bk 1"
	_, err = h.ctrl.EditRecord(context.Background(), session.Admin(), second.ID, RecordEdit{PlateNumber: &bk1})
	assert.ErrorIs(t, err, ErrOpenVisitExists)
	assert.Equal(t, 2, h.records.writes)

	latest, err := h.records.FindLatestByPlate(context.Background(), "BK2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestEditRecordPlateChangeOntoExpiredVisit(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)
	h.now = h.now.Add(25 * time.Hour)
	second, err := h.leg(t, binanga, "BK2", 9500, models.LegGross)
	require.NoError(t, err)

	bk1 := "BK1"
	edited, err := h.ctrl.EditRecord(context.Background(), session.Admin(), second.ID, RecordEdit{PlateNumber: &bk1})
	require.NoError(t, err)
	assert.Equal(t, "BK1", edited.PlateNumber)
}

func TestEditRecordSettledPlateChangeIsAllowed(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)
	settled, err := h.leg(t, binanga, "BK1", 3000, models.LegTare)
	require.NoError(t, err)
	_, err = h.leg(t, binanga, "BK2", 9500, models.LegGross)
	require.NoError(t, err)

	bk2 := "BK2"
	edited, err := h.ctrl.EditRecord(context.Background(), session.Admin(), settled.ID, RecordEdit{PlateNumber: &bk2})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettled, edited.Status)
}

func TestEditRecordClearTareBehindNewerVisit(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)
	settled, err := h.leg(t, binanga, "BK1", 3000, models.LegTare)
	require.NoError(t, err)
	_, err = h.leg(t, binanga, "BK1", 9100, models.LegGross)
	require.NoError(t, err)

	_, err = h.ctrl.EditRecord(context.Background(), session.Admin(), settled.ID, RecordEdit{ClearTare: true})
	assert.ErrorIs(t, err, ErrNewerVisitExists)

	stored, err := h.records.GetRecord(context.Background(), settled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettled, stored.Status)
}

func TestEditRecordConcurrentEdit(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 9000, models.LegGross)
	require.NoError(t, err)
	rec, err := h.leg(t, binanga, "BK1", 3000, models.LegTare)
	require.NoError(t, err)

	// Another admin saves the record between our read and write.
	h.records.beforeWrite = func(f *fakeRecords) {
		f.beforeWrite = nil
		f.mu.Lock()
		defer f.mu.Unlock()
		r := f.rows[rec.ID]
		r.DiscountPercent = 7
		r.Version++
		f.rows[r.ID] = r
	}

	tare := 3500.0
	_, err = h.ctrl.EditRecord(context.Background(), session.Admin(), rec.ID, RecordEdit{TareWeight: &tare})
	assert.ErrorIs(t, err, models.ErrStaleWrite)
	assert.False(t, IsValidation(err))

	stored, err := h.records.GetRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, *stored.TareWeight)
	assert.Equal(t, 7.0, stored.DiscountPercent)
}

func TestDeleteRecords(t *testing.T) {
	h := newHarness(t)
	a, err := h.leg(t, binanga, "BK1", 12000, models.LegGross)
	require.NoError(t, err)
	b, err := h.leg(t, binanga, "BK2", 11000, models.LegGross)
	require.NoError(t, err)
	c, err := h.leg(t, binanga, "BK3", 10000, models.LegGross)
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, h.ctrl.DeleteRecord(ctx, binanga, a.ID), ErrForbidden)
	require.NoError(t, h.ctrl.DeleteRecord(ctx, session.Admin(), a.ID))

	_, err = h.ctrl.DeleteRecords(ctx, session.Admin(), nil)
	assert.ErrorIs(t, err, ErrNoRecordIDs)

	n, err := h.ctrl.DeleteRecords(ctx, session.Admin(), []int64{b.ID, c.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Empty(t, h.records.rows)
}

func TestListRecordsScopesOperators(t *testing.T) {
	h := newHarness(t)
	_, err := h.leg(t, binanga, "BK1", 12000, models.LegGross)
	require.NoError(t, err)
	_, err = h.leg(t, session.Operator("Portibi"), "BK2", 11000, models.LegGross)
	require.NoError(t, err)

	ctx := context.Background()
	own, err := h.ctrl.ListRecords(ctx, binanga, models.RecordQuery{StationID: "Portibi"})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Binanga", own[0].StationID)

	all, err := h.ctrl.ListRecords(ctx, session.Admin(), models.RecordQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rec := own[0]
	_, err = h.ctrl.GetRecord(ctx, session.Operator("Portibi"), rec.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
