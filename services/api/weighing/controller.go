// Package weighing applies gross/tare readings to weighing records and keeps
// their settlement figures consistent.
package weighing

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/session"
	"github.com/tbs-timbangan/weighbridge/services/api/settlement"
)

// RecordStore persists weighing records.
type RecordStore interface {
	// FindLatestByPlate returns nil, nil when the plate has no record.
	FindLatestByPlate(ctx context.Context, plateNumber string) (*models.Record, error)
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
	// InsertRecord fails with models.ErrStaleWrite when the plate's latest
	// record id is no longer afterID (0 meaning "no record").
	InsertRecord(ctx context.Context, rec *models.Record, afterID int64) error
	// UpdateRecord fails with models.ErrStaleWrite when rec.Version is not
	// the stored version.
	UpdateRecord(ctx context.Context, rec *models.Record) error
	DeleteRecord(ctx context.Context, id int64) error
	DeleteRecords(ctx context.Context, ids []int64) (int64, error)
	ListRecords(ctx context.Context, q models.RecordQuery) ([]models.Record, error)
}

// StationConfigReader returns the current price and discount of a station.
type StationConfigReader interface {
	CurrentConfig(ctx context.Context, stationID string) (models.StationConfig, error)
}

// StationResolver maps a station id to its configured spelling.
type StationResolver interface {
	Resolve(stationID string) (string, error)
}

// Publisher is notified when a visit is settled.
type Publisher interface {
	RecordSettled(ctx context.Context, rec models.Record) error
}

// LegInput is one weight reading captured by an operator.
type LegInput struct {
	PlateNumber string
	Weight      float64
	Leg         models.Leg
	StationID   string
}

// RecordEdit is an admin correction. Nil fields are left unchanged.
type RecordEdit struct {
	PlateNumber     *string
	GrossWeight     *float64
	TareWeight      *float64
	ClearTare       bool
	PricePerKg      *decimal.Decimal
	DiscountPercent *float64
}

// Controller owns the record lifecycle: awaiting gross, awaiting tare,
// settled.
type Controller struct {
	records  RecordStore
	stations StationConfigReader
	resolver StationResolver
	events   Publisher
	logger   *zap.Logger
	visitGap time.Duration
	now      func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher sets the settlement event publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.events = p }
}

// WithStationResolver canonicalizes station ids named by admins.
func WithStationResolver(r StationResolver) Option {
	return func(c *Controller) { c.resolver = r }
}

// WithVisitGap sets how long an open record stays matchable. Zero keeps
// open records matchable forever.
func WithVisitGap(d time.Duration) Option {
	return func(c *Controller) { c.visitGap = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a Controller.
func NewController(records RecordStore, stations StationConfigReader, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		records:  records,
		stations: stations,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordLeg applies a gross or tare reading. Each call performs at most one
// write; rejected readings write nothing.
func (c *Controller) RecordLeg(ctx context.Context, sess session.Session, in LegInput) (*models.Record, error) {
	plate, stationID, err := c.validateLeg(sess, in)
	if err != nil {
		return nil, err
	}

	latest, err := c.records.FindLatestByPlate(ctx, plate)
	if err != nil {
		return nil, &PersistenceError{Op: "find latest record", Err: err}
	}

	if in.Leg == models.LegGross {
		return c.applyGross(ctx, plate, stationID, in.Weight, latest)
	}
	return c.applyTare(ctx, plate, stationID, in.Weight, latest)
}

func (c *Controller) validateLeg(sess session.Session, in LegInput) (string, string, error) {
	if !sess.CanWrite() {
		return "", "", ErrForbidden
	}
	if !in.Leg.Valid() {
		return "", "", invalid(ErrInvalidLeg, "got %q", in.Leg)
	}
	plate := NormalizePlate(in.PlateNumber)
	if plate == "" {
		return "", "", &ValidationError{Err: ErrPlateRequired}
	}
	if math.IsNaN(in.Weight) || math.IsInf(in.Weight, 0) || in.Weight <= 0 {
		return "", "", invalid(ErrInvalidWeight, "got %v", in.Weight)
	}

	stationID := strings.TrimSpace(in.StationID)
	if !sess.IsAdmin() {
		if stationID != "" && !sess.CanAccessStation(stationID) {
			return "", "", ErrForbidden
		}
		stationID = sess.StationID
	}
	if stationID == "" {
		return "", "", &ValidationError{Err: ErrStationRequired}
	}
	if c.resolver != nil {
		st, err := c.resolver.Resolve(stationID)
		if err != nil {
			return "", "", err
		}
		stationID = st
	}
	return plate, stationID, nil
}

// visitOpen reports whether latest is still the plate's current visit.
func (c *Controller) visitOpen(latest *models.Record) bool {
	if latest == nil || !latest.Open() {
		return false
	}
	if c.visitGap > 0 && c.now().Sub(latest.Timestamp) > c.visitGap {
		return false
	}
	return true
}

func (c *Controller) applyGross(ctx context.Context, plate, stationID string, weight float64, latest *models.Record) (*models.Record, error) {
	open := c.visitOpen(latest)
	if open && latest.GrossWeight != nil {
		return nil, &LegError{Err: ErrDuplicateLeg, PlateNumber: plate, RecordID: latest.ID}
	}
	if latest != nil && latest.Open() && !open {
		c.logger.Info("open visit expired, starting a new one",
			zap.String("plate", plate),
			zap.Int64("expired_record_id", latest.ID),
			zap.Time("last_update", latest.Timestamp),
		)
	}

	rec := &models.Record{PlateNumber: plate, StationID: stationID}
	if open {
		// An open record without gross only exists after an admin edit.
		cp := *latest
		rec = &cp
	}
	rec.GrossWeight = &weight
	rec.Timestamp = c.now()
	if err := c.snapshotConfig(ctx, rec); err != nil {
		return nil, err
	}
	Recompute(rec)

	var err error
	if rec.ID == 0 {
		var afterID int64
		if latest != nil {
			afterID = latest.ID
		}
		err = c.records.InsertRecord(ctx, rec, afterID)
	} else {
		err = c.records.UpdateRecord(ctx, rec)
	}
	if errors.Is(err, models.ErrStaleWrite) {
		return nil, &LegError{Err: ErrDuplicateLeg, PlateNumber: plate, RecordID: rec.ID}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "save gross leg", Err: err}
	}

	c.logger.Info("gross leg recorded",
		zap.Int64("record_id", rec.ID),
		zap.String("plate", plate),
		zap.String("station", rec.StationID),
		zap.Float64("gross", weight),
	)
	return rec, nil
}

func (c *Controller) applyTare(ctx context.Context, plate, stationID string, weight float64, latest *models.Record) (*models.Record, error) {
	if !c.visitOpen(latest) || latest.GrossWeight == nil {
		return nil, &LegError{Err: ErrMissingGrossLeg, PlateNumber: plate}
	}
	if !strings.EqualFold(latest.StationID, stationID) {
		c.logger.Warn("tare submitted at a different station than gross",
			zap.String("plate", plate),
			zap.String("gross_station", latest.StationID),
			zap.String("tare_station", stationID),
		)
		return nil, &LegError{Err: ErrMissingGrossLeg, PlateNumber: plate}
	}

	rec := *latest
	rec.TareWeight = &weight
	rec.Timestamp = c.now()
	if err := c.snapshotConfig(ctx, &rec); err != nil {
		return nil, err
	}
	Recompute(&rec)

	if err := c.records.UpdateRecord(ctx, &rec); err != nil {
		if errors.Is(err, models.ErrStaleWrite) {
			return nil, &LegError{Err: ErrMissingGrossLeg, PlateNumber: plate, RecordID: rec.ID}
		}
		return nil, &PersistenceError{Op: "save tare leg", Err: err}
	}

	c.logger.Info("visit settled",
		zap.Int64("record_id", rec.ID),
		zap.String("plate", plate),
		zap.String("station", rec.StationID),
		zap.Float64("net", rec.NetWeight),
		zap.Int64("net_after_discount", rec.NetWeightAfterDiscount),
		zap.String("total", rec.TotalAmount.String()),
	)
	c.publishSettled(ctx, rec)
	return &rec, nil
}

// snapshotConfig copies the station's current price and discount onto rec.
func (c *Controller) snapshotConfig(ctx context.Context, rec *models.Record) error {
	cfg, err := c.stations.CurrentConfig(ctx, rec.StationID)
	if err != nil {
		return &PersistenceError{Op: "read station config", Err: err}
	}
	rec.PricePerKg = cfg.PricePerKg
	rec.DiscountPercent = cfg.DiscountPercent
	return nil
}

func (c *Controller) publishSettled(ctx context.Context, rec models.Record) {
	if c.events == nil {
		return
	}
	if err := c.events.RecordSettled(ctx, rec); err != nil {
		c.logger.Warn("publish settlement event failed",
			zap.Int64("record_id", rec.ID),
			zap.Error(err),
		)
	}
}

// EditRecord applies an admin correction and recomputes every derived field
// from the edited inputs.
func (c *Controller) EditRecord(ctx context.Context, sess session.Session, id int64, edit RecordEdit) (*models.Record, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}

	rec, err := c.records.GetRecord(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get record", Err: err}
	}
	wasOpen, origPlate := rec.Open(), rec.PlateNumber

	if edit.PlateNumber != nil {
		plate := NormalizePlate(*edit.PlateNumber)
		if plate == "" {
			return nil, &ValidationError{Err: ErrPlateRequired}
		}
		rec.PlateNumber = plate
	}
	if edit.GrossWeight != nil {
		if err := checkEditedWeight("gross", *edit.GrossWeight); err != nil {
			return nil, err
		}
		rec.GrossWeight = edit.GrossWeight
	}
	if edit.ClearTare {
		rec.TareWeight = nil
	} else if edit.TareWeight != nil {
		if err := checkEditedWeight("tare", *edit.TareWeight); err != nil {
			return nil, err
		}
		rec.TareWeight = edit.TareWeight
	}
	if rec.TareWeight != nil && rec.GrossWeight == nil {
		return nil, &ValidationError{Err: ErrTareWithoutGross}
	}
	if edit.PricePerKg != nil {
		if edit.PricePerKg.IsNegative() {
			return nil, invalid(ErrInvalidPrice, "got %s", edit.PricePerKg.String())
		}
		rec.PricePerKg = *edit.PricePerKg
	}
	if edit.DiscountPercent != nil {
		if err := checkDiscount(*edit.DiscountPercent); err != nil {
			return nil, err
		}
		rec.DiscountPercent = *edit.DiscountPercent
	}

	Recompute(rec)
	if rec.Open() && (!wasOpen || rec.PlateNumber != origPlate) {
		if err := c.checkSoleOpenVisit(ctx, rec); err != nil {
			return nil, err
		}
	}
	if err := c.records.UpdateRecord(ctx, rec); err != nil {
		return nil, &PersistenceError{Op: "update record", Err: err}
	}

	c.logger.Info("record edited",
		zap.Int64("record_id", rec.ID),
		zap.String("plate", rec.PlateNumber),
		zap.String("status", string(rec.Status)),
	)
	return rec, nil
}

// checkSoleOpenVisit rejects an edit that would leave rec open next to the
// plate's current visit.
func (c *Controller) checkSoleOpenVisit(ctx context.Context, rec *models.Record) error {
	latest, err := c.records.FindLatestByPlate(ctx, rec.PlateNumber)
	if err != nil {
		return &PersistenceError{Op: "find latest record", Err: err}
	}
	switch {
	case latest == nil || latest.ID == rec.ID:
		return nil
	case latest.ID > rec.ID:
		return invalid(ErrNewerVisitExists, "plate %s, record %d", rec.PlateNumber, latest.ID)
	case c.visitOpen(latest):
		return invalid(ErrOpenVisitExists, "plate %s, record %d", rec.PlateNumber, latest.ID)
	}
	return nil
}

// checkEditedWeight applies the leg rule: a recorded weight is positive.
func checkEditedWeight(field string, w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return invalid(ErrInvalidWeight, "%s %v", field, w)
	}
	return nil
}

func checkDiscount(pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return invalid(ErrInvalidDiscount, "got %v", pct)
	}
	return nil
}

// GetRecord returns a record visible to the session.
func (c *Controller) GetRecord(ctx context.Context, sess session.Session, id int64) (*models.Record, error) {
	rec, err := c.records.GetRecord(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get record", Err: err}
	}
	if !sess.CanAccessStation(rec.StationID) {
		return nil, ErrForbidden
	}
	return rec, nil
}

// ListRecords lists records; operators only see their own station.
func (c *Controller) ListRecords(ctx context.Context, sess session.Session, q models.RecordQuery) ([]models.Record, error) {
	switch {
	case sess.Role == session.RoleOperator:
		q.StationID = sess.StationID
	case !sess.CanAccessStation(q.StationID):
		return nil, ErrForbidden
	}
	if q.PlateNumber != "" {
		q.PlateNumber = NormalizePlate(q.PlateNumber)
	}

	records, err := c.records.ListRecords(ctx, q)
	if err != nil {
		return nil, &PersistenceError{Op: "list records", Err: err}
	}
	return records, nil
}

// DeleteRecord removes a single record.
func (c *Controller) DeleteRecord(ctx context.Context, sess session.Session, id int64) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	if err := c.records.DeleteRecord(ctx, id); err != nil {
		return &PersistenceError{Op: "delete record", Err: err}
	}
	c.logger.Info("record deleted", zap.Int64("record_id", id))
	return nil
}

// DeleteRecords removes records in bulk and returns how many were deleted.
func (c *Controller) DeleteRecords(ctx context.Context, sess session.Session, ids []int64) (int64, error) {
	if !sess.IsAdmin() {
		return 0, ErrForbidden
	}
	if len(ids) == 0 {
		return 0, &ValidationError{Err: ErrNoRecordIDs}
	}
	n, err := c.records.DeleteRecords(ctx, ids)
	if err != nil {
		return 0, &PersistenceError{Op: "delete records", Err: err}
	}
	c.logger.Info("records deleted", zap.Int("requested", len(ids)), zap.Int64("deleted", n))
	return n, nil
}

// SettlementInput extracts the calculator inputs stored on rec.
func SettlementInput(rec models.Record) settlement.Input {
	return settlement.Input{
		GrossWeight:     rec.GrossWeight,
		TareWeight:      rec.TareWeight,
		DiscountPercent: rec.DiscountPercent,
		PricePerKg:      rec.PricePerKg,
	}
}

// StoredResult extracts the derived figures stored on rec.
func StoredResult(rec models.Record) settlement.Result {
	return settlement.Result{
		NetWeight:              rec.NetWeight,
		NetWeightAfterDiscount: rec.NetWeightAfterDiscount,
		TotalAmount:            rec.TotalAmount,
	}
}

// Recompute overwrites the derived fields and status of rec.
func Recompute(rec *models.Record) {
	res := settlement.Calculate(SettlementInput(*rec))
	rec.NetWeight = res.NetWeight
	rec.NetWeightAfterDiscount = res.NetWeightAfterDiscount
	rec.TotalAmount = res.TotalAmount
	rec.Status = rec.CurrentStatus()
}
