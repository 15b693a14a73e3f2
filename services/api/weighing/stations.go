package weighing

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/session"
)

// StationStore persists per-station price and discount.
type StationStore interface {
	StationConfigReader
	SetPrice(ctx context.Context, stationID string, price decimal.Decimal) (models.PriceEntry, error)
	SetDiscount(ctx context.Context, stationID string, percent float64) error
	PriceHistory(ctx context.Context, stationID string, limit int) ([]models.PriceEntry, error)
}

// StationService reads and changes station configuration. Writes fully
// replace the value; settlements read whatever is current at leg time.
type StationService struct {
	store    StationStore
	stations []string
	logger   *zap.Logger
}

// NewStationService creates a StationService for the configured stations.
func NewStationService(store StationStore, stations []string, logger *zap.Logger) *StationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StationService{store: store, stations: stations, logger: logger}
}

// Stations returns the configured station ids.
func (s *StationService) Stations() []string {
	out := make([]string, len(s.stations))
	copy(out, s.stations)
	return out
}

// Resolve maps a station id to its configured spelling, ignoring case.
func (s *StationService) Resolve(stationID string) (string, error) {
	for _, st := range s.stations {
		if strings.EqualFold(st, strings.TrimSpace(stationID)) {
			return st, nil
		}
	}
	return "", invalid(ErrUnknownStation, "%q", stationID)
}

// List returns the current configuration of every station visible to sess.
func (s *StationService) List(ctx context.Context, sess session.Session) ([]models.StationConfig, error) {
	out := make([]models.StationConfig, 0, len(s.stations))
	for _, st := range s.stations {
		if !sess.CanAccessStation(st) {
			continue
		}
		cfg, err := s.store.CurrentConfig(ctx, st)
		if err != nil {
			return nil, &PersistenceError{Op: "read station config", Err: err}
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Config returns one station's current configuration.
func (s *StationService) Config(ctx context.Context, sess session.Session, stationID string) (models.StationConfig, error) {
	st, err := s.Resolve(stationID)
	if err != nil {
		return models.StationConfig{}, err
	}
	if !sess.CanAccessStation(st) {
		return models.StationConfig{}, ErrForbidden
	}
	cfg, err := s.store.CurrentConfig(ctx, st)
	if err != nil {
		return models.StationConfig{}, &PersistenceError{Op: "read station config", Err: err}
	}
	return cfg, nil
}

// SetPrice appends a new price for one station.
func (s *StationService) SetPrice(ctx context.Context, sess session.Session, stationID string, price decimal.Decimal) (models.PriceEntry, error) {
	st, err := s.writable(sess, stationID)
	if err != nil {
		return models.PriceEntry{}, err
	}
	if price.IsNegative() {
		return models.PriceEntry{}, invalid(ErrInvalidPrice, "got %s", price.String())
	}

	entry, err := s.store.SetPrice(ctx, st, price)
	if err != nil {
		return models.PriceEntry{}, &PersistenceError{Op: "set price", Err: err}
	}
	s.logger.Info("price updated",
		zap.String("station", st),
		zap.String("price_per_kg", price.String()),
		zap.String("by", string(sess.Role)),
	)
	return entry, nil
}

// SetPriceAll sets the same price on every station. Admin only.
func (s *StationService) SetPriceAll(ctx context.Context, sess session.Session, price decimal.Decimal) ([]models.PriceEntry, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	if price.IsNegative() {
		return nil, invalid(ErrInvalidPrice, "got %s", price.String())
	}

	out := make([]models.PriceEntry, 0, len(s.stations))
	for _, st := range s.stations {
		entry, err := s.store.SetPrice(ctx, st, price)
		if err != nil {
			return out, &PersistenceError{Op: "set price " + st, Err: err}
		}
		out = append(out, entry)
	}
	s.logger.Info("price updated for all stations",
		zap.Int("stations", len(out)),
		zap.String("price_per_kg", price.String()),
	)
	return out, nil
}

// SetDiscount replaces a station's discount percentage.
func (s *StationService) SetDiscount(ctx context.Context, sess session.Session, stationID string, percent float64) error {
	st, err := s.writable(sess, stationID)
	if err != nil {
		return err
	}
	if err := checkDiscount(percent); err != nil {
		return err
	}
	if err := s.store.SetDiscount(ctx, st, percent); err != nil {
		return &PersistenceError{Op: "set discount", Err: err}
	}
	s.logger.Info("discount updated",
		zap.String("station", st),
		zap.Float64("discount_percent", percent),
		zap.String("by", string(sess.Role)),
	)
	return nil
}

// PriceHistory returns a station's prices, newest first.
func (s *StationService) PriceHistory(ctx context.Context, sess session.Session, stationID string, limit int) ([]models.PriceEntry, error) {
	st, err := s.Resolve(stationID)
	if err != nil {
		return nil, err
	}
	if !sess.CanAccessStation(st) {
		return nil, ErrForbidden
	}
	entries, err := s.store.PriceHistory(ctx, st, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "price history", Err: err}
	}
	return entries, nil
}

func (s *StationService) writable(sess session.Session, stationID string) (string, error) {
	st, err := s.Resolve(stationID)
	if err != nil {
		return "", err
	}
	if !sess.CanWrite() || !sess.CanAccessStation(st) {
		return "", ErrForbidden
	}
	return st, nil
}
