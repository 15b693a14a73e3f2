package weighing

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/session"
	"github.com/tbs-timbangan/weighbridge/services/api/settlement"
)

// DeliveryNoteStore persists delivery notes.
type DeliveryNoteStore interface {
	CreateDeliveryNote(ctx context.Context, n *models.DeliveryNote) error
	UpdateDeliveryNote(ctx context.Context, n *models.DeliveryNote) error
	GetDeliveryNote(ctx context.Context, id int64) (*models.DeliveryNote, error)
	DeleteDeliveryNote(ctx context.Context, id int64) error
	ListDeliveryNotes(ctx context.Context, q models.DeliveryNoteQuery) ([]models.DeliveryNote, error)
	DeliveryNoteTotals(ctx context.Context, q models.DeliveryNoteQuery) (models.DeliveryNoteTotals, error)
	DeliveryNoteTotalsByFruitType(ctx context.Context, q models.DeliveryNoteQuery) ([]models.DeliveryNoteTotals, error)
}

// DeliveryNoteInput is what a user enters for a delivery note. The derived
// net weights and total are always computed.
type DeliveryNoteInput struct {
	DocReference     string
	VehicleID        string
	Date             *time.Time
	WeightIn         float64
	WeightOut        float64
	LooseWeight      float64
	LooseWeightPrice decimal.Decimal
	Bunches          int
	Penalty          float64
	Price            decimal.Decimal
	Komidel          *decimal.Decimal
	FruitType        models.FruitType
	RejectedBunches  int
	RejectedWeight   float64
}

// DeliveryNoteService manages delivery notes. Admins write; admins and the
// factory read.
type DeliveryNoteService struct {
	store  DeliveryNoteStore
	logger *zap.Logger
	now    func() time.Time
}

// NewDeliveryNoteService creates a DeliveryNoteService.
func NewDeliveryNoteService(store DeliveryNoteStore, logger *zap.Logger) *DeliveryNoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryNoteService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func canReadNotes(sess session.Session) bool {
	return sess.Role == session.RoleAdmin || sess.Role == session.RoleFactory
}

func (s *DeliveryNoteService) build(in DeliveryNoteInput) (models.DeliveryNote, error) {
	n := models.DeliveryNote{
		DocReference:     strings.TrimSpace(in.DocReference),
		VehicleID:        strings.TrimSpace(in.VehicleID),
		WeightIn:         in.WeightIn,
		WeightOut:        in.WeightOut,
		LooseWeight:      in.LooseWeight,
		LooseWeightPrice: in.LooseWeightPrice,
		Bunches:          in.Bunches,
		Penalty:          in.Penalty,
		Price:            in.Price,
		FruitType:        in.FruitType,
		RejectedBunches:  in.RejectedBunches,
		RejectedWeight:   in.RejectedWeight,
	}

	switch {
	case n.DocReference == "":
		return n, &ValidationError{Err: ErrDocReferenceRequired}
	case n.VehicleID == "":
		return n, &ValidationError{Err: ErrVehicleRequired}
	case in.Komidel == nil:
		return n, &ValidationError{Err: ErrKomidelRequired}
	case !n.FruitType.Valid():
		return n, invalid(ErrInvalidFruitType, "got %q", n.FruitType)
	}
	for name, w := range map[string]float64{
		"weight_in":       n.WeightIn,
		"weight_out":      n.WeightOut,
		"loose_weight":    n.LooseWeight,
		"penalty":         n.Penalty,
		"rejected_weight": n.RejectedWeight,
	} {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return n, invalid(ErrNegativeWeight, "%s %v", name, w)
		}
	}
	if n.Bunches < 0 || n.RejectedBunches < 0 {
		return n, invalid(ErrInvalidCount, "bunches %d, rejected %d", n.Bunches, n.RejectedBunches)
	}
	if n.Price.IsNegative() || n.LooseWeightPrice.IsNegative() {
		return n, invalid(ErrInvalidPrice, "price %s, loose price %s", n.Price, n.LooseWeightPrice)
	}

	n.Komidel = *in.Komidel
	n.Date = s.now()
	if in.Date != nil {
		n.Date = in.Date.UTC()
	}

	res := settlement.CalculateDeliveryNote(settlement.DeliveryNoteInput{
		WeightIn:         n.WeightIn,
		WeightOut:        n.WeightOut,
		Penalty:          n.Penalty,
		LooseWeight:      n.LooseWeight,
		LooseWeightPrice: n.LooseWeightPrice,
		Price:            n.Price,
		Bunches:          n.Bunches,
		RejectedBunches:  n.RejectedBunches,
	})
	n.NetGross = res.NetGross
	n.NetWeight = res.NetWeight
	n.Total = res.Total
	return n, nil
}

// Create validates, computes and stores a new delivery note.
func (s *DeliveryNoteService) Create(ctx context.Context, sess session.Session, in DeliveryNoteInput) (*models.DeliveryNote, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	n, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateDeliveryNote(ctx, &n); err != nil {
		return nil, &PersistenceError{Op: "create delivery note", Err: err}
	}
	s.logger.Info("delivery note created",
		zap.Int64("delivery_note_id", n.ID),
		zap.String("doc_reference", n.DocReference),
		zap.String("total", n.Total.String()),
	)
	return &n, nil
}

// Update replaces a delivery note and recomputes its derived fields. The
// stored date is kept unless a new one is given.
func (s *DeliveryNoteService) Update(ctx context.Context, sess session.Session, id int64, in DeliveryNoteInput) (*models.DeliveryNote, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	cur, err := s.store.GetDeliveryNote(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get delivery note", Err: err}
	}
	if in.Date == nil {
		in.Date = &cur.Date
	}
	n, err := s.build(in)
	if err != nil {
		return nil, err
	}
	n.ID = id
	if err := s.store.UpdateDeliveryNote(ctx, &n); err != nil {
		return nil, &PersistenceError{Op: "update delivery note", Err: err}
	}
	s.logger.Info("delivery note updated", zap.Int64("delivery_note_id", id))
	return &n, nil
}

// Get returns one delivery note.
func (s *DeliveryNoteService) Get(ctx context.Context, sess session.Session, id int64) (*models.DeliveryNote, error) {
	if !canReadNotes(sess) {
		return nil, ErrForbidden
	}
	n, err := s.store.GetDeliveryNote(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get delivery note", Err: err}
	}
	return n, nil
}

// Delete removes one delivery note.
func (s *DeliveryNoteService) Delete(ctx context.Context, sess session.Session, id int64) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	if err := s.store.DeleteDeliveryNote(ctx, id); err != nil {
		return &PersistenceError{Op: "delete delivery note", Err: err}
	}
	s.logger.Info("delivery note deleted", zap.Int64("delivery_note_id", id))
	return nil
}

// List returns delivery notes matching q, newest first.
func (s *DeliveryNoteService) List(ctx context.Context, sess session.Session, q models.DeliveryNoteQuery) ([]models.DeliveryNote, error) {
	if !canReadNotes(sess) {
		return nil, ErrForbidden
	}
	q.Search = strings.TrimSpace(q.Search)
	notes, err := s.store.ListDeliveryNotes(ctx, q)
	if err != nil {
		return nil, &PersistenceError{Op: "list delivery notes", Err: err}
	}
	return notes, nil
}

// Totals sums matching delivery notes.
func (s *DeliveryNoteService) Totals(ctx context.Context, sess session.Session, q models.DeliveryNoteQuery) (models.DeliveryNoteTotals, error) {
	if !canReadNotes(sess) {
		return models.DeliveryNoteTotals{}, ErrForbidden
	}
	t, err := s.store.DeliveryNoteTotals(ctx, q)
	if err != nil {
		return models.DeliveryNoteTotals{}, &PersistenceError{Op: "delivery note totals", Err: err}
	}
	return t, nil
}

// TotalsByFruitType sums matching delivery notes per fruit type.
func (s *DeliveryNoteService) TotalsByFruitType(ctx context.Context, sess session.Session, q models.DeliveryNoteQuery) ([]models.DeliveryNoteTotals, error) {
	if !canReadNotes(sess) {
		return nil, ErrForbidden
	}
	t, err := s.store.DeliveryNoteTotalsByFruitType(ctx, q)
	if err != nil {
		return nil, &PersistenceError{Op: "delivery note totals by fruit type", Err: err}
	}
	return t, nil
}
