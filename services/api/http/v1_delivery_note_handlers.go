package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/weighing"
)

type deliveryNoteRequest struct {
	DocReference     string           `json:"doc_reference"`
	VehicleID        string           `json:"vehicle_id"`
	Date             *time.Time       `json:"date"`
	WeightIn         float64          `json:"weight_in"`
	WeightOut        float64          `json:"weight_out"`
	LooseWeight      float64          `json:"loose_weight"`
	LooseWeightPrice decimal.Decimal  `json:"loose_weight_price"`
	Bunches          int              `json:"bunches"`
	Penalty          float64          `json:"penalty"`
	Price            decimal.Decimal  `json:"price"`
	Komidel          *decimal.Decimal `json:"komidel"`
	FruitType        string           `json:"fruit_type"`
	RejectedBunches  int              `json:"rejected_bunches"`
	RejectedWeight   float64          `json:"rejected_weight"`
}

func (r deliveryNoteRequest) input() weighing.DeliveryNoteInput {
	return weighing.DeliveryNoteInput{
		DocReference:     r.DocReference,
		VehicleID:        r.VehicleID,
		Date:             r.Date,
		WeightIn:         r.WeightIn,
		WeightOut:        r.WeightOut,
		LooseWeight:      r.LooseWeight,
		LooseWeightPrice: r.LooseWeightPrice,
		Bunches:          r.Bunches,
		Penalty:          r.Penalty,
		Price:            r.Price,
		Komidel:          r.Komidel,
		FruitType:        models.FruitType(r.FruitType),
		RejectedBunches:  r.RejectedBunches,
		RejectedWeight:   r.RejectedWeight,
	}
}

// deliveryNoteQuery reads q, start, end, last_n_days and limit.
func (s *Server) deliveryNoteQuery(c *gin.Context) (models.DeliveryNoteQuery, bool) {
	since, until, ok := s.timeRange(c)
	if !ok {
		return models.DeliveryNoteQuery{}, false
	}
	limit, ok := limitParam(c, s.cfg.DefaultLimit)
	if !ok {
		return models.DeliveryNoteQuery{}, false
	}
	return models.DeliveryNoteQuery{
		Search: c.Query("q"),
		Since:  since,
		Until:  until,
		Limit:  limit,
	}, true
}

// handleV1ListDeliveryNotes lists delivery notes, newest first
// GET /api/v1/delivery-notes?start=&end=&last_n_days=&limit=
func (s *Server) handleV1ListDeliveryNotes(c *gin.Context) {
	q, ok := s.deliveryNoteQuery(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	notes, err := s.deps.DeliveryNotes.List(ctx, currentSession(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": notes,
		"meta": gin.H{"count": len(notes), "limit": q.Limit},
	})
}

// handleV1SearchDeliveryNotes matches doc reference or vehicle id
// GET /api/v1/delivery-notes/search?q=
func (s *Server) handleV1SearchDeliveryNotes(c *gin.Context) {
	if c.Query("q") == "" {
		badRequest(c, "q is required")
		return
	}
	s.handleV1ListDeliveryNotes(c)
}

// handleV1CreateDeliveryNote stores a new delivery note
// POST /api/v1/delivery-notes
func (s *Server) handleV1CreateDeliveryNote(c *gin.Context) {
	var req deliveryNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	note, err := s.deps.DeliveryNotes.Create(ctx, currentSession(c), req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": note})
}

// handleV1GetDeliveryNote returns one delivery note
// GET /api/v1/delivery-notes/:id
func (s *Server) handleV1GetDeliveryNote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	note, err := s.deps.DeliveryNotes.Get(ctx, currentSession(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note})
}

// handleV1UpdateDeliveryNote replaces a delivery note and recomputes it
// PUT /api/v1/delivery-notes/:id
func (s *Server) handleV1UpdateDeliveryNote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req deliveryNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	note, err := s.deps.DeliveryNotes.Update(ctx, currentSession(c), id, req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note})
}

// handleV1DeleteDeliveryNote removes a delivery note
// DELETE /api/v1/delivery-notes/:id
func (s *Server) handleV1DeleteDeliveryNote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.deps.DeliveryNotes.Delete(ctx, currentSession(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleV1DeliveryNoteTotals sums matching delivery notes
// GET /api/v1/delivery-notes/totals?q=&start=&end=&last_n_days=
func (s *Server) handleV1DeliveryNoteTotals(c *gin.Context) {
	q, ok := s.deliveryNoteQuery(c)
	if !ok {
		return
	}
	q.Limit = 0

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	totals, err := s.deps.DeliveryNotes.Totals(ctx, currentSession(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": totals})
}

// handleV1DeliveryNoteTotalsByFruitType sums matching notes per fruit type
// GET /api/v1/delivery-notes/totals/by-fruit-type
func (s *Server) handleV1DeliveryNoteTotalsByFruitType(c *gin.Context) {
	q, ok := s.deliveryNoteQuery(c)
	if !ok {
		return
	}
	q.Limit = 0

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	totals, err := s.deps.DeliveryNotes.TotalsByFruitType(ctx, currentSession(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": totals,
		"meta": gin.H{"count": len(totals)},
	})
}
