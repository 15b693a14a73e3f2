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

type legRequest struct {
	PlateNumber string  `json:"plate_number"`
	Weight      float64 `json:"weight"`
	Leg         string  `json:"leg"`
	StationID   string  `json:"station_id"`
}

// handleV1RecordLeg applies a gross or tare reading
// POST /api/v1/records/legs
func (s *Server) handleV1RecordLeg(c *gin.Context) {
	var req legRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	in := weighing.LegInput{
		PlateNumber: req.PlateNumber,
		Weight:      req.Weight,
		Leg:         models.Leg(req.Leg),
		StationID:   req.StationID,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rec, err := s.deps.Records.RecordLeg(ctx, currentSession(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusOK
	if in.Leg == models.LegGross {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": rec})
}

// handleV1ListRecords lists records visible to the session
// GET /api/v1/records?station_id=&plate_number=&start=&end=&last_n_days=&limit=
func (s *Server) handleV1ListRecords(c *gin.Context) {
	since, until, ok := s.timeRange(c)
	if !ok {
		return
	}
	limit, ok := limitParam(c, s.cfg.DefaultLimit)
	if !ok {
		return
	}

	q := models.RecordQuery{
		PlateNumber: c.Query("plate_number"),
		Since:       since,
		Until:       until,
		Limit:       limit,
	}
	if st := c.Query("station_id"); st != "" {
		resolved, err := s.deps.Stations.Resolve(st)
		if err != nil {
			s.respondError(c, err)
			return
		}
		q.StationID = resolved
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	records, err := s.deps.Records.ListRecords(ctx, currentSession(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": records,
		"meta": gin.H{
			"count": len(records),
			"limit": limit,
		},
	})
}

// handleV1GetRecord returns one record
// GET /api/v1/records/:id
func (s *Server) handleV1GetRecord(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rec, err := s.deps.Records.GetRecord(ctx, currentSession(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

type editRequest struct {
	PlateNumber     *string          `json:"plate_number"`
	GrossWeight     *float64         `json:"gross_weight"`
	TareWeight      *float64         `json:"tare_weight"`
	ClearTare       bool             `json:"clear_tare"`
	PricePerKg      *decimal.Decimal `json:"price_per_kg"`
	DiscountPercent *float64         `json:"discount_percent"`
}

// handleV1EditRecord applies an admin correction
// PUT /api/v1/records/:id
func (s *Server) handleV1EditRecord(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rec, err := s.deps.Records.EditRecord(ctx, currentSession(c), id, weighing.RecordEdit{
		PlateNumber:     req.PlateNumber,
		GrossWeight:     req.GrossWeight,
		TareWeight:      req.TareWeight,
		ClearTare:       req.ClearTare,
		PricePerKg:      req.PricePerKg,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

// handleV1DeleteRecord removes one record
// DELETE /api/v1/records/:id
func (s *Server) handleV1DeleteRecord(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.deps.Records.DeleteRecord(ctx, currentSession(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// handleV1BulkDeleteRecords removes several records at once
// POST /api/v1/records/bulk-delete
func (s *Server) handleV1BulkDeleteRecords(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	n, err := s.deps.Records.DeleteRecords(ctx, currentSession(c), req.IDs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"deleted": n},
		"meta": gin.H{"requested": len(req.IDs)},
	})
}
