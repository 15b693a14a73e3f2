package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbs-timbangan/weighbridge/services/api/weighing"
)

// handleV1ListStations returns the current configuration per station
// GET /api/v1/stations
func (s *Server) handleV1ListStations(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	configs, err := s.deps.Stations.List(ctx, currentSession(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": configs,
		"meta": gin.H{"count": len(configs)},
	})
}

// handleV1StationConfig returns one station's price and discount
// GET /api/v1/stations/:id/config
func (s *Server) handleV1StationConfig(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cfg, err := s.deps.Stations.Config(ctx, currentSession(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

type priceRequest struct {
	PricePerKg *decimal.Decimal `json:"price_per_kg"`
}

func bindPrice(c *gin.Context) (decimal.Decimal, bool) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PricePerKg == nil {
		badRequest(c, "price_per_kg is required")
		return decimal.Decimal{}, false
	}
	return *req.PricePerKg, true
}

// handleV1SetPrice appends a new price for a station
// PUT /api/v1/stations/:id/price
func (s *Server) handleV1SetPrice(c *gin.Context) {
	price, ok := bindPrice(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	entry, err := s.deps.Stations.SetPrice(ctx, currentSession(c), c.Param("id"), price)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

// handleV1SetPriceAll sets one price on every station
// PUT /api/v1/stations/price
func (s *Server) handleV1SetPriceAll(c *gin.Context) {
	price, ok := bindPrice(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	entries, err := s.deps.Stations.SetPriceAll(ctx, currentSession(c), price)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": entries,
		"meta": gin.H{"count": len(entries)},
	})
}

type discountRequest struct {
	DiscountPercent *float64 `json:"discount_percent"`
}

// handleV1SetDiscount replaces a station's discount
// PUT /api/v1/stations/:id/discount
func (s *Server) handleV1SetDiscount(c *gin.Context) {
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DiscountPercent == nil {
		badRequest(c, "discount_percent is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sess := currentSession(c)
	if err := s.deps.Stations.SetDiscount(ctx, sess, c.Param("id"), *req.DiscountPercent); err != nil {
		s.respondError(c, err)
		return
	}
	cfg, err := s.deps.Stations.Config(ctx, sess, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

// handleV1PriceHistory lists a station's prices, newest first
// GET /api/v1/stations/:id/prices?limit=
func (s *Server) handleV1PriceHistory(c *gin.Context) {
	limit, ok := limitParam(c, 50)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	entries, err := s.deps.Stations.PriceHistory(ctx, currentSession(c), c.Param("id"), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": entries,
		"meta": gin.H{"count": len(entries)},
	})
}

// handleV1ScaleReading returns the live load-cell weight of a station
// GET /api/v1/stations/:id/scale
func (s *Server) handleV1ScaleReading(c *gin.Context) {
	st, err := s.deps.Stations.Resolve(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !currentSession(c).CanAccessStation(st) {
		s.respondError(c, weighing.ErrForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ScaleRequestTimeout+time.Second)
	defer cancel()

	reading, err := s.deps.Scale.Reading(ctx, st)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reading})
}
