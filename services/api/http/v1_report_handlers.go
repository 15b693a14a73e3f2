package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/report"
)

// reportRecords loads every record in the requested window that the session
// may see, defaulting to the last DefaultDays. It writes the error response
// itself and reports false on failure.
func (s *Server) reportRecords(c *gin.Context) ([]models.Record, report.Filter, bool) {
	since, until, ok := s.timeRange(c)
	if !ok {
		return nil, report.Filter{}, false
	}
	if since == nil && until == nil && s.cfg.DefaultDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, -s.cfg.DefaultDays)
		since = &t
	}

	q := models.RecordQuery{Since: since, Until: until}
	if st := c.Query("station_id"); st != "" {
		resolved, err := s.deps.Stations.Resolve(st)
		if err != nil {
			s.respondError(c, err)
			return nil, report.Filter{}, false
		}
		q.StationID = resolved
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	records, err := s.deps.Records.ListRecords(ctx, currentSession(c), q)
	if err != nil {
		s.respondError(c, err)
		return nil, report.Filter{}, false
	}

	f := report.Filter{StationID: q.StationID}
	if since != nil {
		f.Start = *since
	}
	if until != nil {
		f.End = *until
	}
	return records, f, true
}

func filterMeta(f report.Filter) gin.H {
	meta := gin.H{}
	if f.StationID != "" {
		meta["station_id"] = f.StationID
	}
	if !f.Start.IsZero() {
		meta["start"] = f.Start
	}
	if !f.End.IsZero() {
		meta["end"] = f.End
	}
	return meta
}

// handleV1ReportSummary returns per-station totals
// GET /api/v1/reports/summary?station_id=&start=&end=&last_n_days=
func (s *Server) handleV1ReportSummary(c *gin.Context) {
	records, f, ok := s.reportRecords(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": report.Summarize(records, f),
		"meta": filterMeta(f),
	})
}

// handleV1ReportDaily returns totals per day and station
// GET /api/v1/reports/daily?station_id=&start=&end=&last_n_days=
func (s *Server) handleV1ReportDaily(c *gin.Context) {
	records, f, ok := s.reportRecords(c)
	if !ok {
		return
	}
	days := report.Daily(records, f, s.cfg.ReportLocation)

	meta := filterMeta(f)
	meta["count"] = len(days)
	if s.cfg.ReportLocation != nil {
		meta["timezone"] = s.cfg.ReportLocation.String()
	}
	c.JSON(http.StatusOK, gin.H{"data": days, "meta": meta})
}

// handleV1ReportComparison lines delivery notes up against weighed totals
// GET /api/v1/reports/comparison?start=&end=&last_n_days=
func (s *Server) handleV1ReportComparison(c *gin.Context) {
	records, f, ok := s.reportRecords(c)
	if !ok {
		return
	}

	q := models.DeliveryNoteQuery{}
	if !f.Start.IsZero() {
		start := f.Start
		q.Since = &start
	}
	if !f.End.IsZero() {
		end := f.End
		q.Until = &end
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	notes, err := s.deps.DeliveryNotes.Totals(ctx, currentSession(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}

	weighed := report.Summarize(records, f).Total
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"delivery_notes": notes,
			"weighed":        weighed,
			"difference":     report.CompareDeliveries(notes, weighed),
		},
		"meta": filterMeta(f),
	})
}
