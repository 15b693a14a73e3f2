package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// parseTimeParam accepts RFC3339 or a plain date in loc. A plain date used
// as an upper bound covers the whole day.
func parseTimeParam(v string, loc *time.Location, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t.UTC(), nil
}

// timeRange reads start, end and last_n_days. It writes the 400 response
// itself and reports false on bad input.
func (s *Server) timeRange(c *gin.Context) (since, until *time.Time, ok bool) {
	if daysStr := c.Query("last_n_days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			badRequest(c, "invalid last_n_days")
			return nil, nil, false
		}
		t := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
		since = &t
	}

	if startStr := c.Query("start"); startStr != "" {
		t, err := parseTimeParam(startStr, s.cfg.ReportLocation, false)
		if err != nil {
			badRequest(c, "invalid start timestamp")
			return nil, nil, false
		}
		since = &t
	}

	if endStr := c.Query("end"); endStr != "" {
		t, err := parseTimeParam(endStr, s.cfg.ReportLocation, true)
		if err != nil {
			badRequest(c, "invalid end timestamp")
			return nil, nil, false
		}
		until = &t
	}
	return since, until, true
}

// limitParam reads limit, falling back to def.
func limitParam(c *gin.Context, def int) (int, bool) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return def, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		badRequest(c, "invalid limit")
		return 0, false
	}
	return limit, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
