// Package report sums the stored settlement figures of weighing records.
// Nothing here recomputes discount or price math; every total is built from
// the per-record fields written by the settlement calculator.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

// Filter selects records by station and timestamp. Start is inclusive, End
// exclusive; zero values leave that side open.
type Filter struct {
	StationID string
	Start     time.Time
	End       time.Time
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec models.Record) bool {
	if f.StationID != "" && !strings.EqualFold(f.StationID, rec.StationID) {
		return false
	}
	if !f.Start.IsZero() && rec.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && !rec.Timestamp.Before(f.End) {
		return false
	}
	return true
}

// StationTotals sums one group of records.
type StationTotals struct {
	StationID              string          `json:"station_id,omitempty"`
	Records                int             `json:"records"`
	Settled                int             `json:"settled"`
	Open                   int             `json:"open"`
	NetWeight              float64         `json:"net_weight"`
	NetWeightAfterDiscount int64           `json:"net_weight_after_discount"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
}

func (t *StationTotals) add(rec models.Record) {
	t.Records++
	if rec.Open() {
		t.Open++
	} else {
		t.Settled++
	}
	t.NetWeight += rec.NetWeight
	t.NetWeightAfterDiscount += rec.NetWeightAfterDiscount
	t.TotalAmount = t.TotalAmount.Add(rec.TotalAmount)
}

// Summary is the per-station and overall total of a filtered record set.
type Summary struct {
	Filter   Filter          `json:"-"`
	Stations []StationTotals `json:"stations"`
	Total    StationTotals   `json:"total"`
}

// Summarize groups records by station. Stations are sorted by id.
func Summarize(records []models.Record, f Filter) Summary {
	byStation := map[string]*StationTotals{}
	var total StationTotals

	for _, rec := range records {
		if !f.Match(rec) {
			continue
		}
		st, ok := byStation[rec.StationID]
		if !ok {
			st = &StationTotals{StationID: rec.StationID}
			byStation[rec.StationID] = st
		}
		st.add(rec)
		total.add(rec)
	}

	out := make([]StationTotals, 0, len(byStation))
	for _, st := range byStation {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })

	return Summary{Filter: f, Stations: out, Total: total}
}

// DayTotals is one station's totals for one calendar day.
type DayTotals struct {
	Date string `json:"date"`
	StationTotals
}

// Daily splits records into calendar days in loc, then by station. Days are
// returned oldest first.
func Daily(records []models.Record, f Filter, loc *time.Location) []DayTotals {
	if loc == nil {
		loc = time.UTC
	}
	type key struct{ day, station string }
	groups := map[key]*DayTotals{}

	for _, rec := range records {
		if !f.Match(rec) {
			continue
		}
		k := key{day: rec.Timestamp.In(loc).Format(time.DateOnly), station: rec.StationID}
		g, ok := groups[k]
		if !ok {
			g = &DayTotals{Date: k.day, StationTotals: StationTotals{StationID: rec.StationID}}
			groups[k] = g
		}
		g.add(rec)
	}

	out := make([]DayTotals, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StationID < out[j].StationID
	})
	return out
}
