// Package scale reads the live load-cell weight that each station's scale
// pushes to the IoT realtime database.
package scale

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

// ErrNotConfigured is returned when no feed URL is set.
var ErrNotConfigured = errors.New("scale feed not configured")

// Client fetches `<base>/<path>/berat.json` for a station. The path defaults
// to the station id and can be overridden per station.
type Client struct {
	http    *http.Client
	baseURL string
	paths   map[string]string
	now     func() time.Time
}

// NewClient creates a Client. An empty baseURL yields a client whose Reading
// always fails with ErrNotConfigured.
func NewClient(httpClient *http.Client, baseURL string, paths map[string]string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	lower := make(map[string]string, len(paths))
	for st, p := range paths {
		lower[strings.ToLower(st)] = strings.Trim(p, "/")
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   lower,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (c *Client) readingURL(stationID string) string {
	path, ok := c.paths[strings.ToLower(stationID)]
	if !ok {
		path = url.PathEscape(stationID)
	}
	return c.baseURL + "/" + path + "/berat.json"
}

// Reading returns the current scale weight of a station. A missing or
// sentinel value gives a reading with a nil Weight.
func (c *Client) Reading(ctx context.Context, stationID string) (models.ScaleReading, error) {
	if c.baseURL == "" {
		return models.ScaleReading{}, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.readingURL(stationID), nil)
	if err != nil {
		return models.ScaleReading{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.ScaleReading{}, fmt.Errorf("request scale feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.ScaleReading{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.ScaleReading{}, fmt.Errorf("decode payload: %w", err)
	}
	weight, err := parseWeight(raw)
	if err != nil {
		return models.ScaleReading{}, err
	}

	return models.ScaleReading{
		StationID: stationID,
		Weight:    NormalizeWeight(weight),
		FetchedAt: c.now(),
	}, nil
}

// parseWeight accepts a JSON number, a numeric string or null.
func parseWeight(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode weight: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
	} else {
		s = string(raw)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("decode weight %q: %w", s, err)
	}
	return &v, nil
}

// NormalizeWeight drops values a load cell reports when it has no reading:
// negatives and the -999 style sentinels.
func NormalizeWeight(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v < 0 {
		return nil
	}
	val := *v
	return &val
}
