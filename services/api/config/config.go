package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MemoryDatabaseURL selects the in-process store instead of PostgreSQL.
const MemoryDatabaseURL = "memory://"

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL  string
	Port         int
	BearerToken  string
	DefaultLimit int
	DefaultDays  int

	Stations       []string
	VisitGap       time.Duration
	ReportLocation *time.Location

	ScaleFeedURL        string
	ScaleFeedPaths      map[string]string
	ScaleRequestTimeout time.Duration

	KafkaBrokers      []string
	KafkaTopic        string
	KafkaRequiredAcks string

	RateLimit float64

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:                8080,
		DefaultLimit:        200,
		DefaultDays:         7,
		Stations:            []string{"Binanga", "Paranjulu", "Portibi"},
		VisitGap:            24 * time.Hour,
		ScaleRequestTimeout: 5 * time.Second,
		KafkaTopic:          "weighbridge.settlements",
		KafkaRequiredAcks:   "all",
		LogLevel:            "info",
		LogFormat:           "json",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if limitStr := os.Getenv("API_DEFAULT_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			cfg.DefaultLimit = limit
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", limitStr)
		}
	}

	if daysStr := os.Getenv("API_DEFAULT_DAYS"); daysStr != "" {
		if days, err := strconv.Atoi(daysStr); err == nil && days > 0 {
			cfg.DefaultDays = days
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_DAYS: %s", daysStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	if stations := splitList(os.Getenv("STATIONS")); len(stations) > 0 {
		cfg.Stations = stations
	}

	if gapStr := os.Getenv("VISIT_GAP"); gapStr != "" {
		gap, err := parseDuration(gapStr)
		if err != nil || gap < 0 {
			return cfg, fmt.Errorf("invalid VISIT_GAP: %s", gapStr)
		}
		cfg.VisitGap = gap
	}

	tz := os.Getenv("REPORT_TIMEZONE")
	if tz == "" {
		tz = "Asia/Jakarta"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("invalid REPORT_TIMEZONE: %s", tz)
	}
	cfg.ReportLocation = loc

	cfg.ScaleFeedURL = os.Getenv("SCALE_FEED_URL")
	paths, err := parsePairs(os.Getenv("SCALE_FEED_PATHS"))
	if err != nil {
		return cfg, fmt.Errorf("invalid SCALE_FEED_PATHS: %w", err)
	}
	cfg.ScaleFeedPaths = paths
	if timeoutStr := os.Getenv("SCALE_REQUEST_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil || timeout <= 0 {
			return cfg, fmt.Errorf("invalid SCALE_REQUEST_TIMEOUT: %s", timeoutStr)
		}
		cfg.ScaleRequestTimeout = timeout
	}

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		cfg.KafkaTopic = topic
	}
	if acks := os.Getenv("KAFKA_REQUIRED_ACKS"); acks != "" {
		cfg.KafkaRequiredAcks = acks
	}

	if rateStr := os.Getenv("API_RATE_LIMIT"); rateStr != "" {
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil && rate >= 0 {
			cfg.RateLimit = rate
		} else {
			return cfg, fmt.Errorf("invalid API_RATE_LIMIT: %s", rateStr)
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		if format != "json" && format != "console" {
			return cfg, fmt.Errorf("invalid LOG_FORMAT: %s", format)
		}
		cfg.LogFormat = format
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// UseMemoryStore reports whether the in-process store was requested.
func (c Config) UseMemoryStore() bool {
	return c.DatabaseURL == MemoryDatabaseURL
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDuration accepts Go durations and a bare "0".
func parseDuration(v string) (time.Duration, error) {
	if v == "0" {
		return 0, nil
	}
	return time.ParseDuration(v)
}

// parsePairs parses "a=x,b=y".
func parsePairs(v string) (map[string]string, error) {
	out := map[string]string{}
	for _, item := range splitList(v) {
		key, val, ok := strings.Cut(item, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			return nil, fmt.Errorf("expected station=path, got %q", item)
		}
		out[key] = val
	}
	return out, nil
}
