package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultDatasetURL is the public copy of the historical automobile sales CSV.
const DefaultDatasetURL = "https://cf-courses-data.s3.us.cloud-object-storage.appdomain.cloud/IBMDeveloperSkillsNetwork-DV0101EN-SkillsNetwork/Data%20Files/historical_automobile_sales.csv"

// Dataset source kinds.
const (
	SourceURL    = "url"
	SourceFile   = "file"
	SourceSheets = "sheets"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string

	// Dataset
	DatasetSource string
	DatasetURL    string
	DatasetFile   string
	FetchTimeout  time.Duration

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetRange    string

	// Chart cache
	ChartCacheSize int
	ChartCacheTTL  time.Duration

	// Logging
	Debug    bool
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8050"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DatasetSource: getEnv("DATASET_SOURCE", SourceURL),
		DatasetURL:    getEnv("DATASET_URL", DefaultDatasetURL),
		DatasetFile:   getEnv("DATASET_FILE", ""),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 30*time.Second),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:    getEnv("GOOGLE_SHEET_RANGE", "A:Z"),

		ChartCacheSize: getEnvInt("CHART_CACHE_SIZE", 64),
		ChartCacheTTL:  getEnvDuration("CHART_CACHE_TTL", time.Hour),

		Debug:    getEnvBool("DEBUG", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate dataset source
	validSources := []string{SourceURL, SourceFile, SourceSheets}
	isValidSource := false
	for _, s := range validSources {
		if c.DatasetSource == s {
			isValidSource = true
			break
		}
	}
	if !isValidSource {
		errors = append(errors, fmt.Sprintf("invalid dataset source '%s': must be one of %v", c.DatasetSource, validSources))
	}

	switch c.DatasetSource {
	case SourceURL:
		if parsedURL, err := url.Parse(c.DatasetURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid dataset URL '%s': %v", c.DatasetURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid dataset URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	case SourceFile:
		if c.DatasetFile == "" {
			errors = append(errors, "DATASET_FILE is required when using file source")
		} else if _, err := os.Stat(c.DatasetFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("dataset file does not exist: %s", c.DatasetFile))
		}
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleSheetRange == "" {
			errors = append(errors, "Google Sheet range is required when using sheets source")
		}
	}

	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	} else if c.FetchTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 10 minutes", c.FetchTimeout))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.ChartCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid chart cache size %d: must be at least 1", c.ChartCacheSize))
	} else if c.ChartCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid chart cache size %d: must be at most 10000", c.ChartCacheSize))
	}
	if c.ChartCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid chart cache TTL %v: must be at least 1 second", c.ChartCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
