package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Cache
	CacheMaxEntries int
	CacheSweep      time.Duration
	PreviewTTL      time.Duration
	MetricTTL       time.Duration
	GoalTTL         time.Duration
	DashboardTTL    time.Duration

	// Report export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	ExportInterval        time.Duration

	// Backend selection
	DataBackend string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetpulse.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetpulse.changes"),
		AMQPQueue:    getEnv("AMQP_QUEUE", ""),

		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 4096),
		CacheSweep:      getEnvDuration("CACHE_SWEEP_INTERVAL", time.Minute),
		PreviewTTL:      getEnvDuration("CACHE_PREVIEW_TTL", 5*time.Minute),
		MetricTTL:       getEnvDuration("CACHE_METRIC_TTL", 15*time.Minute),
		GoalTTL:         getEnvDuration("CACHE_GOAL_TTL", 15*time.Minute),
		DashboardTTL:    getEnvDuration("CACHE_DASHBOARD_TTL", 3*time.Minute),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Reports"),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		ExportInterval:        getEnvDuration("EXPORT_INTERVAL", time.Hour),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.CacheMaxEntries < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be positive", c.CacheMaxEntries))
	}
	for name, ttl := range map[string]time.Duration{
		"CACHE_PREVIEW_TTL":   c.PreviewTTL,
		"CACHE_METRIC_TTL":    c.MetricTTL,
		"CACHE_GOAL_TTL":      c.GoalTTL,
		"CACHE_DASHBOARD_TTL": c.DashboardTTL,
	} {
		if ttl <= 0 {
			errs = append(errs, fmt.Sprintf("invalid %s: must be positive", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
