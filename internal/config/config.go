// Package config loads application configuration from the environment and the optional
// preferences file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/mtlprog/cartera/internal/domain"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Store                 string
	DatabaseURL           string
	SQLitePath            string
	HTTPPort              string
	DolarAPIURL           string
	CoinGeckoURL          string
	YahooURL              string
	HTTPRetryMax          int
	HTTPRetryBaseDelay    time.Duration
	QuoteCacheTTL         time.Duration
	QuoteWorkerInterval   time.Duration
	ReportWorkerInterval  time.Duration
	AccrualSchedule       string
	AdminAPIKey           string
	SyncURL               string
	SyncToken             string
	GoogleSheetsID        string
	GoogleCredentialsJSON string
	ReportXLSXPath        string
	PreferencesFile       string
	LogLevel              string
	Preferences           domain.Preferences
}

// Load reads a .env file when present, then configuration from environment variables with
// sensible defaults, then the valuation preferences.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		SQLitePath:            envOrDefault("SQLITE_PATH", "cartera.db"),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		DolarAPIURL:           envOrDefault("DOLARAPI_URL", "https://dolarapi.com"),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		YahooURL:              envOrDefault("YAHOO_URL", "https://query1.finance.yahoo.com"),
		HTTPRetryMax:          envOrDefaultInt("HTTP_RETRY_MAX", 3),
		HTTPRetryBaseDelay:    envOrDefaultDuration("HTTP_RETRY_BASE_DELAY", 2*time.Second),
		QuoteCacheTTL:         envOrDefaultDuration("QUOTE_CACHE_TTL", 5*time.Minute),
		QuoteWorkerInterval:   envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 15*time.Minute),
		ReportWorkerInterval:  envOrDefaultDuration("REPORT_WORKER_INTERVAL", 24*time.Hour),
		AccrualSchedule:       envOrDefault("ACCRUAL_SCHEDULE", "5 0 * * *"),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
		SyncURL:               envOrDefault("SYNC_URL", ""),
		SyncToken:             envOrDefault("SYNC_TOKEN", ""),
		GoogleSheetsID:        envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
		ReportXLSXPath:        envOrDefault("REPORT_XLSX_PATH", ""),
		PreferencesFile:       envOrDefault("PREFERENCES_FILE", "preferences.toml"),
		LogLevel:              envOrDefault("LOG_LEVEL", "info"),
	}

	cfg.Store = envOrDefault("STORE", "")
	if cfg.Store == "" {
		cfg.Store = StoreSQLite
		if cfg.DatabaseURL != "" {
			cfg.Store = StorePostgres
		}
	}
	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("STORE=postgres requires DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	prefs, err := LoadPreferences(cfg.PreferencesFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Preferences = prefs
	return cfg, nil
}

// LoadPreferences merges the TOML file at path over the default preferences. A missing
// file leaves the defaults.
func LoadPreferences(path string) (domain.Preferences, error) {
	prefs := domain.DefaultPreferences()
	if path == "" {
		return prefs, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("reading preferences %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &prefs); err != nil {
		return domain.Preferences{}, fmt.Errorf("parsing preferences %s: %w", path, err)
	}
	if err := prefs.Validate(); err != nil {
		return domain.Preferences{}, fmt.Errorf("preferences %s: %w", path, err)
	}
	return prefs, nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
