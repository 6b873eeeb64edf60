// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for all on-disk stores (always absolute)
	Port         int
	DevMode      bool
	LogLevel     string
	LogPretty    bool
	BaseCurrency string // Currency the snapshot values arrive in

	// Fund-detail scraping
	JustETFBaseURL string
	ScrapeDelay    time.Duration // Pause between requests in a batch update
	FundStaleDays  int           // Store records older than this are refreshed

	// Ticker→sector lookups
	YahooBaseURL      string
	OpenFIGIBaseURL   string
	OpenFIGIAPIKey    string
	SectorMaxAgeDays  int
	SectorWarmWorkers int

	// Scheduled jobs
	SchedulerEnabled    bool
	FundRefreshSchedule string
	CachePruneSchedule  string
	BackupSchedule      string

	Backup *BackupConfig
}

// BackupConfig holds S3 backup settings. Backups are disabled when Bucket is empty.
type BackupConfig struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // Optional custom endpoint (e.g. MinIO)
}

// Enabled reports whether a backup destination is configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Resolve the data directory to an absolute path and make sure it exists.
	dataDir := getEnv("DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		Port:         getEnvAsInt("PORT", 8090),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnvAsBool("LOG_PRETTY", false),
		BaseCurrency: getEnv("BASE_CURRENCY", "EUR"),

		JustETFBaseURL: getEnv("JUSTETF_BASE_URL", "https://www.justetf.com"),
		ScrapeDelay:    time.Duration(getEnvAsInt("SCRAPE_DELAY_MS", 2000)) * time.Millisecond,
		FundStaleDays:  getEnvAsInt("FUND_STALE_DAYS", 30),

		YahooBaseURL:      getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		OpenFIGIBaseURL:   getEnv("OPENFIGI_BASE_URL", "https://api.openfigi.com/v3"),
		OpenFIGIAPIKey:    getEnv("OPENFIGI_API_KEY", ""),
		SectorMaxAgeDays:  getEnvAsInt("SECTOR_MAX_AGE_DAYS", 90),
		SectorWarmWorkers: getEnvAsInt("SECTOR_WARM_WORKERS", 4),

		// Six-field cron expressions (with seconds).
		SchedulerEnabled:    getEnvAsBool("SCHEDULER_ENABLED", true),
		FundRefreshSchedule: getEnv("FUND_REFRESH_SCHEDULE", "0 0 3 * * *"),
		CachePruneSchedule:  getEnv("CACHE_PRUNE_SCHEDULE", "0 30 3 * * *"),
		BackupSchedule:      getEnv("BACKUP_SCHEDULE", "0 0 4 * * 0"),

		Backup: &BackupConfig{
			Bucket:   getEnv("BACKUP_S3_BUCKET", ""),
			Prefix:   getEnv("BACKUP_S3_PREFIX", "clusterrisk"),
			Region:   getEnv("BACKUP_S3_REGION", "eu-central-1"),
			Endpoint: getEnv("BACKUP_S3_ENDPOINT", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.FundStaleDays <= 0 {
		return fmt.Errorf("FUND_STALE_DAYS must be positive, got %d", c.FundStaleDays)
	}
	if c.SectorMaxAgeDays <= 0 {
		return fmt.Errorf("SECTOR_MAX_AGE_DAYS must be positive, got %d", c.SectorMaxAgeDays)
	}
	return nil
}

// DetailsDir returns the directory holding the per-fund detail records.
func (c *Config) DetailsDir() string {
	return filepath.Join(c.DataDir, "etf_details")
}

// OverlayPath returns the path of the user-maintained holdings overlay file.
func (c *Config) OverlayPath() string {
	return filepath.Join(c.DataDir, "user_etf_holdings.csv")
}

// HistoryDBPath returns the path of the analysis history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "clusterrisk.db")
}

// CacheDBPath returns the path of the lookup cache database.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
