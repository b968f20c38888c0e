package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional; CSV run logs work without it)
	Database DatabaseConfig

	// Redis (optional cache / rate limiting)
	Redis RedisConfig

	// External data providers
	Coinbase CoinbaseConfig
	Metrics  MetricsConfig
	Equity   EquityConfig

	// Run logging
	LogDir string

	// Scheduler
	RecomputeSchedule string // cron spec for the periodic factor recompute

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// CoinbaseConfig holds the Coinbase market data API configuration.
type CoinbaseConfig struct {
	BaseURL        string
	RequestsPerSec float64
}

// MetricsConfig holds the on-chain metrics provider configuration.
type MetricsConfig struct {
	BaseURL string
	APIKey  string
}

// EquityConfig holds the equity price provider configuration.
type EquityConfig struct {
	BaseURL string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Coinbase: CoinbaseConfig{
			BaseURL:        getEnv("COINBASE_BASE_URL", "https://api.coinbase.com/api/v3/brokerage/market"),
			RequestsPerSec: getEnvAsFloat("COINBASE_REQUESTS_PER_SEC", 10),
		},

		Metrics: MetricsConfig{
			BaseURL: getEnv("METRICS_BASE_URL", "https://api.artemisxyz.com"),
			APIKey:  getEnv("METRICS_API_KEY", ""),
		},

		Equity: EquityConfig{
			BaseURL: getEnv("EQUITY_BASE_URL", "https://stooq.com"),
		},

		LogDir: getEnv("FACTOR_LOG_DIR", "factor_logs"),

		RecomputeSchedule: getEnv("RECOMPUTE_SCHEDULE", "0 0 6 * * 1"), // Mondays 06:00

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.LogDir == "" {
		return fmt.Errorf("FACTOR_LOG_DIR must not be empty")
	}

	if c.Coinbase.RequestsPerSec <= 0 {
		return fmt.Errorf("COINBASE_REQUESTS_PER_SEC must be positive")
	}

	return nil
}

// HasDatabase reports whether a Postgres connection is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
