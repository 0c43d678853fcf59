package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rollpace/rollpace-backend/internal/domain"
)

// Backend names the store the engine reads budgets and transactions from
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	// Data source
	Backend      Backend
	DatabaseURL  string
	SQLiteDBPath string

	// Auth0
	Auth0Domain   string
	Auth0Audience string

	// Server
	Port            string
	CORSOrigins     []string
	Env             string
	ReportTimeout   time.Duration
	ReportRateLimit float64
	ReportRateBurst int

	Engine EngineConfig
	AMQP   AMQPConfig
}

// EngineConfig holds the rollover and pacing settings
type EngineConfig struct {
	HistoricalLookbackMonths int
	RolloverMaxDepth         int
	RolloverSignPolicy       domain.RolloverSignPolicy
	IncomeOffsetPolicy       domain.IncomeOffsetPolicy
	CacheEnabled             bool
	CacheMaxEntries          int64
	CacheTTL                 time.Duration
}

// AMQPConfig holds the ledger-change consumer settings. An empty URL disables it.
type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// Enabled reports whether a broker URL is configured
func (a AMQPConfig) Enabled() bool {
	return a.URL != ""
}

// Load reads configuration for the API server from environment variables
func Load() (*Config, error) {
	return load(true)
}

// LoadWithoutAuth reads configuration for tools that never serve HTTP
func LoadWithoutAuth() (*Config, error) {
	return load(false)
}

func load(requireAuth bool) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	signPolicy, err := domain.ParseRolloverSignPolicy(getEnv("ROLLOVER_SIGN_POLICY", string(domain.RolloverCarryNegative)))
	if err != nil {
		return nil, err
	}
	offsetPolicy, err := domain.ParseIncomeOffsetPolicy(getEnv("INCOME_OFFSET_POLICY", "recurring_first"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Backend:         Backend(strings.ToLower(getEnv("DATA_BACKEND", string(BackendPostgres)))),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "data/rollpace.db"),
		Auth0Domain:     getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:   getEnv("AUTH0_AUDIENCE", ""),
		Port:            getEnv("PORT", "8080"),
		CORSOrigins:     strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:             getEnv("ENV", "development"),
		ReportTimeout:   getEnvDuration("REPORT_TIMEOUT", 10*time.Second),
		ReportRateLimit: getEnvFloat("REPORT_RATE_LIMIT", 2),
		ReportRateBurst: getEnvInt("REPORT_RATE_BURST", 10),
		Engine: EngineConfig{
			HistoricalLookbackMonths: getEnvInt("HISTORICAL_LOOKBACK_MONTHS", domain.DefaultHistoricalLookbackMonths),
			RolloverMaxDepth:         getEnvInt("ROLLOVER_MAX_DEPTH", 12),
			RolloverSignPolicy:       signPolicy,
			IncomeOffsetPolicy:       offsetPolicy,
			CacheEnabled:             getEnvBool("ROLLOVER_CACHE_ENABLED", true),
			CacheMaxEntries:          int64(getEnvInt("ROLLOVER_CACHE_MAX_ENTRIES", 10000)),
			CacheTTL:                 getEnvDuration("ROLLOVER_CACHE_TTL", 15*time.Minute),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "ledger"),
			Queue:    getEnv("AMQP_QUEUE", "rollpace.ledger-changes"),
		},
	}

	if err := cfg.validate(requireAuth); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate(requireAuth bool) error {
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLITE_DB_PATH is required")
		}
	default:
		return fmt.Errorf("DATA_BACKEND must be postgres or sqlite, got %q", c.Backend)
	}

	if requireAuth {
		if c.Auth0Domain == "" {
			return fmt.Errorf("AUTH0_DOMAIN is required")
		}
		if c.Auth0Audience == "" {
			return fmt.Errorf("AUTH0_AUDIENCE is required")
		}
	}

	if c.Engine.HistoricalLookbackMonths < 1 {
		return fmt.Errorf("HISTORICAL_LOOKBACK_MONTHS must be at least 1")
	}
	if c.Engine.RolloverMaxDepth < 1 {
		return fmt.Errorf("ROLLOVER_MAX_DEPTH must be at least 1")
	}
	if c.Engine.CacheEnabled && c.Engine.CacheTTL <= 0 {
		return fmt.Errorf("ROLLOVER_CACHE_TTL must be positive")
	}
	if c.ReportTimeout <= 0 {
		return fmt.Errorf("REPORT_TIMEOUT must be positive")
	}
	if c.ReportRateLimit <= 0 || c.ReportRateBurst < 1 {
		return fmt.Errorf("REPORT_RATE_LIMIT and REPORT_RATE_BURST must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
