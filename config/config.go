package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete engine configuration. It is loaded once at
// process start and never mutated afterwards; components receive the values
// they need at construction time.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Sources       SourcesConfig
	Recommender   RecommenderConfig
	Scheduler     SchedulerConfig
	Observability ObservabilityConfig
	PolicyFile    string
	Environment   string
}

// ServerConfig holds the debug/status HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over
// individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// SourceConfig holds configuration for one external benchmark source
type SourceConfig struct {
	Enabled  bool
	URL      string
	CacheTTL time.Duration
}

// SourcesConfig holds configuration for the external benchmark fetchers
type SourcesConfig struct {
	FetchTimeout time.Duration
	Arena        SourceConfig
	MTEB         SourceConfig
	Internal     SourceConfig
}

// RecommenderConfig holds recommendation engine tuning parameters
type RecommenderConfig struct {
	// CacheStaleness is how long the in-memory performance cache is
	// trusted before a foreground call triggers a refresh
	CacheStaleness time.Duration

	// SmoothingAlpha is the exponential smoothing factor applied to live
	// latency/success/cost updates
	SmoothingAlpha float64

	// EfficientCostPer1K is the cost-per-1k-tokens threshold below which a
	// model lands in the cascade's efficient tier
	EfficientCostPer1K float64
}

// SchedulerConfig holds background job scheduling configuration
type SchedulerConfig struct {
	RefreshHourUTC         int
	AggregationInterval    time.Duration
	CleanupWeekday         time.Weekday
	CleanupHourUTC         int
	BootstrapDelay         time.Duration
	TelemetryRetentionDays int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env if present
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8090),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Sources: SourcesConfig{
			FetchTimeout: getEnvAsDuration("SOURCE_FETCH_TIMEOUT", 30*time.Second),
			Arena: SourceConfig{
				Enabled:  getEnvAsBool("ARENA_FETCH_ENABLED", false),
				URL:      getEnv("ARENA_LEADERBOARD_URL", "https://lmarena.ai/api/leaderboard"),
				CacheTTL: getEnvAsDuration("ARENA_CACHE_TTL", 6*time.Hour),
			},
			MTEB: SourceConfig{
				Enabled:  getEnvAsBool("MTEB_FETCH_ENABLED", false),
				URL:      getEnv("MTEB_SCORES_URL", "https://mteb-leaderboard.hf.space/api/scores"),
				CacheTTL: getEnvAsDuration("MTEB_CACHE_TTL", 12*time.Hour),
			},
			Internal: SourceConfig{
				Enabled:  getEnvAsBool("INTERNAL_EVALS_ENABLED", false),
				URL:      getEnv("INTERNAL_EVALS_URL", "http://evals:8085/api/scores"),
				CacheTTL: getEnvAsDuration("INTERNAL_CACHE_TTL", 1*time.Hour),
			},
		},
		Recommender: RecommenderConfig{
			CacheStaleness:     getEnvAsDuration("CACHE_STALENESS", 1*time.Hour),
			SmoothingAlpha:     getEnvAsFloat("SMOOTHING_ALPHA", 0.1),
			EfficientCostPer1K: getEnvAsFloat("EFFICIENT_COST_PER_1K", 0.01),
		},
		Scheduler: SchedulerConfig{
			RefreshHourUTC:         getEnvAsInt("REFRESH_HOUR_UTC", 2),
			AggregationInterval:    getEnvAsDuration("AGGREGATION_INTERVAL", 15*time.Minute),
			CleanupWeekday:         time.Weekday(getEnvAsInt("CLEANUP_WEEKDAY", int(time.Sunday))),
			CleanupHourUTC:         getEnvAsInt("CLEANUP_HOUR_UTC", 3),
			BootstrapDelay:         getEnvAsDuration("BOOTSTRAP_DELAY", 30*time.Second),
			TelemetryRetentionDays: getEnvAsInt("TELEMETRY_RETENTION_DAYS", 30),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
		PolicyFile: getEnv("MODELS_POLICY_FILE", "configs/models-policy.yaml"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Recommender.SmoothingAlpha <= 0 || c.Recommender.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing alpha must be in (0, 1], got %v", c.Recommender.SmoothingAlpha)
	}
	if c.Recommender.EfficientCostPer1K <= 0 {
		return fmt.Errorf("efficient cost threshold must be positive, got %v", c.Recommender.EfficientCostPer1K)
	}

	if c.Scheduler.RefreshHourUTC < 0 || c.Scheduler.RefreshHourUTC > 23 {
		return fmt.Errorf("refresh hour must be in [0, 23], got %d", c.Scheduler.RefreshHourUTC)
	}
	if c.Scheduler.CleanupHourUTC < 0 || c.Scheduler.CleanupHourUTC > 23 {
		return fmt.Errorf("cleanup hour must be in [0, 23], got %d", c.Scheduler.CleanupHourUTC)
	}
	if c.Scheduler.TelemetryRetentionDays <= 0 {
		return fmt.Errorf("telemetry retention must be positive, got %d", c.Scheduler.TelemetryRetentionDays)
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from
// individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses
// ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "router"),
		Password:        getEnv("DB_PASSWORD", "router_password"),
		Database:        getEnv("DB_NAME", "model_router"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
