package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"go-marketplace/pkg/events"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the marketplace service
type Config struct {
	ServiceName string

	// HTTP
	HTTPPort string

	// gRPC
	GRPCPort string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// RabbitMQ
	RabbitMQURL      string
	RabbitMQExchange string
	PaymentQueue     string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TLS
	TLSEnabled      bool
	TLSCertFile     string
	TLSKeyFile      string
	TLSCAFile       string
	GRPCMTLSEnabled bool

	// Logging
	LogLevel  string
	LogFormat string

	// Timeouts
	DBTimeout       time.Duration
	GRPCTimeout     time.Duration
	HTTPTimeout     time.Duration
	ShutdownTimeout time.Duration

	Engine Engine
}

// Engine tunes the fulfillment engine. Decoded from ENGINE_* variables.
type Engine struct {
	StorageDriver       string        `envconfig:"STORAGE_DRIVER" default:"memory"`
	MaxConflictRetries  int           `envconfig:"MAX_CONFLICT_RETRIES" default:"3"`
	DefaultRadiusKm     float64       `envconfig:"DEFAULT_RADIUS_KM" default:"5"`
	DefaultPageLimit    int           `envconfig:"DEFAULT_PAGE_LIMIT" default:"20"`
	MaxPageLimit        int           `envconfig:"MAX_PAGE_LIMIT" default:"100"`
	DiscoveryCacheTTL   time.Duration `envconfig:"DISCOVERY_CACHE_TTL" default:"30s"`
	HistoryPath         string        `envconfig:"HISTORY_PATH" default:"status_history.db"`
	EnforceOpeningHours bool          `envconfig:"ENFORCE_OPENING_HOURS" default:"true"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "marketplace"),

		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCPort: getEnv("GRPC_PORT", "50051"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "marketplace"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", events.ExchangeMarketplace),
		PaymentQueue:     getEnv("PAYMENT_QUEUE", "marketplace.payment-results"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		TLSEnabled:      getEnvBool("TLS_ENABLED", false),
		TLSCertFile:     getEnv("TLS_CERT_FILE", "certs/marketplace.crt"),
		TLSKeyFile:      getEnv("TLS_KEY_FILE", "certs/marketplace.key"),
		TLSCAFile:       getEnv("TLS_CA_FILE", "certs/ca.crt"),
		GRPCMTLSEnabled: getEnvBool("GRPC_MTLS_ENABLED", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DBTimeout:       getEnvDuration("DB_TIMEOUT", 30*time.Second),
		GRPCTimeout:     getEnvDuration("GRPC_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if err := envconfig.Process("ENGINE", &cfg.Engine); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConflictAttempts is the total number of tries a conflicting write gets:
// the first one plus MaxConflictRetries retries.
func (e Engine) ConflictAttempts() int {
	return e.MaxConflictRetries + 1
}

// Validate checks engine settings that have no safe fallback
func (e Engine) Validate() error {
	switch e.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("engine config: unknown storage driver %q", e.StorageDriver)
	}
	if e.MaxConflictRetries < 0 {
		return fmt.Errorf("engine config: MAX_CONFLICT_RETRIES must be >= 0, got %d", e.MaxConflictRetries)
	}
	if e.DefaultPageLimit < 1 || e.MaxPageLimit < e.DefaultPageLimit {
		return fmt.Errorf("engine config: page limits must satisfy 1 <= default (%d) <= max (%d)",
			e.DefaultPageLimit, e.MaxPageLimit)
	}
	if e.DefaultRadiusKm <= 0 {
		return fmt.Errorf("engine config: DEFAULT_RADIUS_KM must be > 0")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration reads whole seconds ("30") or a Go duration ("1m30s")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
