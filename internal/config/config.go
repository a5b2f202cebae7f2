// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Logging    LoggingConfig
	CORS       CORSConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Catalog    CatalogConfig
	Cart       CartConfig
	Redis      RedisConfig
	Payment    PaymentConfig
	Tracing    TracingConfig
	Worker     WorkerConfig
	Migrations string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// AuthConfig holds settings for validating tokens issued by the external auth provider
type AuthConfig struct {
	JWTSecret string
	Audience  string
}

// RateLimitConfig holds per-IP request limits
type RateLimitConfig struct {
	RequestsPerMinute int
}

// CatalogConfig holds settings of the in-memory course index
type CatalogConfig struct {
	CacheTTL time.Duration
}

// CartConfig holds cart pricing settings
type CartConfig struct {
	DiscountPercent int
}

// RedisConfig holds Redis connection settings used by the event queue.
// An empty Addr disables enrollment events.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PaymentConfig holds payment gateway settings.
// An empty URL selects the auto-approving gateway.
type PaymentConfig struct {
	GatewayURL string
	Timeout    time.Duration
	Currency   string
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Exporter string
}

// WorkerConfig holds settings of the event worker
type WorkerConfig struct {
	// RecountSchedule is a cron spec for reconciling course student counters
	RecountSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPort, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	cfg.Logging.Level = stringFromEnv("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Auth configuration
	jwtSecret := os.Getenv("AUTH_JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	cfg.Auth.JWTSecret = jwtSecret
	cfg.Auth.Audience = os.Getenv("AUTH_JWT_AUDIENCE")

	rpm, err := intFromEnv("RATE_LIMIT_PER_MINUTE", 100)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.RequestsPerMinute = rpm

	ttl, err := durationFromEnv("CATALOG_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Catalog.CacheTTL = ttl

	discount, err := intFromEnv("CART_DISCOUNT_PERCENT", 0)
	if err != nil {
		return nil, err
	}
	if discount < 0 || discount > 100 {
		return nil, fmt.Errorf("invalid CART_DISCOUNT_PERCENT: must be between 0 and 100")
	}
	cfg.Cart.DiscountPercent = discount

	// Redis configuration (optional, enables enrollment events)
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	redisDB, err := intFromEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.Redis.DB = redisDB

	// Payment gateway configuration (optional)
	cfg.Payment.GatewayURL = os.Getenv("PAYMENT_GATEWAY_URL")
	paymentTimeout, err := durationFromEnv("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Payment.Timeout = paymentTimeout
	cfg.Payment.Currency = strings.ToUpper(stringFromEnv("PAYMENT_CURRENCY", "USD"))

	cfg.Tracing.Exporter = stringFromEnv("OTEL_TRACES_EXPORTER", "none")
	cfg.Worker.RecountSchedule = stringFromEnv("WORKER_RECOUNT_SCHEDULE", "@hourly")
	cfg.Migrations = stringFromEnv("MIGRATIONS_PATH", "file://migrations")

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&multiStatements=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

// parseOrigins parses a comma-separated list of origins, defaulting to "*"
func parseOrigins(raw string) []string {
	if raw == "" {
		// Default to allow all origins if not specified (for development)
		return []string{"*"}
	}
	origins := strings.Split(raw, ",")
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 {
		return []string{"*"}
	}
	return allowed
}

func stringFromEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
