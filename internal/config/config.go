package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Quota reset policies
const (
	QuotaResetNone     = "none"
	QuotaResetCalendar = "calendar"
)

// Storage backends
const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

const defaultTestImageURL = "https://via.placeholder.com/150x150.png"

// Covers a synchronous retry: a full minute quota wait plus the vision timeout
const defaultRequestTimeout = 2 * time.Minute

type Config struct {
	Host               string        `validate:"required"`
	Port               string        `validate:"required,numeric"`
	RequestTimeout     time.Duration `validate:"gt=0"`
	MaxRequestBodySize int64         `validate:"gt=0"`
	LogLevel           string        `validate:"omitempty,oneof=debug info warn warning error"`

	// Azure Computer Vision
	VisionEndpoint     string        `validate:"required,url"`
	VisionKey          string        `validate:"required"`
	VisionTimeout      time.Duration `validate:"gt=0"`
	VisionTestImageURL string        `validate:"required,url"`
	VisionInlineHTTP   bool

	// Background processing
	MaxConcurrentTasks int    `validate:"gt=0"`
	RateLimitPerMinute int    `validate:"gt=0"`
	RateLimitPerDay    int    `validate:"gt=0"`
	RateLimitPerMonth  int    `validate:"gt=0"`
	QuotaResetPolicy   string `validate:"oneof=none calendar"`

	// Persistence (Supabase Postgres or a local SQLite file)
	DatabaseDriver      string `validate:"oneof=postgres sqlite"`
	DatabaseURL         string `validate:"required"`
	DatabaseAutoMigrate bool

	// Blob storage
	AzureStorageAccount string
	AzureStorageKey     string `validate:"required_with=AzureStorageAccount"`
	S3EndpointURL       string `validate:"omitempty,url"`
	S3AccessKeyID       string
	S3SecretAccessKey   string `validate:"required_with=S3AccessKeyID"`
	S3Region            string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()
	return LoadFromEnv()
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8000"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", defaultRequestTimeout),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		LogLevel:           strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),

		VisionEndpoint:     strings.TrimRight(os.Getenv("AZURE_VISION_ENDPOINT"), "/"),
		VisionKey:          os.Getenv("AZURE_VISION_KEY"),
		VisionTimeout:      parseDurationOrDefault("VISION_TIMEOUT", 30*time.Second),
		VisionTestImageURL: getEnvOrDefault("VISION_TEST_IMAGE_URL", defaultTestImageURL),
		VisionInlineHTTP:   parseBoolOrDefault("VISION_INLINE_HTTP", false),

		MaxConcurrentTasks: int(parseIntOrDefault("MAX_CONCURRENT_TASKS", 5)),
		RateLimitPerMinute: int(parseIntOrDefault("RATE_LIMIT_PER_MINUTE", 20)),
		RateLimitPerDay:    int(parseIntOrDefault("RATE_LIMIT_PER_DAY", 150)),
		RateLimitPerMonth:  int(parseIntOrDefault("RATE_LIMIT_PER_MONTH", 4000)),
		QuotaResetPolicy:   strings.ToLower(getEnvOrDefault("QUOTA_RESET_POLICY", QuotaResetNone)),

		DatabaseDriver:      strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DatabaseDriverPostgres)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		DatabaseAutoMigrate: parseBoolOrDefault("DATABASE_AUTO_MIGRATE", false),

		AzureStorageAccount: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:     os.Getenv("AZURE_STORAGE_KEY"),
		S3EndpointURL:       os.Getenv("S3_ENDPOINT_URL"),
		S3AccessKeyID:       os.Getenv("AWS_ACCESS_KEY_ID"),
		S3SecretAccessKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3Region:            getEnvOrDefault("AWS_REGION", "us-east-1"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the port range
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	return nil
}

// S3Enabled reports whether S3-compatible blob storage is configured
func (c *Config) S3Enabled() bool {
	return c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

// AzureStorageEnabled reports whether Azure blob storage is configured
func (c *Config) AzureStorageEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
