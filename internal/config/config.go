package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Generation pipeline configuration
	Pipeline PipelineConfig

	// Rate limiting for the triggering layer
	RateLimit RateLimitConfig

	// Security event reporting
	Security SecurityConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// PipelineConfig holds the content generation pipeline limits.
// MaxConcurrentUnits bounds simultaneous store transactions and must stay
// below the connection pool's MaxOpenConns to avoid pool exhaustion.
type PipelineConfig struct {
	MaxFileSize        int64 // per-candidate payload limit, bytes
	MaxPostsPerUnit    int
	MaxTagsPerUnit     int
	MaxContentLength   int // chars, per post content field
	AllowedExtensions  []string
	MaxConcurrentUnits int
	TransactionTimeout time.Duration
	BatchSize          int // sub-batch size for post inserts
	RequiredAuthorRole string
}

// RateLimitConfig holds per-client limits for run-triggering requests
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// SecurityConfig holds the security-event sink settings. An empty WebhookURL
// disables the sink.
type SecurityConfig struct {
	WebhookURL    string
	NotifyTimeout time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from the environment, honoring a local .env file
// when present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 300*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "content_generation"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Pipeline: PipelineConfig{
			MaxFileSize:        getInt64Env("GENERATION_MAX_FILE_SIZE", 1024*1024), // 1MB
			MaxPostsPerUnit:    getIntEnv("GENERATION_MAX_POSTS_PER_UNIT", 50),
			MaxTagsPerUnit:     getIntEnv("GENERATION_MAX_TAGS_PER_UNIT", 20),
			MaxContentLength:   getIntEnv("GENERATION_MAX_CONTENT_LENGTH", 50000),
			AllowedExtensions:  getListEnv("GENERATION_ALLOWED_EXTENSIONS", []string{".json"}),
			MaxConcurrentUnits: getIntEnv("GENERATION_MAX_CONCURRENT_UNITS", 4),
			TransactionTimeout: getDurationEnv("GENERATION_TX_TIMEOUT", 30*time.Second),
			BatchSize:          getIntEnv("GENERATION_BATCH_SIZE", 100),
			RequiredAuthorRole: getEnv("GENERATION_REQUIRED_ROLE", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 10),
			Burst:             getIntEnv("RATE_LIMIT_BURST", 3),
		},
		Security: SecurityConfig{
			WebhookURL:    getEnv("SECURITY_WEBHOOK_URL", ""),
			NotifyTimeout: getDurationEnv("SECURITY_NOTIFY_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Pipeline.MaxConcurrentUnits < 1 {
		return fmt.Errorf("GENERATION_MAX_CONCURRENT_UNITS must be at least 1")
	}
	if c.Pipeline.MaxConcurrentUnits >= c.Database.MaxOpenConns {
		return fmt.Errorf("GENERATION_MAX_CONCURRENT_UNITS (%d) must be below DB_MAX_OPEN_CONNS (%d)",
			c.Pipeline.MaxConcurrentUnits, c.Database.MaxOpenConns)
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("GENERATION_BATCH_SIZE must be at least 1")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
