package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Metadata store. DatabaseURL selects Postgres; SQLitePath selects
	// SQLite; neither selects the in-memory store.
	DatabaseURL string
	SQLitePath  string

	// Coordination store. Empty selects the in-memory store.
	RedisURL string

	// Blob store. S3Endpoint selects S3; BlobDir selects the local
	// filesystem; neither selects the in-memory store.
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	BlobDir     string

	// Write notifications. Empty NATSURL logs notifications instead.
	NATSURL    string
	WriteTopic string

	// Object key namespace.
	Prefix string
	Tenant string

	IdempotencyTTL time.Duration

	// Compaction pacing.
	CompactInterval time.Duration
	CompactGrace    time.Duration
	TargetBytes     int
	RecordEstimate  int

	// Concurrent backend fetches per read request.
	ReadWorkers int
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		RedisURL:    os.Getenv("REDIS_URL"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:    getEnv("S3_USE_SSL", "true") == "true",
		BlobDir:     os.Getenv("BLOB_DIR"),

		NATSURL:    os.Getenv("NATS_URL"),
		WriteTopic: getEnv("WRITE_TOPIC", "chatstore.writes"),

		Prefix: getEnv("STORAGE_PREFIX", "chatstore"),
		Tenant: getEnv("TENANT", "default"),

		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		CompactInterval: getDuration("COMPACT_INTERVAL", 15*time.Second),
		CompactGrace:    getDuration("COMPACT_GRACE", 30*time.Minute),
		TargetBytes:     getInt("COMPACT_TARGET_BYTES", 8<<20),
		RecordEstimate:  getInt("COMPACT_RECORD_ESTIMATE", 2048),

		ReadWorkers: getInt("READ_WORKERS", 10),
	}

	// In production, require durable backends
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.S3Endpoint == "" && cfg.BlobDir == "" {
			panic("S3_ENDPOINT or BLOB_DIR is required in production")
		}
		if cfg.S3Endpoint != "" && cfg.S3Bucket == "" {
			panic("S3_BUCKET is required when S3_ENDPOINT is set")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
