// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load errors.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"frs/profile-service/internal/importer"
)

// Config holds all runtime configuration for the profile service.
type Config struct {
	StoreDriver string // "postgres" or "sqlite"
	DatabaseURL string
	SQLitePath  string
	RedisURL    string // optional; events are only logged when empty

	Port     string
	GRPCPort string

	BlobBackend       string // "filesystem" or "s3"
	BlobPath          string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	AWSAccessKeyID    string
	AWSSecretKey      string
	ImageFetchTimeout time.Duration

	ImportDropDir       string
	ImportIntervalHours int
	ImportMatchMode     importer.MatchMode
	ImportMode          importer.ImportMode
	FieldAliasesFile    string
}

// Option overrides a loaded value before validation.
type Option func(*Config)

// WithSQLite selects the SQLite store at path, whatever the environment says.
func WithSQLite(path string) Option {
	return func(c *Config) {
		c.StoreDriver = "sqlite"
		c.SQLitePath = path
	}
}

// Load reads .env files, then environment variables, applies opts and
// returns a validated Config.
func Load(opts ...Option) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{
		StoreDriver:      getenv("STORE_DRIVER", "postgres"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       getenv("SQLITE_PATH", "profiles.db"),
		RedisURL:         os.Getenv("REDIS_URL"),
		Port:             getenv("PROFILE_PORT", "8083"),
		GRPCPort:         getenv("PROFILE_GRPC_PORT", "9093"),
		BlobBackend:      getenv("BLOB_BACKEND", "filesystem"),
		BlobPath:         getenv("BLOB_PATH", "./uploads"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Region:         os.Getenv("S3_REGION"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		AWSAccessKeyID:   os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:     os.Getenv("AWS_SECRET_ACCESS_KEY"),
		ImportDropDir:    os.Getenv("IMPORT_DROP_DIR"),
		FieldAliasesFile: os.Getenv("FIELD_ALIASES_FILE"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case "sqlite":
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be postgres or sqlite, got %q", cfg.StoreDriver)
	}

	switch cfg.BlobBackend {
	case "filesystem":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("BLOB_BACKEND must be filesystem or s3, got %q", cfg.BlobBackend)
	}

	cfg.ImageFetchTimeout = 30 * time.Second
	if s := os.Getenv("IMAGE_FETCH_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("IMAGE_FETCH_TIMEOUT must be a positive duration, got %q", s)
		}
		cfg.ImageFetchTimeout = d
	}

	cfg.ImportIntervalHours = 6
	if s := os.Getenv("IMPORT_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("IMPORT_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		cfg.ImportIntervalHours = v
	}

	matchMode, err := importer.ParseMatchMode(getenv("IMPORT_MATCH_MODE", string(importer.MatchEmail)))
	if err != nil {
		return nil, fmt.Errorf("IMPORT_MATCH_MODE: %w", err)
	}
	cfg.ImportMatchMode = matchMode

	mode, err := importer.ParseImportMode(getenv("IMPORT_MODE", string(importer.ModeUpdate)))
	if err != nil {
		return nil, fmt.Errorf("IMPORT_MODE: %w", err)
	}
	cfg.ImportMode = mode

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFiles loads .env, then .env.<ENVIRONMENT>, then .env.local. All are
// optional. .env never overrides the real environment; the later files
// override it.
func loadEnvFiles() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		envFile := ".env." + env
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}

	return nil
}
