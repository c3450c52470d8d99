// Package config loads runtime settings from BOOKTRACK_* environment variables,
// optionally seeded from a .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the daemon and the CLI.
type Config struct {
	// HTTP
	HTTPAddr string

	// Snapshot storage
	StorageDriver string
	SnapshotKey   string
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Blob storage (StorageDriver=blob)
	BlobDriver      string
	BlobFSRoot      string
	BlobS3Bucket    string
	BlobS3Region    string
	BlobS3Endpoint  string
	BlobS3PathStyle bool

	// Report archive in the blob store
	ReportArchive bool

	// Scanning
	LookupURL      string
	LookupTimeout  time.Duration
	DebounceWindow time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// DefaultLookupURL is a Google Books compatible volumes endpoint.
const DefaultLookupURL = "https://www.googleapis.com/books/v1/volumes"

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:       getEnv("BOOKTRACK_HTTP_ADDR", ":8080"),
		StorageDriver:  strings.ToLower(getEnv("BOOKTRACK_STORAGE_DRIVER", "sqlite")),
		SnapshotKey:    getEnv("BOOKTRACK_SNAPSHOT_KEY", "booktrack/state.json"),
		SQLitePath:     getEnv("BOOKTRACK_SQLITE_PATH", "./booktrack.db"),
		PostgresDSN:    getEnv("BOOKTRACK_POSTGRES_DSN", ""),
		RedisAddr:      getEnv("BOOKTRACK_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  getEnv("BOOKTRACK_REDIS_PASSWORD", ""),
		BlobDriver:     strings.ToLower(getEnv("BOOKTRACK_BLOB_DRIVER", "fs")),
		BlobFSRoot:     getEnv("BOOKTRACK_BLOB_FS_ROOT", "./blobdata"),
		BlobS3Bucket:   getEnv("BOOKTRACK_BLOB_S3_BUCKET", ""),
		BlobS3Region:   getEnv("BOOKTRACK_BLOB_S3_REGION", "us-east-1"),
		BlobS3Endpoint: getEnv("BOOKTRACK_BLOB_S3_ENDPOINT", ""),
		LookupURL:      getEnv("BOOKTRACK_LOOKUP_URL", DefaultLookupURL),
		LogLevel:       strings.ToLower(getEnv("BOOKTRACK_LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("BOOKTRACK_LOG_FORMAT", "text")),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("BOOKTRACK_REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("BOOKTRACK_REDIS_DB: %w", err)
	}
	if cfg.BlobS3PathStyle, err = strconv.ParseBool(getEnv("BOOKTRACK_BLOB_S3_PATH_STYLE", "false")); err != nil {
		return nil, fmt.Errorf("BOOKTRACK_BLOB_S3_PATH_STYLE: %w", err)
	}
	if cfg.ReportArchive, err = strconv.ParseBool(getEnv("BOOKTRACK_REPORT_ARCHIVE", "false")); err != nil {
		return nil, fmt.Errorf("BOOKTRACK_REPORT_ARCHIVE: %w", err)
	}
	if cfg.LookupTimeout, err = positiveDuration("BOOKTRACK_LOOKUP_TIMEOUT", "8s"); err != nil {
		return nil, err
	}
	if cfg.DebounceWindow, err = positiveDuration("BOOKTRACK_DEBOUNCE_WINDOW", "2500ms"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func positiveDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	return d, nil
}
