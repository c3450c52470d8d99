package core

import (
	"context"
	"fmt"

	"booktrack/internal/blob"
	"booktrack/internal/config"
	"booktrack/internal/infra/persistence/blobstate"
	"booktrack/internal/infra/persistence/memory"
	"booktrack/internal/infra/persistence/postgres"
	"booktrack/internal/infra/persistence/redis"
	"booktrack/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a snapshot backend implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // process memory only (tests / ephemeral)
	StorageBlob     StorageDriver = "blob"     // one object in a blob store (fs, s3, memory)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // Redis string key
)

// OpenBackend selects a snapshot backend from cfg.StorageDriver (default sqlite).
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	driver := StorageDriver(cfg.StorageDriver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.New(), nil
	case StorageBlob:
		store, err := blob.Open(ctx, BlobConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return blobstate.New(store, cfg.SnapshotKey)
	case StorageSQLite:
		return sqlite.New(cfg.SQLitePath, cfg.SnapshotKey)
	case StoragePostgres:
		return postgres.New(ctx, cfg.PostgresDSN, cfg.SnapshotKey)
	case StorageRedis:
		return redis.New(ctx, redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB, Key: cfg.SnapshotKey})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// BlobConfig maps the BOOKTRACK_BLOB_* settings onto a blob.Config.
func BlobConfig(cfg *config.Config) blob.Config {
	return blob.Config{
		Driver: blob.Driver(cfg.BlobDriver),
		FSRoot: cfg.BlobFSRoot,
		S3: blob.S3Config{
			Bucket:    cfg.BlobS3Bucket,
			Region:    cfg.BlobS3Region,
			Endpoint:  cfg.BlobS3Endpoint,
			PathStyle: cfg.BlobS3PathStyle,
		},
	}
}
