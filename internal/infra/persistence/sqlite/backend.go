// Package sqlite stores the snapshot payload in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"booktrack/pkg/domain"
)

// DefaultBucket names the state row holding the snapshot.
const DefaultBucket = "snapshot"

var _ domain.SnapshotBackend = (*Backend)(nil)

// Backend persists the payload as one row of the state table.
type Backend struct {
	db     *sql.DB
	path   string
	bucket string
}

// New opens (creating if needed) the database at path. An empty path selects
// booktrack.db and an empty bucket selects DefaultBucket.
func New(path, bucket string) (*Backend, error) {
	if path == "" {
		path = "booktrack.db"
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Backend{db: db, path: path, bucket: bucket}, nil
}

// Load returns the stored payload or domain.ErrNoSnapshot.
func (b *Backend) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := b.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, b.bucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	return payload, nil
}

// Save upserts the payload.
func (b *Backend) Save(ctx context.Context, payload []byte) error {
	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		b.bucket, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", b.bucket, err)
	}
	return nil
}

// Close closes the database.
func (b *Backend) Close() error { return b.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (b *Backend) DB() *sql.DB { return b.db }

// Path returns the configured database path.
func (b *Backend) Path() string { return b.path }
