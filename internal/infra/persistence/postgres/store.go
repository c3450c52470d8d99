// Package postgres stores the snapshot payload as a JSONB row in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"booktrack/pkg/domain"
)

var _ domain.SnapshotBackend = (*Backend)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/booktrack?sslmode=disable"
	// DefaultBucket names the state row holding the snapshot.
	DefaultBucket = "snapshot"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Backend persists the payload as one row of the state table.
type Backend struct {
	db     *sql.DB
	bucket string
}

// New opens a connection using dsn (falling back to a localhost default), verifies
// it and ensures the state table exists.
func New(ctx context.Context, dsn, bucket string) (*Backend, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Backend{db: db, bucket: bucket}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// Load returns the stored payload or domain.ErrNoSnapshot.
func (b *Backend) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := b.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, b.bucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	return payload, nil
}

// Save upserts the payload inside a transaction.
func (b *Backend) Save(ctx context.Context, payload []byte) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, b.bucket, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", b.bucket, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error { return b.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (b *Backend) DB() *sql.DB { return b.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
