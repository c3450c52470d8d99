// Package blobstate stores the snapshot payload as a single object in a blob.Store.
package blobstate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"booktrack/internal/blob"
	"booktrack/pkg/domain"
)

// DefaultKey is the object key used when none is configured.
const DefaultKey = "booktrack/state.json"

var _ domain.SnapshotBackend = (*Backend)(nil)

// Backend persists the snapshot under one key, overwriting it on every save.
type Backend struct {
	store blob.Store
	key   string
}

// New wraps store. An empty key selects DefaultKey.
func New(store blob.Store, key string) (*Backend, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if key == "" {
		key = DefaultKey
	}
	return &Backend{store: store, key: key}, nil
}

// Key returns the object key holding the snapshot.
func (b *Backend) Key() string { return b.key }

// Load reads the object, mapping a missing key to domain.ErrNoSnapshot.
func (b *Backend) Load(ctx context.Context) ([]byte, error) {
	_, rc, err := b.store.Get(ctx, b.key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot object: %w", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read snapshot object: %w", err)
	}
	return data, nil
}

// Save overwrites the object with payload.
func (b *Backend) Save(ctx context.Context, payload []byte) error {
	opts := blob.PutOptions{ContentType: "application/json", Overwrite: true}
	if _, err := b.store.Put(ctx, b.key, bytes.NewReader(payload), opts); err != nil {
		return fmt.Errorf("put snapshot object: %w", err)
	}
	return nil
}

// Close is a no-op; blob stores hold no long-lived connections.
func (b *Backend) Close() error { return nil }
