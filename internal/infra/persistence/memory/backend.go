// Package memory keeps the snapshot payload in process memory. Nothing survives a
// restart; it backs tests and ephemeral runs.
package memory

import (
	"bytes"
	"context"
	"sync"

	"booktrack/pkg/domain"
)

var _ domain.SnapshotBackend = (*Backend)(nil)

// Backend stores one payload guarded by a mutex.
type Backend struct {
	mu      sync.RWMutex
	payload []byte
	saves   int
}

// New returns an empty backend.
func New() *Backend { return &Backend{} }

// NewWithPayload returns a backend pre-seeded with payload, as if saved earlier.
func NewWithPayload(payload []byte) *Backend {
	return &Backend{payload: bytes.Clone(payload)}
}

// Load returns a copy of the saved payload or domain.ErrNoSnapshot.
func (b *Backend) Load(_ context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.payload == nil {
		return nil, domain.ErrNoSnapshot
	}
	return bytes.Clone(b.payload), nil
}

// Save replaces the payload.
func (b *Backend) Save(_ context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payload = bytes.Clone(payload)
	b.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (b *Backend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }
