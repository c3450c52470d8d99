package domain

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by SnapshotBackend.Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotBackend is a home for the single persisted snapshot blob. Implementations
// treat the payload as opaque bytes; encoding belongs to the store.
type SnapshotBackend interface {
	// Load returns the last saved payload or ErrNoSnapshot.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored payload.
	Save(ctx context.Context, payload []byte) error
	// Close releases connections held by the backend.
	Close() error
}
