package blobstate

import (
	"context"
	"errors"
	"testing"

	"booktrack/internal/blob"
	"booktrack/pkg/domain"
)

func TestBackendRoundTripAcrossDrivers(t *testing.T) {
	ctx := context.Background()
	fsStore, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	stores := map[string]blob.Store{"fs": fsStore, "memory": blob.NewMemory(), "s3": blob.NewMockS3ForTests()}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			b, err := New(store, "")
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if b.Key() != DefaultKey {
				t.Fatalf("expected default key, got %s", b.Key())
			}
			if _, err := b.Load(ctx); !errors.Is(err, domain.ErrNoSnapshot) {
				t.Fatalf("expected ErrNoSnapshot, got %v", err)
			}
			for _, payload := range []string{`{"v":1}`, `{"v":22}`} {
				if err := b.Save(ctx, []byte(payload)); err != nil {
					t.Fatalf("save: %v", err)
				}
				got, err := b.Load(ctx)
				if err != nil {
					t.Fatalf("load: %v", err)
				}
				if string(got) != payload {
					t.Fatalf("expected %s, got %s", payload, got)
				}
			}
		})
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(nil, "k"); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
