package core

import (
	"context"
	"path/filepath"
	"testing"

	"booktrack/internal/config"
	"booktrack/pkg/domain"
)

func TestOpenBackendDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cases := map[string]*config.Config{
		"memory":      {StorageDriver: "memory"},
		"sqlite":      {StorageDriver: "sqlite", SQLitePath: filepath.Join(dir, "state.db")},
		"blob-fs":     {StorageDriver: "blob", BlobDriver: "fs", BlobFSRoot: filepath.Join(dir, "blobs"), SnapshotKey: "booktrack/state.json"},
		"blob-memory": {StorageDriver: "blob", BlobDriver: "memory"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			backend, err := OpenBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("open backend: %v", err)
			}
			defer func() { _ = backend.Close() }()
			store, err := NewStore(ctx, backend)
			if err != nil {
				t.Fatalf("new store: %v", err)
			}
			if _, err := store.Dispatch(ctx, domain.AddCourse{ID: "c1", Name: "Grade 5"}); err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			reloaded, err := NewStore(ctx, backend)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if len(reloaded.Snapshot().Courses) != 1 {
				t.Fatalf("expected course to survive reload through %s", name)
			}
		})
	}
}

func TestOpenBackendUnknownDriver(t *testing.T) {
	if _, err := OpenBackend(context.Background(), &config.Config{StorageDriver: "floppy"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	if _, err := OpenBackend(context.Background(), &config.Config{StorageDriver: "blob", BlobDriver: "s3"}); err == nil {
		t.Fatalf("expected error for s3 without bucket")
	}
}
