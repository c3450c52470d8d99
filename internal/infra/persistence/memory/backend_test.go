package memory

import (
	"context"
	"errors"
	"testing"

	"booktrack/pkg/domain"
)

func TestBackendLoadSave(t *testing.T) {
	ctx := context.Background()
	b := New()
	if _, err := b.Load(ctx); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	payload := []byte(`{"courses":[]}`)
	if err := b.Save(ctx, payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[0] = 'x'
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"courses":[]}` {
		t.Fatalf("backend must not alias caller buffers, got %s", got)
	}
	got[0] = 'y'
	again, _ := b.Load(ctx)
	if again[0] != '{' {
		t.Fatalf("load must return a copy")
	}
	if b.Saves() != 1 {
		t.Fatalf("expected one save, got %d", b.Saves())
	}
}

func TestNewWithPayload(t *testing.T) {
	b := NewWithPayload([]byte("seed"))
	got, err := b.Load(context.Background())
	if err != nil || string(got) != "seed" {
		t.Fatalf("unexpected load %q %v", got, err)
	}
}
