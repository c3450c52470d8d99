package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"booktrack/pkg/domain"
)

// openTestBackend connects to BOOKTRACK_TEST_REDIS_ADDR and skips when no server is reachable.
func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	addr := os.Getenv("BOOKTRACK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skipf("BOOKTRACK_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := fmt.Sprintf("booktrack:test:%d", time.Now().UnixNano())
	b, err := New(ctx, Options{Addr: addr, Key: key})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = b.client.Del(context.Background(), key).Err()
		_ = b.Close()
	})
	return b
}

func TestBackendRoundTrip(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	if _, err := b.Load(ctx); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if err := b.Save(ctx, []byte(`{"courses":[],"classes":[],"students":[]}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"courses":[],"classes":[],"students":[]}` {
		t.Fatalf("unexpected payload %s", got)
	}
}

func TestNewFailsForUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := New(ctx, Options{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestNewWithClientDefaultsKey(t *testing.T) {
	b := NewWithClient(nil, "")
	if b.key != DefaultKey {
		t.Fatalf("expected default key, got %s", b.key)
	}
}
