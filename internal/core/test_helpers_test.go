package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"booktrack/internal/infra/persistence/memory"
	"booktrack/pkg/domain"
)

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:" + msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:" + msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:" + msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:" + msg) }

func (c *captureLogger) has(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call == entry {
			return true
		}
	}
	return false
}

type actionCall struct {
	kind    domain.Kind
	outcome string
}

type captureMetrics struct {
	mu      sync.Mutex
	actions []actionCall
}

func (c *captureMetrics) ObserveAction(kind domain.Kind, outcome string, _ time.Duration) {
	c.mu.Lock()
	c.actions = append(c.actions, actionCall{kind: kind, outcome: outcome})
	c.mu.Unlock()
}

func (c *captureMetrics) ObserveScan(string, string) {}

func (c *captureMetrics) has(kind domain.Kind, outcome string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.actions {
		if a.kind == kind && a.outcome == outcome {
			return true
		}
	}
	return false
}

// flakyBackend wraps the memory backend and fails saves on demand.
type flakyBackend struct {
	*memory.Backend
	failSave bool
	failLoad bool
}

func (f *flakyBackend) Save(ctx context.Context, payload []byte) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.Backend.Save(ctx, payload)
}

func (f *flakyBackend) Load(ctx context.Context) ([]byte, error) {
	if f.failLoad {
		return nil, errors.New("connection refused")
	}
	return f.Backend.Load(ctx)
}

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *memory.Backend) {
	t.Helper()
	backend := memory.New()
	store, err := NewStore(context.Background(), backend, opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, backend
}

func mustDispatch(t *testing.T, s *Store, a domain.Action) domain.Snapshot {
	t.Helper()
	snap, err := s.Dispatch(context.Background(), a)
	if err != nil {
		t.Fatalf("dispatch %s: %v", a.Kind(), err)
	}
	return snap
}
