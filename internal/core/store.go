// Package core hosts the entity store: the single owner of the current snapshot
// and the only place actions are reduced and persisted.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"booktrack/pkg/domain"
)

// Backend is a home for the single persisted snapshot blob.
type Backend = domain.SnapshotBackend

// ErrPersist wraps failures to save an accepted mutation. The in-memory snapshot
// keeps the mutation when it is returned.
var ErrPersist = errors.New("persist snapshot")

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithLogger sets the logger; nil keeps the noop default.
func WithLogger(l Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics recorder; nil keeps the noop default.
func WithMetricsRecorder(m MetricsRecorder) StoreOption {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source used for dispatch timings.
func WithClock(c Clock) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// Store holds the current snapshot. Dispatch is the sole mutation gateway and is
// serialized, so reduce, swap and persist never interleave between actions.
type Store struct {
	mu      sync.RWMutex
	state   domain.Snapshot
	backend Backend
	logger  Logger
	metrics MetricsRecorder
	clock   Clock
}

// NewStore loads the persisted snapshot from backend. A missing snapshot yields the
// empty one; an undecodable or inconsistent one is logged and replaced by the empty
// snapshot. Backend read failures are returned.
func NewStore(ctx context.Context, backend Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("snapshot backend required")
	}
	s := &Store{
		state:   domain.EmptySnapshot(),
		backend: backend,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		clock:   ClockFunc(time.Now),
	}
	for _, opt := range opts {
		opt(s)
	}
	payload, err := backend.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNoSnapshot):
		s.logger.Info("no stored snapshot, starting empty")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	decoded, err := domain.DecodeSnapshot(payload)
	if err != nil {
		s.logger.Warn("stored snapshot is malformed, starting empty", "error", err)
		return s, nil
	}
	normalized, res, err := domain.ValidateImport(decoded)
	if err != nil {
		s.logger.Warn("stored snapshot is inconsistent, starting empty", "error", err)
		return s, nil
	}
	s.logWarnings("stored snapshot normalized", res)
	s.state = normalized
	s.logger.Info("snapshot loaded", "courses", len(normalized.Courses), "classes", len(normalized.Classes), "students", len(normalized.Students))
	return s, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Dispatch reduces a against the current state, swaps the result in and persists
// it. A refused action leaves state untouched and is not persisted. The returned
// snapshot is a copy of the state after the call.
func (s *Store) Dispatch(ctx context.Context, a domain.Action) (domain.Snapshot, error) {
	if a == nil {
		return s.Snapshot(), nil
	}
	start := s.clock.Now()
	kind := a.Kind()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := domain.Reduce(s.state, a)
	if err != nil {
		s.metrics.ObserveAction(kind, OutcomeRejected, s.clock.Now().Sub(start))
		s.logger.Warn("action rejected", "action", kind, "error", err)
		return s.state.Clone(), err
	}
	s.state = next
	if err := s.persist(ctx, next); err != nil {
		s.metrics.ObserveAction(kind, OutcomePersistError, s.clock.Now().Sub(start))
		s.logger.Error("persist snapshot failed", "action", kind, "error", err)
		return next.Clone(), fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.metrics.ObserveAction(kind, OutcomeApplied, s.clock.Now().Sub(start))
	s.logger.Debug("action applied", "action", kind)
	return next.Clone(), nil
}

func (s *Store) persist(ctx context.Context, snap domain.Snapshot) error {
	payload, err := domain.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, payload)
}

// Import validates snap and replaces the whole state with it.
func (s *Store) Import(ctx context.Context, snap domain.Snapshot) (domain.Snapshot, error) {
	_, res, err := domain.ValidateImport(snap)
	if err != nil {
		s.logger.Warn("import rejected", "error", err)
		return s.Snapshot(), err
	}
	s.logWarnings("import normalized", res)
	return s.Dispatch(ctx, domain.ImportState{Snapshot: snap})
}

// ImportJSON decodes a snapshot payload and imports it. Malformed payloads are
// rejected before any state change.
func (s *Store) ImportJSON(ctx context.Context, payload []byte) (domain.Snapshot, error) {
	snap, err := domain.DecodeSnapshot(payload)
	if err != nil {
		s.logger.Warn("import rejected", "error", err)
		return s.Snapshot(), err
	}
	return s.Import(ctx, snap)
}

// Reset replaces the state with the empty snapshot.
func (s *Store) Reset(ctx context.Context) (domain.Snapshot, error) {
	return s.Dispatch(ctx, domain.ResetState{})
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) logWarnings(msg string, res domain.Result) {
	for _, v := range res.Warnings() {
		s.logger.Warn(msg, "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "detail", v.Message)
	}
}
