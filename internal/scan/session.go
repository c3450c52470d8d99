package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Camera is the decoding device behind a scanner view. Start begins streaming
// and calls onDecode for every barcode read until Stop.
type Camera interface {
	Start(ctx context.Context, onDecode func(code string)) error
	Stop() error
	SetTorch(on bool) error
}

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("scan session closed")

// Session is one open scanner view. Decodes are resolved in the session's flow and
// every outcome is handed to the notify callback. Catalog lookups run on their own
// goroutine so the decode callback never blocks on the network.
type Session struct {
	resolver *Resolver
	camera   Camera
	flow     Flow
	notify   func(Outcome)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// Open starts camera and returns the running session. If the camera cannot start
// an error notice is emitted, the session is torn down and the error returned.
func Open(ctx context.Context, resolver *Resolver, camera Camera, flow Flow, notify func(Outcome)) (*Session, error) {
	if notify == nil {
		notify = func(Outcome) {}
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		resolver: resolver,
		camera:   camera,
		flow:     flow,
		notify:   notify,
		ctx:      sctx,
		cancel:   cancel,
	}
	if err := camera.Start(sctx, s.onDecode); err != nil {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		cancel()
		_ = camera.Stop()
		resolver.logger.Warn("camera start failed", "flow", flow, "error", err)
		notify(Outcome{Kind: OutcomeFailed, Notice: &Notice{Level: LevelError, Message: fmt.Sprintf("Camera unavailable: %v", err)}})
		return nil, fmt.Errorf("start camera: %w", err)
	}
	resolver.logger.Debug("scan session opened", "flow", flow)
	return s, nil
}

// Flow returns the flow the session resolves decodes in.
func (s *Session) Flow() Flow { return s.flow }

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) onDecode(code string) {
	if s.isClosed() {
		return
	}
	if s.flow != FlowCatalog {
		out := s.resolver.HandleDecode(s.ctx, s.flow, code)
		s.emit(out)
		return
	}
	code, out, ok := s.resolver.accept(s.flow, code)
	if !ok {
		s.emit(s.resolver.record(s.flow, out))
		return
	}
	courseID, early, done := s.resolver.catalogTarget(code)
	if done {
		s.emit(s.resolver.record(s.flow, early))
		return
	}
	s.pending.Add(1)
	go s.lookupAndApply(courseID, code)
}

// lookupAndApply finishes a catalog scan. The lookup keeps running past Close on a
// detached context bounded by the lookup timeout; its result is dropped if the
// session closed meanwhile.
func (s *Session) lookupAndApply(courseID, code string) {
	defer s.pending.Done()
	title, err := s.resolver.lookupTitle(context.WithoutCancel(s.ctx), code)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.resolver.logger.Debug("discarding lookup for closed session", "isbn", code)
		s.resolver.record(s.flow, Outcome{Kind: OutcomeDiscarded, CourseID: courseID, ISBN: code})
		return
	}
	out := s.resolver.record(s.flow, s.resolver.finishCatalog(s.ctx, courseID, code, title, err))
	s.mu.Unlock()
	s.notify(out)
}

func (s *Session) emit(out Outcome) {
	if s.isClosed() {
		return
	}
	s.notify(out)
}

// SetTorch switches the camera light. Failure emits a warning notice and leaves
// scanning active.
func (s *Session) SetTorch(on bool) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err := s.camera.SetTorch(on); err != nil {
		s.resolver.logger.Warn("torch toggle failed", "on", on, "error", err)
		s.emit(Outcome{Kind: OutcomeFailed, Notice: &Notice{Level: LevelWarning, Message: fmt.Sprintf("Torch unavailable: %v", err)}})
		return fmt.Errorf("set torch: %w", err)
	}
	return nil
}

// Close stops the camera and stops delivering outcomes. It is safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	if err := s.camera.Stop(); err != nil {
		return fmt.Errorf("stop camera: %w", err)
	}
	s.resolver.logger.Debug("scan session closed", "flow", s.flow)
	return nil
}

// Wait blocks until in-flight catalog lookups have finished.
func (s *Session) Wait() {
	s.pending.Wait()
}
