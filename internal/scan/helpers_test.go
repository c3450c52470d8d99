package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"booktrack/internal/core"
	"booktrack/internal/infra/persistence/memory"
	"booktrack/pkg/domain"
)

type fixture struct {
	store    *core.Store
	course   domain.AddCourse
	class    domain.AddClass
	student  domain.AddStudent
	recorder *countingRecorder
}

// newFixture builds a store holding course "Grade 5" with book 111 "Atlas", class
// "5A" and student "Mara", with the student selected.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := core.NewStore(ctx, memory.New())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	f := &fixture{store: store, recorder: &countingRecorder{counts: map[string]int{}}}
	f.course = domain.NewAddCourse("Grade 5")
	f.class = domain.NewAddClass(f.course.ID, "5A")
	f.student = domain.NewAddStudent(f.class.ID, "Mara")
	for _, a := range []domain.Action{
		f.course,
		domain.AddBookToCourse{CourseID: f.course.ID, ISBN: "111", Title: "Atlas"},
		f.class,
		f.student,
	} {
		if _, err := store.Dispatch(ctx, a); err != nil {
			t.Fatalf("dispatch %s: %v", a.Kind(), err)
		}
	}
	return f
}

func (f *fixture) books(t *testing.T) []domain.BookRef {
	t.Helper()
	course, ok := f.store.Snapshot().FindCourse(f.course.ID)
	if !ok {
		t.Fatalf("course missing")
	}
	return course.Books
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) ObserveScan(flow, result string) {
	c.mu.Lock()
	c.counts[flow+"/"+result]++
	c.mu.Unlock()
}

func (c *countingRecorder) count(flow Flow, kind OutcomeKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[string(flow)+"/"+string(kind)]
}

type stubLookup struct {
	title   string
	err     error
	release chan struct{}
	during  func()
	calls   atomic.Int32
}

func (s *stubLookup) LookupTitle(ctx context.Context, _ string) (string, error) {
	s.calls.Add(1)
	if s.during != nil {
		s.during()
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.title, s.err
}

var errNoTitle = errors.New("no title")

type fakeCamera struct {
	mu       sync.Mutex
	onDecode func(string)
	startErr error
	torchErr error
	started  bool
	stopped  int
	torch    bool
}

func (c *fakeCamera) Start(_ context.Context, onDecode func(string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	c.onDecode = onDecode
	return nil
}

func (c *fakeCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
	return nil
}

func (c *fakeCamera) SetTorch(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torchErr != nil {
		return c.torchErr
	}
	c.torch = on
	return nil
}

func (c *fakeCamera) decode(code string) {
	c.mu.Lock()
	fn := c.onDecode
	c.mu.Unlock()
	if fn != nil {
		fn(code)
	}
}

type outcomeLog struct {
	mu  sync.Mutex
	out []Outcome
}

func (l *outcomeLog) add(o Outcome) {
	l.mu.Lock()
	l.out = append(l.out, o)
	l.mu.Unlock()
}

func (l *outcomeLog) all() []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Outcome(nil), l.out...)
}

// manualClock is a settable time source for debounce tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock { return &manualClock{now: time.Unix(1700000000, 0)} }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// removeAll drops the fixture's student, class and course in dependency order.
func (f *fixture) removeAll(t *testing.T) {
	t.Helper()
	for _, a := range []domain.Action{
		domain.RemoveStudent{ID: f.student.ID},
		domain.RemoveClass{ID: f.class.ID},
		domain.RemoveCourse{ID: f.course.ID},
	} {
		if _, err := f.store.Dispatch(context.Background(), a); err != nil {
			t.Errorf("dispatch %s: %v", a.Kind(), err)
		}
	}
}

// racingStore runs before ahead of the first Dispatch, standing in for a writer
// that lands between the resolver's read and its write.
type racingStore struct {
	*core.Store
	before func()
	once   sync.Once
}

func (s *racingStore) Dispatch(ctx context.Context, a domain.Action) (domain.Snapshot, error) {
	s.once.Do(s.before)
	return s.Store.Dispatch(ctx, a)
}
