// Package scan turns decoded barcodes into store actions. It owns the debounce
// filter, the delivery and catalog flows, and the lifecycle of an open scanner.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"booktrack/internal/core"
	"booktrack/pkg/domain"
)

// DefaultLookupTimeout bounds a catalog title lookup.
const DefaultLookupTimeout = 8 * time.Second

// Flow names the screen a scan originates from.
type Flow string

// Supported flows.
const (
	FlowDelivery Flow = "delivery"
	FlowCatalog  Flow = "catalog"
)

// ParseFlow validates a flow name.
func ParseFlow(raw string) (Flow, error) {
	switch f := Flow(strings.ToLower(strings.TrimSpace(raw))); f {
	case FlowDelivery, FlowCatalog:
		return f, nil
	default:
		return "", fmt.Errorf("unknown scan flow %q", raw)
	}
}

// OutcomeKind classifies what a scan resolved to.
type OutcomeKind string

// Scan outcomes.
const (
	OutcomeIgnored       OutcomeKind = "ignored"
	OutcomeDebounced     OutcomeKind = "debounced"
	OutcomeDelivered     OutcomeKind = "delivered"
	OutcomeNotInCourse   OutcomeKind = "not_in_course"
	OutcomeCataloged     OutcomeKind = "cataloged"
	OutcomeAlreadyListed OutcomeKind = "already_listed"
	OutcomeManualEntry   OutcomeKind = "manual_entry"
	OutcomeDiscarded     OutcomeKind = "discarded"
	OutcomeFailed        OutcomeKind = "failed"
)

// Level grades a notice for display.
type Level string

// Notice levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient message for the operator.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// NotInCourseMessage is shown when a delivery scan matches no book of the course.
const NotInCourseMessage = "book not in this course's list"

// Outcome is the result of resolving one scan. It carries at most one notice.
// For OutcomeManualEntry CourseID and ISBN identify the book awaiting a title.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Notice   *Notice     `json:"notice,omitempty"`
	CourseID string      `json:"courseId,omitempty"`
	ISBN     string      `json:"isbn,omitempty"`
	Title    string      `json:"title,omitempty"`
}

// Dispatcher is the slice of the store the resolver needs.
type Dispatcher interface {
	Snapshot() domain.Snapshot
	Dispatch(ctx context.Context, a domain.Action) (domain.Snapshot, error)
}

// TitleLookup resolves an isbn to a title.
type TitleLookup interface {
	LookupTitle(ctx context.Context, isbn string) (string, error)
}

// Recorder receives one observation per resolved scan.
type Recorder interface {
	ObserveScan(flow, result string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveScan(string, string) {}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l core.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder sets the scan metrics sink.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithLookupTimeout overrides DefaultLookupTimeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.lookupTimeout = d
		}
	}
}

// WithDebouncer replaces the default debouncer.
func WithDebouncer(d *Debouncer) Option {
	return func(r *Resolver) {
		if d != nil {
			r.debounce = d
		}
	}
}

// Resolver maps decoded barcodes to actions within the current selection.
type Resolver struct {
	store         Dispatcher
	lookup        TitleLookup
	debounce      *Debouncer
	lookupTimeout time.Duration
	logger        core.Logger
	recorder      Recorder
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NewResolver wires a resolver to the store and title lookup.
func NewResolver(store Dispatcher, lookup TitleLookup, opts ...Option) *Resolver {
	r := &Resolver{
		store:         store,
		lookup:        lookup,
		debounce:      NewDebouncer(DefaultDebounceWindow, nil),
		lookupTimeout: DefaultLookupTimeout,
		logger:        nopLogger{},
		recorder:      noopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleDecode trims code, filters decode bursts and routes the scan to flow.
func (r *Resolver) HandleDecode(ctx context.Context, flow Flow, code string) Outcome {
	code, out, ok := r.accept(flow, code)
	if !ok {
		return r.record(flow, out)
	}
	switch flow {
	case FlowDelivery:
		return r.ConfirmDelivery(ctx, code)
	case FlowCatalog:
		return r.CatalogScan(ctx, code)
	default:
		return r.record(flow, Outcome{Kind: OutcomeIgnored, ISBN: code})
	}
}

// accept trims a raw decode and runs it through the debouncer. A decode that the
// flow would ignore for lack of a selection is rejected before the debouncer sees
// it, so it does not open a window against the rescan that follows a selection.
func (r *Resolver) accept(flow Flow, code string) (string, Outcome, bool) {
	code = trimCode(code)
	if code == "" {
		return "", Outcome{Kind: OutcomeIgnored}, false
	}
	if !r.ready(flow) {
		return code, Outcome{Kind: OutcomeIgnored, ISBN: code}, false
	}
	if !r.debounce.Accept(code) {
		return code, Outcome{Kind: OutcomeDebounced, ISBN: code}, false
	}
	return code, Outcome{}, true
}

// ready reports whether the current selection gives flow a target.
func (r *Resolver) ready(flow Flow) bool {
	snap := r.store.Snapshot()
	switch flow {
	case FlowDelivery:
		if _, ok := snap.SelectedStudent(); !ok {
			return false
		}
		class, ok := snap.SelectedClass()
		if !ok {
			return false
		}
		_, ok = snap.CourseOfClass(class.ID)
		return ok
	case FlowCatalog:
		_, ok := snap.SelectedCourse()
		return ok
	default:
		return false
	}
}

// ConfirmDelivery marks code as delivered by the selected student when it names a
// book of the selected class's course.
func (r *Resolver) ConfirmDelivery(ctx context.Context, code string) Outcome {
	code = strings.TrimSpace(code)
	snap := r.store.Snapshot()
	student, ok := snap.SelectedStudent()
	if !ok {
		return r.record(FlowDelivery, Outcome{Kind: OutcomeIgnored, ISBN: code})
	}
	class, ok := snap.SelectedClass()
	if !ok {
		return r.record(FlowDelivery, Outcome{Kind: OutcomeIgnored, ISBN: code})
	}
	course, ok := snap.CourseOfClass(class.ID)
	if !ok {
		return r.record(FlowDelivery, Outcome{Kind: OutcomeIgnored, ISBN: code})
	}
	book, _, found := course.FindBook(code)
	if !found {
		return r.record(FlowDelivery, Outcome{
			Kind:     OutcomeNotInCourse,
			Notice:   &Notice{Level: LevelError, Message: NotInCourseMessage},
			CourseID: course.ID,
			ISBN:     code,
		})
	}
	next, err := r.store.Dispatch(ctx, domain.MarkDelivered{StudentID: student.ID, ISBN: book.ISBN})
	if err != nil {
		return r.record(FlowDelivery, r.failed(course.ID, code, err))
	}
	if marked, ok := next.FindStudent(student.ID); !ok || !marked.HasDelivered(book.ISBN) {
		r.logger.Info("delivery target vanished", "student", student.ID, "isbn", book.ISBN)
		return r.record(FlowDelivery, Outcome{Kind: OutcomeIgnored, CourseID: course.ID, ISBN: book.ISBN})
	}
	r.logger.Info("delivery confirmed", "student", student.ID, "isbn", book.ISBN)
	return r.record(FlowDelivery, Outcome{
		Kind:     OutcomeDelivered,
		Notice:   &Notice{Level: LevelSuccess, Message: fmt.Sprintf("Delivered: %s", book.Title)},
		CourseID: course.ID,
		ISBN:     book.ISBN,
		Title:    book.Title,
	})
}

// CatalogScan adds code to the selected course, looking its title up first. When
// no title can be found the outcome asks for manual entry instead of dispatching.
func (r *Resolver) CatalogScan(ctx context.Context, code string) Outcome {
	courseID, early, done := r.catalogTarget(code)
	if done {
		return r.record(FlowCatalog, early)
	}
	title, err := r.lookupTitle(ctx, code)
	return r.record(FlowCatalog, r.finishCatalog(ctx, courseID, code, title, err))
}

// catalogTarget picks the course a catalog scan applies to. done reports that the
// scan resolved without a lookup.
func (r *Resolver) catalogTarget(code string) (string, Outcome, bool) {
	code = strings.TrimSpace(code)
	snap := r.store.Snapshot()
	course, ok := snap.SelectedCourse()
	if !ok || code == "" {
		return "", Outcome{Kind: OutcomeIgnored, ISBN: code}, true
	}
	if book, _, found := course.FindBook(code); found {
		return course.ID, alreadyListed(course.ID, book), true
	}
	return course.ID, Outcome{}, false
}

func (r *Resolver) lookupTitle(ctx context.Context, code string) (string, error) {
	if r.lookup == nil {
		return "", errors.New("title lookup not configured")
	}
	lctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()
	title, err := r.lookup.LookupTitle(lctx, strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("empty title")
	}
	return title, nil
}

func (r *Resolver) finishCatalog(ctx context.Context, courseID, code, title string, lookupErr error) Outcome {
	code = strings.TrimSpace(code)
	if lookupErr != nil {
		r.logger.Info("title lookup failed", "course", courseID, "isbn", code, "error", lookupErr)
		if _, err := r.store.Dispatch(ctx, domain.LookupFailed{CourseID: courseID, ISBN: code, Reason: lookupErr.Error()}); err != nil {
			r.logger.Warn("record lookup failure", "isbn", code, "error", err)
		}
		return Outcome{
			Kind:     OutcomeManualEntry,
			Notice:   &Notice{Level: LevelWarning, Message: fmt.Sprintf("No title found for %s, enter it manually", code)},
			CourseID: courseID,
			ISBN:     code,
		}
	}
	next, err := r.store.Dispatch(ctx, domain.LookupSucceeded{CourseID: courseID, ISBN: code, Title: title})
	if err != nil {
		return r.failed(courseID, code, err)
	}
	return r.catalogResult(next, courseID, code)
}

// catalogResult reports what a catalog dispatch left in the course. A course that
// vanished while the lookup ran yields an ignored outcome without a notice.
func (r *Resolver) catalogResult(snap domain.Snapshot, courseID, isbn string) Outcome {
	course, ok := snap.FindCourse(courseID)
	if !ok {
		r.logger.Info("catalog target vanished", "course", courseID, "isbn", isbn)
		return Outcome{Kind: OutcomeIgnored, CourseID: courseID, ISBN: isbn}
	}
	book, _, found := course.FindBook(isbn)
	if !found {
		return Outcome{Kind: OutcomeIgnored, CourseID: courseID, ISBN: isbn}
	}
	return Outcome{
		Kind:     OutcomeCataloged,
		Notice:   &Notice{Level: LevelSuccess, Message: fmt.Sprintf("Added: %s", book.Title)},
		CourseID: courseID,
		ISBN:     book.ISBN,
		Title:    book.Title,
	}
}

func alreadyListed(courseID string, book domain.BookRef) Outcome {
	return Outcome{
		Kind:     OutcomeAlreadyListed,
		Notice:   &Notice{Level: LevelInfo, Message: fmt.Sprintf("Already listed: %s", book.Title)},
		CourseID: courseID,
		ISBN:     book.ISBN,
		Title:    book.Title,
	}
}

// ConfirmManualTitle adds a book whose title the operator typed after a failed lookup.
func (r *Resolver) ConfirmManualTitle(ctx context.Context, courseID, isbn, title string) (Outcome, error) {
	isbn = strings.TrimSpace(isbn)
	if course, ok := r.store.Snapshot().FindCourse(courseID); ok {
		if book, _, found := course.FindBook(isbn); found {
			return r.record(FlowCatalog, alreadyListed(courseID, book)), nil
		}
	}
	next, err := r.store.Dispatch(ctx, domain.AddBookToCourse{CourseID: courseID, ISBN: isbn, Title: title})
	if err != nil {
		return r.record(FlowCatalog, r.failed(courseID, isbn, err)), err
	}
	return r.record(FlowCatalog, r.catalogResult(next, courseID, isbn)), nil
}

func trimCode(code string) string { return strings.TrimSpace(code) }

func (r *Resolver) failed(courseID, code string, err error) Outcome {
	r.logger.Error("scan dispatch failed", "isbn", code, "error", err)
	return Outcome{
		Kind:     OutcomeFailed,
		Notice:   &Notice{Level: LevelError, Message: err.Error()},
		CourseID: courseID,
		ISBN:     code,
	}
}

func (r *Resolver) record(flow Flow, o Outcome) Outcome {
	r.recorder.ObserveScan(string(flow), string(o.Kind))
	return o
}
