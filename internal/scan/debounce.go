package scan

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long the same code stays suppressed after it was accepted.
const DefaultDebounceWindow = 2500 * time.Millisecond

// Debouncer suppresses repeated decodes of one barcode held in front of the camera.
// A code is accepted when it differs from the last accepted code or when at least
// the window has elapsed since that acceptance. Rejected decodes do not extend the
// window. Elapsed time is taken from time.Time readings, which carry the monotonic
// clock when produced by time.Now.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	now      func() time.Time
	last     string
	accepted time.Time
	primed   bool
}

// NewDebouncer returns a debouncer. A non-positive window uses DefaultDebounceWindow
// and a nil clock uses time.Now.
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Debouncer{window: window, now: now}
}

// Accept reports whether code should be processed and, if so, records it.
func (d *Debouncer) Accept(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if d.primed && code == d.last && now.Sub(d.accepted) < d.window {
		return false
	}
	d.last = code
	d.accepted = now
	d.primed = true
	return true
}

// Window returns the suppression window.
func (d *Debouncer) Window() time.Duration { return d.window }
