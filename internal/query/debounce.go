package query

import (
	"sync"
	"time"
)

// DefaultSearchDelay is how long search input is debounced before a fetch is
// issued.
const DefaultSearchDelay = 300 * time.Millisecond

// Debouncer delays a call by a fixed interval; scheduling a new call cancels
// the previous pending one. Interactive search callers use it to keep
// keystrokes from turning into a fetch per character. The cache itself never
// debounces.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer with the given delay. A non-positive
// delay falls back to DefaultSearchDelay.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &Debouncer{delay: delay}
}

// Do schedules fn to run after the delay, discarding any previously
// scheduled call that has not fired yet. fn runs on a timer goroutine.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop discards the pending call, if any. Further Do calls are allowed.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
