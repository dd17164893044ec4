package game

import (
	"sync"
	"time"
)

// DefaultDebounceWindow suppresses sensor chatter: two swing signals closer
// together than this are coalesced into one.
const DefaultDebounceWindow = 250 * time.Millisecond

// Debouncer coalesces bursts of swing signals into a single accepted event.
// It is independent of the engine's pitch state so it can be shared by every
// input path (sensor, keyboard, HTTP) and tested on its own.
type Debouncer struct {
	mu           sync.Mutex
	window       time.Duration
	lastAccepted time.Time
}

// NewDebouncer creates a debouncer with the given window. A zero or negative
// window falls back to the default.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Allow reports whether an event at the given instant should pass. The first
// event always passes; later events pass only once the window has elapsed
// since the last accepted one.
func (d *Debouncer) Allow(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lastAccepted.IsZero() && now.Sub(d.lastAccepted) < d.window {
		return false
	}
	d.lastAccepted = now
	return true
}

// Reset clears the debounce state
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastAccepted = time.Time{}
}
