package playback

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Window is a reusable transient-flag primitive with a fixed TTL, used to
// suppress self-echoed events right after broadcasting one. Every Arm opens
// an independent window cleared exactly once by its own timer; a later Arm
// never cancels an earlier one.
type Window struct {
	clk clock.Clock
	ttl time.Duration

	mu        sync.Mutex
	armed     int
	expiresAt time.Time
}

func NewWindow(clk clock.Clock, ttl time.Duration) *Window {
	return &Window{clk: clk, ttl: ttl}
}

func (w *Window) Arm() {
	w.mu.Lock()
	w.armed++
	w.expiresAt = w.clk.Now().Add(w.ttl)
	w.mu.Unlock()

	w.clk.AfterFunc(w.ttl, func() {
		w.mu.Lock()
		w.armed--
		w.mu.Unlock()
	})
}

// Active reports whether any window is still open.
func (w *Window) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed > 0
}

// ExpiresAt returns the end of the latest window, zero if never armed.
func (w *Window) ExpiresAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expiresAt
}
