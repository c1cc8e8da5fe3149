// Package typing debounces outbound typing signals and expires inbound
// indicators. The display tracks at most one name; the last typer wins.
package typing

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/domain"
)

// Coordinator owns the local debounce timer and the remote indicator TTL.
type Coordinator struct {
	clk      clock.Clock
	debounce time.Duration
	ttl      time.Duration

	emitTyping  func() error
	emitStopped func() error
	// onIndicator reports display changes: (name, true) to show, ("", false) to clear.
	onIndicator func(name string, typing bool)

	mu            sync.Mutex
	debounceTimer *clock.Timer
	shownUser     domain.UserID
	shownName     string
	gen           int
}

func NewCoordinator(clk clock.Clock, debounce, ttl time.Duration, emitTyping, emitStopped func() error, onIndicator func(string, bool)) *Coordinator {
	if onIndicator == nil {
		onIndicator = func(string, bool) {}
	}
	return &Coordinator{
		clk:         clk,
		debounce:    debounce,
		ttl:         ttl,
		emitTyping:  emitTyping,
		emitStopped: emitStopped,
		onIndicator: onIndicator,
	}
}

// OnLocalKeystroke emits a typing signal immediately and (re)arms the single
// debounce timer that emits stopped-typing after a quiet period.
func (c *Coordinator) OnLocalKeystroke() {
	if err := c.emitTyping(); err != nil {
		log.Error().Err(err).Str("module", "typing").Msg("emit typing")
		return
	}

	c.mu.Lock()
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = c.clk.AfterFunc(c.debounce, func() {
		if err := c.emitStopped(); err != nil {
			log.Error().Err(err).Str("module", "typing").Msg("emit stopped typing")
		}
	})
	c.mu.Unlock()
}

// OnLocalSend emits stopped-typing right away and cancels the pending debounce.
func (c *Coordinator) OnLocalSend() {
	c.mu.Lock()
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.mu.Unlock()

	if err := c.emitStopped(); err != nil {
		log.Error().Err(err).Str("module", "typing").Msg("emit stopped typing")
	}
}

// OnRemoteTyping shows the indicator for that user and arms a fresh expiry.
// A newer signal from anyone overwrites the name and restarts the window.
func (c *Coordinator) OnRemoteTyping(userID domain.UserID, username string) {
	if username == "" {
		username = "Someone"
	}

	c.mu.Lock()
	c.shownUser = userID
	c.shownName = username
	c.gen++
	g := c.gen
	c.mu.Unlock()

	c.onIndicator(username, true)

	c.clk.AfterFunc(c.ttl, func() {
		c.mu.Lock()
		stale := c.gen != g
		if !stale {
			c.shownUser = ""
			c.shownName = ""
		}
		c.mu.Unlock()
		if !stale {
			c.onIndicator("", false)
		}
	})
}

// OnRemoteStoppedTyping clears the indicator only if it currently names that user.
func (c *Coordinator) OnRemoteStoppedTyping(userID domain.UserID) {
	c.mu.Lock()
	if c.shownUser != userID {
		c.mu.Unlock()
		return
	}
	c.shownUser = ""
	c.shownName = ""
	c.gen++
	c.mu.Unlock()

	c.onIndicator("", false)
}

// Shown returns the currently displayed typer, empty if none.
func (c *Coordinator) Shown() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shownName
}
