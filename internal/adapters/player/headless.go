// Package player provides a headless core.Player: it tracks what a real
// widget would be showing, extrapolating the position while "playing".
package player

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

type Headless struct {
	clk clock.Clock

	mu       sync.Mutex
	videoID  string
	playing  bool
	position float64
	movedAt  time.Time
}

func NewHeadless(clk clock.Clock) *Headless {
	return &Headless{clk: clk, movedAt: clk.Now()}
}

func (p *Headless) Load(videoID string) {
	p.mu.Lock()
	p.videoID = videoID
	p.playing = false
	p.position = 0
	p.movedAt = p.clk.Now()
	p.mu.Unlock()
	log.Info().Str("module", "player").Str("video", videoID).Msg("loaded")
}

func (p *Headless) Play() {
	p.mu.Lock()
	p.syncLocked()
	p.playing = true
	p.mu.Unlock()
	log.Info().Str("module", "player").Msg("playing")
}

func (p *Headless) Pause() {
	p.mu.Lock()
	p.syncLocked()
	p.playing = false
	p.mu.Unlock()
	log.Info().Str("module", "player").Msg("paused")
}

func (p *Headless) SeekTo(seconds float64) {
	p.mu.Lock()
	p.position = seconds
	p.movedAt = p.clk.Now()
	p.mu.Unlock()
	log.Info().Str("module", "player").Float64("at", seconds).Msg("seeked")
}

func (p *Headless) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncLocked()
	return p.position
}

func (p *Headless) VideoID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoID
}

func (p *Headless) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// syncLocked folds elapsed wall time into the position while playing.
func (p *Headless) syncLocked() {
	now := p.clk.Now()
	if p.playing {
		p.position += now.Sub(p.movedAt).Seconds()
	}
	p.movedAt = now
}
