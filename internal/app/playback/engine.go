// Package playback keeps local and remote playback state convergent while
// avoiding action feedback loops. Semantics are last-writer-wins; there is
// no reconciliation of concurrent edits.
package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/core"
	"github.com/JPKrishna28/yt-sync/internal/domain"
)

var (
	ErrNotInRoom     = errors.New("not connected or not in a room")
	ErrUnknownAction = errors.New("unknown playback action")
)

// Engine owns the canonical local PlaybackState. Outbound actions arm a
// suppression window; inbound actions are dropped while any window is open.
type Engine struct {
	win    *Window
	player core.Player

	// ready guards outbound actions: connected session + active room.
	ready func() bool
	// emit broadcasts an accepted local action to the room.
	emit func(domain.Action) error

	mu    sync.Mutex
	state domain.PlaybackState
}

func NewEngine(clk clock.Clock, ttl time.Duration, player core.Player, ready func() bool, emit func(domain.Action) error) *Engine {
	return &Engine{
		win:    NewWindow(clk, ttl),
		player: player,
		ready:  ready,
		emit:   emit,
	}
}

// ApplyLocal handles an action originating at the local player or UI:
// arm the echo window, apply optimistically, then broadcast.
func (e *Engine) ApplyLocal(kind domain.ActionKind, at float64, videoID string) error {
	if !e.ready() {
		return ErrNotInRoom
	}
	if !kind.Valid() {
		return ErrUnknownAction
	}

	e.win.Arm()

	a := domain.Action{Kind: kind, At: at, VideoID: videoID}
	e.mu.Lock()
	e.state.Apply(a)
	e.mu.Unlock()

	// The player already performed play/pause/seek itself; only a local
	// video change needs to reach the widget.
	if kind == domain.ActionVideoChange {
		e.player.Load(videoID)
	}

	log.Debug().Str("module", "playback").Str("action", string(kind)).Float64("at", at).Msg("local action")
	return e.emit(a)
}

// OnRemote applies an action broadcast by another participant. While a
// suppression window is open every inbound action is dropped, related to the
// local one or not; that coarse filter is the contract.
func (e *Engine) OnRemote(a domain.Action) {
	if e.win.Active() {
		log.Debug().Str("module", "playback").Str("action", string(a.Kind)).Msg("suppressed inbound action")
		return
	}

	switch a.Kind {
	case domain.ActionVideoChange:
		e.player.Load(a.VideoID)
	case domain.ActionPlay:
		e.player.SeekTo(a.At)
		e.player.Play()
	case domain.ActionPause:
		e.player.Pause()
	case domain.ActionSeek:
		e.player.SeekTo(a.At)
	default:
		log.Warn().Str("module", "playback").Str("action", string(a.Kind)).Msg("ignoring unknown action")
		return
	}

	e.mu.Lock()
	e.state.Apply(a)
	e.mu.Unlock()
}

// SetVideo installs a video id without broadcasting or arming suppression.
// Used for the first user's default video grant.
func (e *Engine) SetVideo(videoID string) {
	e.mu.Lock()
	e.state.VideoID = videoID
	e.mu.Unlock()
	e.player.Load(videoID)
}

func (e *Engine) State() domain.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Suppressing is exposed for the controller's status reporting.
func (e *Engine) Suppressing() bool { return e.win.Active() }
