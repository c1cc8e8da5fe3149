// Package app composes the sync engine: the room session controller owns the
// relay connection and membership, and routes events to the playback engine,
// the call state machine and the typing coordinator.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/app/call"
	"github.com/JPKrishna28/yt-sync/internal/app/playback"
	"github.com/JPKrishna28/yt-sync/internal/app/typing"
	"github.com/JPKrishna28/yt-sync/internal/config"
	"github.com/JPKrishna28/yt-sync/internal/core"
	"github.com/JPKrishna28/yt-sync/internal/domain"
	"github.com/JPKrishna28/yt-sync/internal/protocol"
)

var (
	ErrNotConnected = errors.New("not connected to relay")
	ErrNotInRoom    = errors.New("not in a room")
	ErrEmptyMessage = errors.New("empty message")
)

// DialFunc opens one relay connection attempt.
type DialFunc func(ctx context.Context) (core.Relay, error)

// Callbacks notify the UI layer. Nil members are skipped.
type Callbacks struct {
	OnConnState  func(ConnState)
	OnRoomJoined func(protocol.RoomJoined)
	OnRoomFull   func()
	OnUsersCount func(int)
	OnChat       func(domain.ChatMessage)
	OnTyping     func(name string, typing bool)
	OnCallState  func(call.State)
}

// Controller is the root of the client engine. Exactly one per running client.
type Controller struct {
	cfg  *config.Config
	clk  clock.Clock
	dial DialFunc
	cb   Callbacks

	mu          sync.Mutex
	relay       core.Relay
	sess        Session
	usersCount  int
	isFirstUser bool
	ctx         context.Context

	playback *playback.Engine
	calls    *call.Machine
	typing   *typing.Coordinator
}

func NewController(
	cfg *config.Config,
	clk clock.Clock,
	dial DialFunc,
	player core.Player,
	openMedia core.MediaOpener,
	newPeer core.PeerFactory,
	cb Callbacks,
) *Controller {
	c := &Controller{
		cfg:  cfg,
		clk:  clk,
		dial: dial,
		cb:   cb,
		ctx:  context.Background(),
	}

	c.playback = playback.NewEngine(clk, cfg.SuppressTTL, player, c.inRoom, c.emitAction)
	c.calls = call.NewMachine(openMedia, newPeer, c)
	c.calls.SetOnState(func(s call.State) {
		if cb.OnCallState != nil {
			cb.OnCallState(s)
		}
	})
	c.typing = typing.NewCoordinator(
		clk, cfg.TypingDebounce, cfg.TypingTTL,
		c.emitTyping, c.emitStoppedTyping,
		cb.OnTyping,
	)
	return c
}

// Connect opens the relay connection: Disconnected → Connecting → Connected.
// The transport dial is retried a fixed number of times with a fixed delay,
// then the controller surfaces a persistent disconnected state.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.sess.ConnState != Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.sess.ConnState = Connecting
	c.ctx = ctx
	c.mu.Unlock()
	c.notifyConn(Connecting)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		relay, err := c.dial(ctx)
		if err == nil {
			c.mu.Lock()
			c.relay = relay
			c.sess.ConnState = Connected
			c.mu.Unlock()
			c.notifyConn(Connected)
			go c.readLoop(relay)
			return nil
		}
		lastErr = err
		log.Warn().Err(err).Str("module", "session").Int("attempt", attempt).Msg("relay dial failed")
		if attempt == c.cfg.ReconnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = c.cfg.ReconnectAttempts
		case <-c.clk.After(c.cfg.ReconnectDelay):
		}
	}

	c.mu.Lock()
	c.sess.ConnState = Disconnected
	c.mu.Unlock()
	c.notifyConn(Disconnected)
	return fmt.Errorf("connect relay: %w", lastErr)
}

// JoinRoom fails fast when not connected; membership mutates only when the
// relay answers with room-joined. On room-full nothing changes and the caller
// must pick another id.
func (c *Controller) JoinRoom(id domain.RoomID) error {
	c.mu.Lock()
	relay := c.relay
	connected := c.sess.ConnState == Connected
	c.mu.Unlock()
	if !connected || relay == nil {
		return ErrNotConnected
	}
	return relay.Emit(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: id})
}

// LeaveRoom tears the whole session down; see Close.
func (c *Controller) LeaveRoom() { c.Close() }

// Close ends any active call, closes the relay connection and resets the
// session. Safe to call any number of times.
func (c *Controller) Close() {
	c.calls.EndCall()

	c.mu.Lock()
	relay := c.relay
	c.relay = nil
	changed := relay != nil || c.sess.ConnState != Disconnected
	c.sess = Session{}
	c.usersCount = 0
	c.isFirstUser = false
	c.mu.Unlock()

	if relay != nil {
		_ = relay.Close()
	}
	if changed {
		c.notifyConn(Disconnected)
	}
}

// Play broadcasts a play action at the given position.
func (c *Controller) Play(at float64) error {
	return c.playback.ApplyLocal(domain.ActionPlay, at, c.videoID())
}

func (c *Controller) Pause(at float64) error {
	return c.playback.ApplyLocal(domain.ActionPause, at, c.videoID())
}

func (c *Controller) Seek(at float64) error {
	return c.playback.ApplyLocal(domain.ActionSeek, at, c.videoID())
}

// ChangeVideo switches the room to a new video and resets playback.
func (c *Controller) ChangeVideo(videoID string) error {
	return c.playback.ApplyLocal(domain.ActionVideoChange, 0, videoID)
}

// SendChat broadcasts a chat message and stops the typing indicator. The
// local copy arrives back through the relay like everyone else's.
func (c *Controller) SendChat(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if len(text) > domain.MaxChatMessageLen {
		text = text[:domain.MaxChatMessageLen]
	}

	c.mu.Lock()
	relay := c.relay
	sess := c.sess
	c.mu.Unlock()
	if relay == nil || !sess.InRoom() {
		return ErrNotInRoom
	}

	msg := domain.ChatMessage{
		RoomID:    sess.RoomID,
		UserID:    sess.UserID,
		Username:  domain.DisplayName(sess.UserID),
		Message:   text,
		Timestamp: c.clk.Now().UTC(),
	}
	if err := relay.Emit(protocol.EventChatMessage, msg); err != nil {
		return err
	}
	c.typing.OnLocalSend()
	return nil
}

// Keystroke reports local typing activity to the coordinator.
func (c *Controller) Keystroke() {
	if !c.inRoom() {
		return
	}
	c.typing.OnLocalKeystroke()
}

func (c *Controller) StartCall(ctx context.Context) error {
	if !c.inRoom() {
		return ErrNotInRoom
	}
	return c.calls.StartCall(ctx)
}

func (c *Controller) EndCall() { c.calls.EndCall() }

func (c *Controller) ToggleVideo() (bool, error) { return c.calls.ToggleVideo() }

func (c *Controller) ToggleAudio() (bool, error) { return c.calls.ToggleAudio() }

// Calls exposes the signaling state machine, mainly for state inspection.
func (c *Controller) Calls() *call.Machine { return c.calls }

// Playback exposes the sync engine state.
func (c *Controller) Playback() domain.PlaybackState { return c.playback.State() }

// Session returns a copy of the current session state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// UsersCount returns the relay-reported participant count.
func (c *Controller) UsersCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usersCount
}

func (c *Controller) inRoom() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.InRoom()
}

func (c *Controller) videoID() string {
	return c.playback.State().VideoID
}

func (c *Controller) notifyConn(s ConnState) {
	if c.cb.OnConnState != nil {
		c.cb.OnConnState(s)
	}
}
