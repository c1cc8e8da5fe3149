package app

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/core"
	"github.com/JPKrishna28/yt-sync/internal/domain"
	"github.com/JPKrishna28/yt-sync/internal/protocol"
)

// readLoop drains the relay until the connection dies, then surfaces the
// persistent disconnected state. No in-flight action is retried.
func (c *Controller) readLoop(relay core.Relay) {
	for env := range relay.Events() {
		c.dispatch(env)
	}

	c.mu.Lock()
	stale := c.relay != relay
	if !stale {
		c.relay = nil
		c.sess = Session{}
		c.usersCount = 0
		c.isFirstUser = false
	}
	c.mu.Unlock()
	if !stale {
		log.Warn().Str("module", "session").Msg("relay connection lost")
		c.notifyConn(Disconnected)
	}
}

// dispatch is the single inbound dispatcher keyed by event kind. Malformed
// payloads and unknown events are ignored silently, without crashing.
func (c *Controller) dispatch(env protocol.Envelope) {
	switch env.Event {
	case protocol.EventRoomJoined:
		var p protocol.RoomJoined
		if err := env.Bind(&p); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("bad room-joined payload")
			return
		}
		c.onRoomJoined(p)

	case protocol.EventRoomFull:
		log.Info().Str("module", "session").Msg("room full, join rejected")
		if c.cb.OnRoomFull != nil {
			c.cb.OnRoomFull()
		}

	case protocol.EventUserConnected, protocol.EventUserDisconnected:
		var p protocol.UsersCount
		if err := env.Bind(&p); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("bad users-count payload")
			return
		}
		c.mu.Lock()
		c.usersCount = p.UsersCount
		c.mu.Unlock()
		if c.cb.OnUsersCount != nil {
			c.cb.OnUsersCount(p.UsersCount)
		}

	case protocol.EventVideoAction:
		var p protocol.VideoAction
		if err := env.Bind(&p); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("bad video-action payload")
			return
		}
		c.playback.OnRemote(domain.Action{Kind: p.Action, At: p.CurrentTime, VideoID: p.VideoID})

	case protocol.EventChatMessage:
		var msg domain.ChatMessage
		if err := env.Bind(&msg); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("bad chat payload")
			return
		}
		if c.cb.OnChat != nil {
			c.cb.OnChat(msg)
		}

	case protocol.EventUserTyping:
		var p protocol.Typing
		if err := env.Bind(&p); err != nil {
			return
		}
		if p.UserID != c.Session().UserID {
			c.typing.OnRemoteTyping(p.UserID, p.Username)
		}

	case protocol.EventUserStoppedTyping:
		var p protocol.Typing
		if err := env.Bind(&p); err != nil {
			return
		}
		if p.UserID != c.Session().UserID {
			c.typing.OnRemoteStoppedTyping(p.UserID)
		}

	case protocol.EventCallOffer:
		var p protocol.CallOffer
		if err := env.Bind(&p); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("bad call-offer payload")
			return
		}
		// Media acquisition can block; keep the event loop draining.
		go func() {
			if err := c.calls.OnOfferReceived(c.ctx, p.Offer); err != nil {
				log.Error().Err(err).Str("module", "session").Msg("handle call offer")
			}
		}()

	case protocol.EventCallAnswer:
		var p protocol.CallAnswer
		if err := env.Bind(&p); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("bad call-answer payload")
			return
		}
		if err := c.calls.OnAnswerReceived(p.Answer); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("handle call answer")
		}

	case protocol.EventICECandidate:
		var p protocol.ICECandidate
		if err := env.Bind(&p); err != nil {
			return
		}
		if err := c.calls.OnIceCandidateReceived(p.Candidate); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("handle ice candidate")
		}

	case protocol.EventCallEnded:
		c.calls.OnRemoteEndSignal()

	case protocol.EventVideoToggle:
		var p protocol.VideoToggle
		if err := env.Bind(&p); err != nil {
			return
		}
		c.calls.OnRemoteVideoToggle(p.Enabled)

	default:
		log.Warn().Str("module", "session").Str("event", env.Event).Msg("unknown event")
	}
}

func (c *Controller) onRoomJoined(p protocol.RoomJoined) {
	c.mu.Lock()
	c.sess.RoomID = p.RoomID
	c.sess.UserID = p.UserID
	c.isFirstUser = p.IsFirstUser
	c.mu.Unlock()

	log.Info().Str("module", "session").
		Str("room", string(p.RoomID)).
		Bool("first_user", p.IsFirstUser).
		Msg("room joined")

	// The first user in a fresh room is granted the default video, then
	// broadcasts it after a short delay so a second, not-yet-initialized
	// participant has time to attach its listeners. Best effort only.
	if p.IsFirstUser && c.playback.State().VideoID == "" {
		c.playback.SetVideo(c.cfg.DefaultVideoID)
		c.clk.AfterFunc(c.cfg.InitialBroadcastDelay, c.broadcastDefaultVideo)
	}

	if c.cb.OnRoomJoined != nil {
		c.cb.OnRoomJoined(p)
	}
}

func (c *Controller) broadcastDefaultVideo() {
	c.mu.Lock()
	relay := c.relay
	sess := c.sess
	first := c.isFirstUser
	c.mu.Unlock()
	if relay == nil || !sess.InRoom() || !first {
		return
	}
	err := relay.Emit(protocol.EventVideoAction, protocol.VideoAction{
		RoomID:      sess.RoomID,
		Action:      domain.ActionVideoChange,
		CurrentTime: 0,
		VideoID:     c.cfg.DefaultVideoID,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("broadcast default video")
	}
}

// emitAction is the playback engine's outbound path.
func (c *Controller) emitAction(a domain.Action) error {
	return c.emitInRoom(protocol.EventVideoAction, func(room domain.RoomID) any {
		return protocol.VideoAction{RoomID: room, Action: a.Kind, CurrentTime: a.At, VideoID: a.VideoID}
	})
}

func (c *Controller) emitTyping() error {
	return c.emitInRoom(protocol.EventUserTyping, func(room domain.RoomID) any {
		return protocol.Typing{RoomID: room, UserID: c.Session().UserID}
	})
}

func (c *Controller) emitStoppedTyping() error {
	return c.emitInRoom(protocol.EventUserStoppedTyping, func(room domain.RoomID) any {
		return protocol.Typing{RoomID: room, UserID: c.Session().UserID}
	})
}

// EmitOffer and friends implement call.Emitter.
func (c *Controller) EmitOffer(offer webrtc.SessionDescription) error {
	return c.emitInRoom(protocol.EventCallOffer, func(room domain.RoomID) any {
		return protocol.CallOffer{RoomID: room, Offer: offer}
	})
}

func (c *Controller) EmitAnswer(answer webrtc.SessionDescription) error {
	return c.emitInRoom(protocol.EventCallAnswer, func(room domain.RoomID) any {
		return protocol.CallAnswer{RoomID: room, Answer: answer}
	})
}

func (c *Controller) EmitCandidate(candidate webrtc.ICECandidateInit) error {
	return c.emitInRoom(protocol.EventICECandidate, func(room domain.RoomID) any {
		return protocol.ICECandidate{RoomID: room, Candidate: candidate}
	})
}

func (c *Controller) EmitCallEnded() error {
	return c.emitInRoom(protocol.EventCallEnded, func(room domain.RoomID) any {
		return protocol.CallEnded{RoomID: room}
	})
}

func (c *Controller) EmitVideoToggle(enabled bool) error {
	return c.emitInRoom(protocol.EventVideoToggle, func(room domain.RoomID) any {
		return protocol.VideoToggle{RoomID: room, Enabled: enabled}
	})
}

func (c *Controller) emitInRoom(event string, payload func(domain.RoomID) any) error {
	c.mu.Lock()
	relay := c.relay
	sess := c.sess
	c.mu.Unlock()
	if relay == nil || !sess.InRoom() {
		return ErrNotInRoom
	}
	return relay.Emit(event, payload(sess.RoomID))
}
