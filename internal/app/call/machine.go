// Package call drives WebRTC call establishment and teardown between the
// local participant and a single remote peer, via the relay.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/core"
)

type State int

const (
	StateIdle State = iota
	StateRequesting
	StateOfferSent
	StateOfferReceived
	StateConnected
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateOfferSent:
		return "offer_sent"
	case StateOfferReceived:
		return "offer_received"
	case StateConnected:
		return "connected"
	case StateEnding:
		return "ending"
	}
	return "unknown"
}

var (
	ErrCallInProgress = errors.New("call already in progress")
	ErrNotInCall      = errors.New("no active call")
	ErrCallAborted    = errors.New("call aborted during setup")
)

// Emitter is the relay-facing half the machine needs; the session
// controller implements it.
type Emitter interface {
	EmitOffer(webrtc.SessionDescription) error
	EmitAnswer(webrtc.SessionDescription) error
	EmitCandidate(webrtc.ICECandidateInit) error
	EmitCallEnded() error
	EmitVideoToggle(enabled bool) error
}

// Machine owns the CallSession exclusively: peer-connection handle, local
// media handle and the pending ICE buffer. Handlers run to completion under
// the lock, but media acquisition is a suspension point: state is re-checked
// via an epoch guard after it resolves, and stale transitions abort cleanly.
type Machine struct {
	openMedia core.MediaOpener
	newPeer   core.PeerFactory
	emit      Emitter

	mu          sync.Mutex
	state       State
	epoch       int
	isInitiator bool
	remoteSet   bool
	pending     []webrtc.ICECandidateInit
	media       core.MediaSource
	conn        core.MediaConnection

	remoteVideoEnabled bool

	onState       func(State)
	onRemoteTrack func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
}

func NewMachine(openMedia core.MediaOpener, newPeer core.PeerFactory, emit Emitter) *Machine {
	return &Machine{
		openMedia: openMedia,
		newPeer:   newPeer,
		emit:      emit,
	}
}

// SetOnState registers a state-change callback, invoked outside the lock.
func (m *Machine) SetOnState(fn func(State)) { m.onState = fn }

// SetOnRemoteTrack registers the inbound media stream callback.
func (m *Machine) SetOnRemoteTrack(fn func(context.Context, *webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	m.onRemoteTrack = fn
}

func (m *Machine) notify(s State) {
	if m.onState != nil {
		m.onState(s)
	}
}

// StartCall runs the initiator path: acquire media, open a peer connection,
// send an offer. Valid only from Idle. On media failure the machine stays
// Idle and the remote peer is not informed.
func (m *Machine) StartCall(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrCallInProgress
	}
	m.state = StateRequesting
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()
	m.notify(StateRequesting)

	src, err := m.openMedia(ctx)

	m.mu.Lock()
	if m.epoch != epoch || m.state != StateRequesting {
		// Call was ended (or superseded) while media acquisition was pending.
		m.mu.Unlock()
		if src != nil {
			src.Close()
		}
		return ErrCallAborted
	}
	if err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		m.notify(StateIdle)
		return fmt.Errorf("acquire media: %w", err)
	}

	conn, err := m.setupPeerLocked(ctx, src)
	if err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		src.Close()
		m.notify(StateIdle)
		return err
	}

	offer, err := conn.CreateAndSetOffer()
	if err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		conn.Close()
		src.Close()
		m.notify(StateIdle)
		return fmt.Errorf("create offer: %w", err)
	}

	m.media = src
	m.conn = conn
	m.isInitiator = true
	m.state = StateOfferSent
	m.mu.Unlock()
	m.notify(StateOfferSent)

	log.Info().Str("module", "call").Msg("offer sent")
	return m.emit.EmitOffer(*offer)
}

// OnOfferReceived runs the receiver path. Offers arriving in any state other
// than Idle are ignored: there is no call-waiting or glare handling.
func (m *Machine) OnOfferReceived(ctx context.Context, offer webrtc.SessionDescription) error {
	m.mu.Lock()
	if m.state != StateIdle {
		st := m.state
		m.mu.Unlock()
		log.Warn().Str("module", "call").Str("state", st.String()).Msg("ignoring offer, call not idle")
		return nil
	}
	m.state = StateOfferReceived
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()
	m.notify(StateOfferReceived)

	src, err := m.openMedia(ctx)

	m.mu.Lock()
	if m.epoch != epoch || m.state != StateOfferReceived {
		m.mu.Unlock()
		if src != nil {
			src.Close()
		}
		return ErrCallAborted
	}
	if err != nil {
		// The caller is left waiting; the protocol has no failure signal.
		m.state = StateIdle
		m.mu.Unlock()
		m.notify(StateIdle)
		return fmt.Errorf("acquire media: %w", err)
	}

	conn, err := m.setupPeerLocked(ctx, src)
	if err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		src.Close()
		m.notify(StateIdle)
		return err
	}

	answer, err := conn.ApplyOfferAndCreateAnswer(offer)
	if err != nil {
		m.state = StateIdle
		m.mu.Unlock()
		conn.Close()
		src.Close()
		m.notify(StateIdle)
		return fmt.Errorf("apply offer: %w", err)
	}

	m.media = src
	m.conn = conn
	m.isInitiator = false
	m.remoteSet = true
	flush := m.pending
	m.pending = nil
	m.state = StateConnected
	m.mu.Unlock()
	m.notify(StateConnected)

	m.applyCandidates(conn, flush)

	log.Info().Str("module", "call").Msg("answer sent")
	return m.emit.EmitAnswer(*answer)
}

// OnAnswerReceived completes the initiator path: install the remote answer
// and flush buffered candidates in arrival order, each exactly once.
func (m *Machine) OnAnswerReceived(answer webrtc.SessionDescription) error {
	m.mu.Lock()
	if m.state != StateOfferSent || m.conn == nil {
		st := m.state
		m.mu.Unlock()
		log.Warn().Str("module", "call").Str("state", st.String()).Msg("ignoring answer, no offer outstanding")
		return nil
	}
	conn := m.conn

	if err := conn.ApplyAnswer(answer); err != nil {
		_, media := m.teardownLocked()
		m.mu.Unlock()
		conn.Close()
		if media != nil {
			media.Close()
		}
		m.notify(StateIdle)
		return fmt.Errorf("apply answer: %w", err)
	}

	m.remoteSet = true
	flush := m.pending
	m.pending = nil
	m.state = StateConnected
	m.mu.Unlock()
	m.notify(StateConnected)

	m.applyCandidates(conn, flush)
	log.Info().Str("module", "call").Msg("call connected")
	return nil
}

// OnIceCandidateReceived applies the candidate immediately once the remote
// description is set, otherwise buffers it FIFO for the flush.
func (m *Machine) OnIceCandidateReceived(c webrtc.ICECandidateInit) error {
	m.mu.Lock()
	if m.conn != nil && m.remoteSet {
		conn := m.conn
		m.mu.Unlock()
		return conn.AddICECandidate(c)
	}
	m.pending = append(m.pending, c)
	m.mu.Unlock()
	return nil
}

func (m *Machine) applyCandidates(conn core.MediaConnection, candidates []webrtc.ICECandidateInit) {
	for _, c := range candidates {
		if err := conn.AddICECandidate(c); err != nil {
			log.Error().Err(err).Str("module", "call").Msg("apply buffered candidate")
		}
	}
}

// EndCall tears the call down from a local command. Calling it with no
// active call is a no-op.
func (m *Machine) EndCall() { m.end() }

// OnRemoteEndSignal tears the call down after the peer ended it.
func (m *Machine) OnRemoteEndSignal() { m.end() }

// end releases both owned handles on every exit path. Only the initiator
// re-broadcasts the end signal, so a received call-ended never echoes back.
func (m *Machine) end() {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}
	m.state = StateEnding
	wasInitiator := m.isInitiator
	conn, media := m.teardownLocked()
	m.mu.Unlock()

	if wasInitiator {
		if err := m.emit.EmitCallEnded(); err != nil {
			log.Error().Err(err).Str("module", "call").Msg("emit call ended")
		}
	}
	if conn != nil {
		conn.Close()
	}
	if media != nil {
		media.Close()
	}
	m.notify(StateIdle)
	log.Info().Str("module", "call").Msg("call ended")
}

// teardownLocked resets the CallSession and returns the handles to release
// outside the lock. Bumping the epoch aborts any pending media acquisition.
func (m *Machine) teardownLocked() (core.MediaConnection, core.MediaSource) {
	conn, media := m.conn, m.media
	m.conn = nil
	m.media = nil
	m.pending = nil
	m.remoteSet = false
	m.isInitiator = false
	m.remoteVideoEnabled = false
	m.epoch++
	m.state = StateIdle
	return conn, media
}

func (m *Machine) setupPeerLocked(ctx context.Context, src core.MediaSource) (core.MediaConnection, error) {
	conn, err := m.newPeer()
	if err != nil {
		return nil, fmt.Errorf("open peer connection: %w", err)
	}
	conn.OnICECandidate(func(c webrtc.ICECandidateInit) {
		if err := m.emit.EmitCandidate(c); err != nil {
			log.Error().Err(err).Str("module", "call").Msg("emit candidate")
		}
	})
	conn.OnTrack(func(trackCtx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		if m.onRemoteTrack != nil {
			m.onRemoteTrack(trackCtx, track, receiver)
		}
	})
	conn.OnClosed(func() { m.end() })

	if err := conn.Start(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("start peer connection: %w", err)
	}
	for _, t := range src.Tracks() {
		if _, err := conn.AddLocalTrack(t); err != nil {
			conn.Close()
			return nil, fmt.Errorf("add local track: %w", err)
		}
	}
	return conn, nil
}

// ToggleVideo flips the local video track and announces the new state.
// No call-state transition happens.
func (m *Machine) ToggleVideo() (bool, error) {
	m.mu.Lock()
	if m.media == nil {
		m.mu.Unlock()
		return false, ErrNotInCall
	}
	enabled := !m.media.VideoEnabled()
	m.media.SetVideoEnabled(enabled)
	m.mu.Unlock()

	return enabled, m.emit.EmitVideoToggle(enabled)
}

// ToggleAudio flips the local audio track. Audio state is not announced.
func (m *Machine) ToggleAudio() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.media == nil {
		return false, ErrNotInCall
	}
	enabled := !m.media.AudioEnabled()
	m.media.SetAudioEnabled(enabled)
	return enabled, nil
}

// OnRemoteVideoToggle is purely observational.
func (m *Machine) OnRemoteVideoToggle(enabled bool) {
	m.mu.Lock()
	m.remoteVideoEnabled = enabled
	m.mu.Unlock()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) IsInitiator() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isInitiator
}

func (m *Machine) RemoteVideoEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remoteVideoEnabled
}
