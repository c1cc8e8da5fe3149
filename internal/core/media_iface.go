package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaConnection is the peer-connection subsystem seam.
type MediaConnection interface {
	// Start configures internal callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	// Close should stop all underlying media resources.
	Close()
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// HasRemoteDescription reports whether the remote SDP has been set;
	// candidates arriving before that must be buffered by the caller.
	HasRemoteDescription() bool
	// CreateAndSetOffer builds the local offer (initiator path).
	CreateAndSetOffer() (*webrtc.SessionDescription, error)
	// ApplyAnswer installs the remote answer (initiator path).
	ApplyAnswer(webrtc.SessionDescription) error
	// ApplyOfferAndCreateAnswer installs the remote offer and builds the
	// local answer (receiver path).
	ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
	// OnClosed sets a callback for cleanup of the media session.
	OnClosed(func())
	// AddLocalTrack attaches a local track to the underlying PeerConnection.
	AddLocalTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
}

// MediaSource is the capture subsystem seam (camera + microphone).
// Acquisition is asynchronous and may fail (permission denial).
type MediaSource interface {
	Tracks() []webrtc.TrackLocal
	SetVideoEnabled(bool)
	SetAudioEnabled(bool)
	VideoEnabled() bool
	AudioEnabled() bool
	// Close stops every track. Must be called on each exit path from a call.
	Close()
}

// MediaOpener acquires local media; blocks until granted or denied.
type MediaOpener func(ctx context.Context) (MediaSource, error)

// PeerFactory opens a fresh peer-connection handle.
type PeerFactory func() (MediaConnection, error)
