// Package media provides a MediaSource built from static sample tracks.
// It stands in for real device capture: negotiation-wise the peer sees an
// ordinary audio+video publisher.
package media

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/JPKrishna28/yt-sync/internal/core"
)

type StaticSource struct {
	audio *webrtc.TrackLocalStaticSample
	video *webrtc.TrackLocalStaticSample

	mu           sync.Mutex
	videoEnabled bool
	audioEnabled bool
	closed       bool
}

// Open acquires a static capture source. Matches the core.MediaOpener shape.
func Open(ctx context.Context) (core.MediaSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	streamID := uuid.NewString()
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", streamID,
	)
	if err != nil {
		return nil, err
	}
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", streamID,
	)
	if err != nil {
		return nil, err
	}

	return &StaticSource{
		audio:        audio,
		video:        video,
		videoEnabled: true,
		audioEnabled: true,
	}, nil
}

func (s *StaticSource) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.audio, s.video}
}

func (s *StaticSource) SetVideoEnabled(enabled bool) {
	s.mu.Lock()
	s.videoEnabled = enabled
	s.mu.Unlock()
}

func (s *StaticSource) SetAudioEnabled(enabled bool) {
	s.mu.Lock()
	s.audioEnabled = enabled
	s.mu.Unlock()
}

func (s *StaticSource) VideoEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoEnabled
}

func (s *StaticSource) AudioEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioEnabled
}

func (s *StaticSource) Close() {
	s.mu.Lock()
	s.closed = true
	s.videoEnabled = false
	s.audioEnabled = false
	s.mu.Unlock()
}
