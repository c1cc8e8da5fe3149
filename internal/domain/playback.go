package domain

// ActionKind is the playback action vocabulary shared over the relay.
type ActionKind string

const (
	ActionVideoChange ActionKind = "videoChange"
	ActionPlay        ActionKind = "play"
	ActionPause       ActionKind = "pause"
	ActionSeek        ActionKind = "seek"
)

// Valid reports whether the kind is one we know how to apply.
// Unknown kinds are ignored silently by the sync engine.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionVideoChange, ActionPlay, ActionPause, ActionSeek:
		return true
	}
	return false
}

// Action is a single playback state change, local or remote.
type Action struct {
	Kind    ActionKind
	At      float64 // playback position in seconds
	VideoID string
}

// PlaybackState is the last-writer-wins canonical state of the room's player.
type PlaybackState struct {
	VideoID string
	Last    Action
}

// Apply folds an accepted action into the state. No merge, last writer wins.
func (s *PlaybackState) Apply(a Action) {
	if a.Kind == ActionVideoChange {
		s.VideoID = a.VideoID
	}
	s.Last = a
}
