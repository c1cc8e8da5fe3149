package app

import "github.com/JPKrishna28/yt-sync/internal/domain"

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Session is the one-per-client connection identity. RoomID is empty until
// the relay confirms a join; it is never set by local prediction.
type Session struct {
	ConnState ConnState
	UserID    domain.UserID
	RoomID    domain.RoomID
}

// InRoom reports whether the session has an active, relay-confirmed room.
func (s Session) InRoom() bool {
	return s.ConnState == Connected && s.RoomID != ""
}
