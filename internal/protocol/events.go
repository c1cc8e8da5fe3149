// Package protocol defines the relay event catalogue: event names and the
// JSON payloads both the client engine and the relay server speak.
package protocol

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/JPKrishna28/yt-sync/internal/domain"
)

const (
	EventJoinRoom          = "join-room"
	EventRoomJoined        = "room-joined"
	EventRoomFull          = "room-full"
	EventUserConnected     = "user-connected"
	EventUserDisconnected  = "user-disconnected"
	EventVideoAction       = "video-action"
	EventChatMessage       = "chat-message"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
	EventCallOffer         = "call-offer"
	EventCallAnswer        = "call-answer"
	EventICECandidate      = "ice-candidate"
	EventCallEnded         = "call-ended"
	EventVideoToggle       = "video-toggle"
)

// Envelope is the framing for every relay message: an event name plus the
// event's own payload. Inbound routing switches on Event alone.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// Bind unmarshals the envelope payload into v.
func (e Envelope) Bind(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

type JoinRoom struct {
	RoomID domain.RoomID `json:"roomId"`
}

type RoomJoined struct {
	RoomID      domain.RoomID `json:"roomId"`
	UserID      domain.UserID `json:"userId"`
	IsFirstUser bool          `json:"isFirstUser"`
}

// UsersCount rides on both user-connected and user-disconnected.
type UsersCount struct {
	UsersCount int `json:"usersCount"`
}

type VideoAction struct {
	RoomID      domain.RoomID     `json:"roomId"`
	Action      domain.ActionKind `json:"action"`
	CurrentTime float64           `json:"currentTime"`
	VideoID     string            `json:"videoId"`
}

type Typing struct {
	RoomID   domain.RoomID `json:"roomId"`
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username,omitempty"`
}

type CallOffer struct {
	RoomID domain.RoomID             `json:"roomId"`
	Offer  webrtc.SessionDescription `json:"offer"`
}

type CallAnswer struct {
	RoomID domain.RoomID             `json:"roomId"`
	Answer webrtc.SessionDescription `json:"answer"`
}

type ICECandidate struct {
	RoomID    domain.RoomID           `json:"roomId"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type CallEnded struct {
	RoomID domain.RoomID `json:"roomId"`
}

type VideoToggle struct {
	RoomID  domain.RoomID `json:"roomId"`
	Enabled bool          `json:"enabled"`
}
