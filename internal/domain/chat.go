package domain

import "time"

// ChatMessage is one room-scoped text message. Nothing is persisted;
// history lives only in whatever the UI keeps around.
type ChatMessage struct {
	RoomID    RoomID    `json:"roomId"`
	UserID    UserID    `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const MaxChatMessageLen = 500
