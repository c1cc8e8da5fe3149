package domain

type RoomID string

const MaxRoomIDLen = 36

// Room is the shared playback/chat/call context a set of users joins.
type Room struct {
	ID       RoomID
	Capacity int
}
