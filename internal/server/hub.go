// Package server is the relay: it fans out named events to the other members
// of a room and enforces room capacity. It never inspects media and keeps no
// state beyond live memberships.
package server

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/core"
	"github.com/JPKrishna28/yt-sync/internal/domain"
)

// Hub is the threadsafe in-memory membership set. It never closes
// adapter-owned connections.
type Hub struct {
	capacity int

	mu     sync.RWMutex
	rooms  map[domain.RoomID]map[domain.UserID]core.SignalConnection
	byUser map[domain.UserID]domain.RoomID
}

type JoinResult struct {
	OK          bool
	IsFirstUser bool
	UsersCount  int
}

type RoomInfo struct {
	ID         domain.RoomID `json:"id"`
	UsersCount int           `json:"usersCount"`
}

func NewHub(capacity int) *Hub {
	return &Hub{
		capacity: capacity,
		rooms:    make(map[domain.RoomID]map[domain.UserID]core.SignalConnection),
		byUser:   make(map[domain.UserID]domain.RoomID),
	}
}

// Join adds the user unless the room is at capacity. A rejected join mutates
// nothing. A user already in some room is moved.
func (h *Hub) Join(roomID domain.RoomID, userID domain.UserID, conn core.SignalConnection) JoinResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if ok {
		if _, already := members[userID]; !already && len(members) >= h.capacity {
			log.Info().Str("module", "server.hub").Str("room", string(roomID)).Str("user", string(userID)).Msg("room full")
			return JoinResult{OK: false, UsersCount: len(members)}
		}
	} else {
		members = make(map[domain.UserID]core.SignalConnection)
		h.rooms[roomID] = members
	}

	if prev, ok := h.byUser[userID]; ok && prev != roomID {
		h.leaveLocked(userID, prev)
	}

	first := len(members) == 0
	members[userID] = conn
	h.byUser[userID] = roomID
	log.Info().Str("module", "server.hub").Str("room", string(roomID)).Str("user", string(userID)).Int("count", len(members)).Msg("member joined")
	return JoinResult{OK: true, IsFirstUser: first, UsersCount: len(members)}
}

// Leave removes the user from their room, reporting the room and remaining count.
func (h *Hub) Leave(userID domain.UserID) (domain.RoomID, int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomID, ok := h.byUser[userID]
	if !ok {
		return "", 0, false
	}
	h.leaveLocked(userID, roomID)
	return roomID, len(h.rooms[roomID]), true
}

func (h *Hub) leaveLocked(userID domain.UserID, roomID domain.RoomID) {
	members := h.rooms[roomID]
	delete(members, userID)
	delete(h.byUser, userID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
	log.Info().Str("module", "server.hub").Str("room", string(roomID)).Str("user", string(userID)).Msg("member left")
}

func (h *Hub) RoomOf(userID domain.UserID) (domain.RoomID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	roomID, ok := h.byUser[userID]
	return roomID, ok
}

func (h *Hub) UsersCount(roomID domain.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Broadcast fans a frame out to every member of the room except from.
func (h *Hub) Broadcast(roomID domain.RoomID, from domain.UserID, data core.Frame) {
	h.fanOut(roomID, &from, data)
}

// BroadcastAll fans a frame out to every member, sender included. Used for
// membership counts and chat, where the sender relies on the echo.
func (h *Hub) BroadcastAll(roomID domain.RoomID, data core.Frame) {
	h.fanOut(roomID, nil, data)
}

func (h *Hub) fanOut(roomID domain.RoomID, skip *domain.UserID, data core.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, conn := range h.rooms[roomID] {
		if skip != nil && userID == *skip {
			continue
		}
		if err := conn.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "server.hub").Str("user", string(userID)).Msg("drop frame")
		}
	}
}

func (h *Hub) List() []RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for id, members := range h.rooms {
		out = append(out, RoomInfo{ID: id, UsersCount: len(members)})
	}
	return out
}
