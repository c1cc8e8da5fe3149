package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JPKrishna28/yt-sync/internal/core"
)

type recordConn struct {
	frames []core.Frame
}

func (c *recordConn) TrySend(f core.Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordConn) Close() {}

func TestHubCapacityRejectsThirdUser(t *testing.T) {
	h := NewHub(2)

	r1 := h.Join("movie-night", "u1", &recordConn{})
	require.True(t, r1.OK)
	assert.True(t, r1.IsFirstUser)
	assert.Equal(t, 1, r1.UsersCount)

	r2 := h.Join("movie-night", "u2", &recordConn{})
	require.True(t, r2.OK)
	assert.False(t, r2.IsFirstUser)
	assert.Equal(t, 2, r2.UsersCount)

	r3 := h.Join("movie-night", "u3", &recordConn{})
	assert.False(t, r3.OK)
	assert.Equal(t, 2, r3.UsersCount)

	// The rejected join must not have touched membership.
	assert.Equal(t, 2, h.UsersCount("movie-night"))
	_, ok := h.RoomOf("u3")
	assert.False(t, ok)
}

func TestHubRejoinSameRoomIsNotCounted(t *testing.T) {
	h := NewHub(2)
	h.Join("movie-night", "u1", &recordConn{})
	h.Join("movie-night", "u2", &recordConn{})

	r := h.Join("movie-night", "u1", &recordConn{})
	require.True(t, r.OK, "a member re-joining a full room is not a new member")
	assert.Equal(t, 2, r.UsersCount)
}

func TestHubJoinMovesUserBetweenRooms(t *testing.T) {
	h := NewHub(2)
	h.Join("room-a", "u1", &recordConn{})

	r := h.Join("room-b", "u1", &recordConn{})
	require.True(t, r.OK)
	assert.True(t, r.IsFirstUser)

	assert.Zero(t, h.UsersCount("room-a"))
	room, ok := h.RoomOf("u1")
	require.True(t, ok)
	assert.Equal(t, "room-b", string(room))
}

func TestHubLeaveCleansUpEmptyRoom(t *testing.T) {
	h := NewHub(2)
	h.Join("movie-night", "u1", &recordConn{})
	h.Join("movie-night", "u2", &recordConn{})

	room, remaining, ok := h.Leave("u1")
	require.True(t, ok)
	assert.Equal(t, "movie-night", string(room))
	assert.Equal(t, 1, remaining)

	_, _, ok = h.Leave("u1")
	assert.False(t, ok)

	h.Leave("u2")
	assert.Empty(t, h.List())

	// The freed slot is usable again.
	r := h.Join("movie-night", "u3", &recordConn{})
	require.True(t, r.OK)
	assert.True(t, r.IsFirstUser)
}

func TestHubBroadcastSkipsSender(t *testing.T) {
	h := NewHub(2)
	c1, c2 := &recordConn{}, &recordConn{}
	h.Join("movie-night", "u1", c1)
	h.Join("movie-night", "u2", c2)

	h.Broadcast("movie-night", "u1", core.Frame(`{"event":"video-action"}`))

	assert.Empty(t, c1.frames)
	require.Len(t, c2.frames, 1)
}

func TestHubBroadcastAllIncludesSender(t *testing.T) {
	h := NewHub(2)
	c1, c2 := &recordConn{}, &recordConn{}
	h.Join("movie-night", "u1", c1)
	h.Join("movie-night", "u2", c2)

	h.BroadcastAll("movie-night", core.Frame(`{"event":"chat-message"}`))

	assert.Len(t, c1.frames, 1)
	assert.Len(t, c2.frames, 1)
}

func TestHubListReportsLiveRooms(t *testing.T) {
	h := NewHub(2)
	h.Join("room-a", "u1", &recordConn{})
	h.Join("room-a", "u2", &recordConn{})
	h.Join("room-b", "u3", &recordConn{})

	rooms := h.List()
	require.Len(t, rooms, 2)
	counts := map[string]int{}
	for _, r := range rooms {
		counts[string(r.ID)] = r.UsersCount
	}
	assert.Equal(t, map[string]int{"room-a": 2, "room-b": 1}, counts)
}
