package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JPKrishna28/yt-sync/internal/core"
	"github.com/JPKrishna28/yt-sync/internal/domain"
	"github.com/JPKrishna28/yt-sync/internal/protocol"
)

func newTestConn() *wsConn {
	return &wsConn{send: make(chan core.Frame, 8)}
}

// recv pops one queued frame; routing is synchronous so nothing to wait for.
func recv(t *testing.T, c *wsConn) protocol.Envelope {
	t.Helper()
	select {
	case f := <-c.send:
		env, err := protocol.Decode(f)
		require.NoError(t, err)
		return env
	default:
		t.Fatal("no frame queued")
		return protocol.Envelope{}
	}
}

func noFrame(t *testing.T, c *wsConn) {
	t.Helper()
	select {
	case f := <-c.send:
		t.Fatalf("unexpected frame: %s", f)
	default:
	}
}

func encode(t *testing.T, event string, payload any) []byte {
	t.Helper()
	data, err := protocol.Encode(event, payload)
	require.NoError(t, err)
	return data
}

func join(t *testing.T, ctl *Controller, userID domain.UserID, c *wsConn, room domain.RoomID) {
	t.Helper()
	ctl.handle(userID, c, encode(t, protocol.EventJoinRoom, protocol.JoinRoom{RoomID: room}))
}

func TestJoinAnnouncesMembership(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1, c2 := newTestConn(), newTestConn()

	join(t, ctl, "u1", c1, "movie-night")

	env := recv(t, c1)
	require.Equal(t, protocol.EventRoomJoined, env.Event)
	var p protocol.RoomJoined
	require.NoError(t, env.Bind(&p))
	assert.Equal(t, domain.RoomID("movie-night"), p.RoomID)
	assert.Equal(t, domain.UserID("u1"), p.UserID)
	assert.True(t, p.IsFirstUser)

	env = recv(t, c1)
	assert.Equal(t, protocol.EventUserConnected, env.Event)

	join(t, ctl, "u2", c2, "movie-night")

	env = recv(t, c2)
	require.Equal(t, protocol.EventRoomJoined, env.Event)
	require.NoError(t, env.Bind(&p))
	assert.False(t, p.IsFirstUser)

	// The count update reaches everyone, existing members included.
	env = recv(t, c1)
	require.Equal(t, protocol.EventUserConnected, env.Event)
	var count protocol.UsersCount
	require.NoError(t, env.Bind(&count))
	assert.Equal(t, 2, count.UsersCount)
	recv(t, c2)
}

func TestJoinFullRoomGetsRoomFullOnly(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1, c2, c3 := newTestConn(), newTestConn(), newTestConn()
	join(t, ctl, "u1", c1, "movie-night")
	join(t, ctl, "u2", c2, "movie-night")

	join(t, ctl, "u3", c3, "movie-night")

	env := recv(t, c3)
	assert.Equal(t, protocol.EventRoomFull, env.Event)
	noFrame(t, c3)
	assert.Equal(t, 2, ctl.Hub.UsersCount("movie-night"))
}

func TestJoinTruncatesOversizedRoomID(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1 := newTestConn()
	long := domain.RoomID(strings.Repeat("x", domain.MaxRoomIDLen+10))

	join(t, ctl, "u1", c1, long)

	env := recv(t, c1)
	require.Equal(t, protocol.EventRoomJoined, env.Event)
	var p protocol.RoomJoined
	require.NoError(t, env.Bind(&p))
	assert.Len(t, string(p.RoomID), domain.MaxRoomIDLen)
}

func TestVideoActionRelayedVerbatimExcludingSender(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1, c2 := newTestConn(), newTestConn()
	join(t, ctl, "u1", c1, "movie-night")
	join(t, ctl, "u2", c2, "movie-night")
	drain(c1)
	drain(c2)

	frame := encode(t, protocol.EventVideoAction, protocol.VideoAction{
		RoomID: "movie-night", Action: domain.ActionPlay, CurrentTime: 12.4,
	})
	ctl.handle("u1", c1, frame)

	env := recv(t, c2)
	require.Equal(t, protocol.EventVideoAction, env.Event)
	var p protocol.VideoAction
	require.NoError(t, env.Bind(&p))
	assert.Equal(t, domain.ActionPlay, p.Action)
	assert.Equal(t, 12.4, p.CurrentTime)
	noFrame(t, c1)
}

func TestChatEchoesToSender(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1, c2 := newTestConn(), newTestConn()
	join(t, ctl, "u1", c1, "movie-night")
	join(t, ctl, "u2", c2, "movie-night")
	drain(c1)
	drain(c2)

	frame := encode(t, protocol.EventChatMessage, domain.ChatMessage{
		RoomID: "movie-night", UserID: "u1", Message: "hi",
	})
	ctl.handle("u1", c1, frame)

	assert.Equal(t, protocol.EventChatMessage, recv(t, c1).Event)
	assert.Equal(t, protocol.EventChatMessage, recv(t, c2).Event)
}

func TestTypingIsStampedWithSenderIdentity(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1, c2 := newTestConn(), newTestConn()
	join(t, ctl, "u1-abcd1234", c1, "movie-night")
	join(t, ctl, "u2-efgh5678", c2, "movie-night")
	drain(c1)
	drain(c2)

	// The client sends a bare typing signal; the relay fills in who and where.
	ctl.handle("u1-abcd1234", c1, encode(t, protocol.EventUserTyping, protocol.Typing{}))

	env := recv(t, c2)
	require.Equal(t, protocol.EventUserTyping, env.Event)
	var p protocol.Typing
	require.NoError(t, env.Bind(&p))
	assert.Equal(t, domain.RoomID("movie-night"), p.RoomID)
	assert.Equal(t, domain.UserID("u1-abcd1234"), p.UserID)
	assert.Equal(t, domain.DisplayName("u1-abcd1234"), p.Username)
	noFrame(t, c1)
}

func TestDisconnectBroadcastsRemainingCount(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1, c2 := newTestConn(), newTestConn()
	join(t, ctl, "u1", c1, "movie-night")
	join(t, ctl, "u2", c2, "movie-night")
	drain(c1)
	drain(c2)

	ctl.onDisconnect("u1")

	env := recv(t, c2)
	require.Equal(t, protocol.EventUserDisconnected, env.Event)
	var p protocol.UsersCount
	require.NoError(t, env.Bind(&p))
	assert.Equal(t, 1, p.UsersCount)
	assert.Equal(t, 1, ctl.Hub.UsersCount("movie-night"))
}

func TestRelayFromUserOutsideRoomIsDropped(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1 := newTestConn()

	ctl.handle("u1", c1, encode(t, protocol.EventVideoAction, protocol.VideoAction{
		Action: domain.ActionPlay,
	}))
	noFrame(t, c1)
}

func TestMalformedAndUnknownFramesIgnored(t *testing.T) {
	ctl := &Controller{Hub: NewHub(2)}
	c1 := newTestConn()
	join(t, ctl, "u1", c1, "movie-night")
	drain(c1)

	ctl.handle("u1", c1, []byte("{not json"))
	ctl.handle("u1", c1, encode(t, "teleport", nil))
	noFrame(t, c1)
}

func drain(c *wsConn) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}
