package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/core"
	"github.com/JPKrishna28/yt-sync/internal/domain"
	"github.com/JPKrishna28/yt-sync/internal/protocol"
)

var ErrBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// Controller upgrades websocket clients and routes their envelopes through
// the hub.
type Controller struct {
	Hub *Hub
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	userID := domain.UserID(c.GetString("client_token"))
	log.Info().Str("module", "server").Str("user", string(userID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, userID, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "server").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "server").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, userID domain.UserID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "server").Str("user", string(userID)).Msg("readPump closing")
		ctl.onDisconnect(userID)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Warn().Err(err).Str("module", "server").Str("user", string(userID)).Msg("readPump read error")
				return
			}
			ctl.handle(userID, c, data)
		}
	}
}

func (ctl *Controller) handle(userID domain.UserID, c *wsConn, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("bad json")
		return
	}

	switch env.Event {
	case protocol.EventJoinRoom:
		ctl.handleJoin(userID, c, env)

	case protocol.EventChatMessage:
		// Chat echoes back to the sender too; the client renders from the echo.
		ctl.relay(userID, data, true)

	case protocol.EventUserTyping, protocol.EventUserStoppedTyping:
		ctl.relayTyping(userID, env)

	case protocol.EventVideoAction,
		protocol.EventCallOffer,
		protocol.EventCallAnswer,
		protocol.EventICECandidate,
		protocol.EventCallEnded,
		protocol.EventVideoToggle:
		ctl.relay(userID, data, false)

	default:
		log.Warn().Str("module", "server").Str("event", env.Event).Msg("unknown event")
	}
}

func (ctl *Controller) handleJoin(userID domain.UserID, c *wsConn, env protocol.Envelope) {
	var p protocol.JoinRoom
	if err := env.Bind(&p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "server").Msg("bad join payload")
		return
	}
	roomID := p.RoomID
	if len(roomID) > domain.MaxRoomIDLen {
		roomID = roomID[:domain.MaxRoomIDLen]
	}

	res := ctl.Hub.Join(roomID, userID, c)
	if !res.OK {
		ctl.sendEvent(c, protocol.EventRoomFull, struct{}{})
		return
	}

	ctl.sendEvent(c, protocol.EventRoomJoined, protocol.RoomJoined{
		RoomID:      roomID,
		UserID:      userID,
		IsFirstUser: res.IsFirstUser,
	})
	ctl.broadcastCount(roomID, protocol.EventUserConnected, res.UsersCount)
}

func (ctl *Controller) onDisconnect(userID domain.UserID) {
	roomID, count, ok := ctl.Hub.Leave(userID)
	if !ok {
		return
	}
	ctl.broadcastCount(roomID, protocol.EventUserDisconnected, count)
}

// relay re-broadcasts a client frame verbatim to the sender's room.
func (ctl *Controller) relay(userID domain.UserID, data []byte, includeSender bool) {
	roomID, ok := ctl.Hub.RoomOf(userID)
	if !ok {
		log.Warn().Str("module", "server").Str("user", string(userID)).Msg("relay from user outside any room")
		return
	}
	if includeSender {
		ctl.Hub.BroadcastAll(roomID, data)
		return
	}
	ctl.Hub.Broadcast(roomID, userID, data)
}

// relayTyping stamps the sender's display name onto the payload before
// fanning out, so receivers have something to show.
func (ctl *Controller) relayTyping(userID domain.UserID, env protocol.Envelope) {
	roomID, ok := ctl.Hub.RoomOf(userID)
	if !ok {
		return
	}
	var p protocol.Typing
	if err := env.Bind(&p); err != nil {
		log.Error().Err(err).Str("module", "server").Msg("bad typing payload")
		return
	}
	p.RoomID = roomID
	p.UserID = userID
	if p.Username == "" {
		p.Username = domain.DisplayName(userID)
	}
	data, err := protocol.Encode(env.Event, p)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("encode typing")
		return
	}
	ctl.Hub.Broadcast(roomID, userID, data)
}

func (ctl *Controller) broadcastCount(roomID domain.RoomID, event string, count int) {
	data, err := protocol.Encode(event, protocol.UsersCount{UsersCount: count})
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("encode users count")
		return
	}
	ctl.Hub.BroadcastAll(roomID, data)
}

func (ctl *Controller) sendEvent(c *wsConn, event string, payload any) {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("sendEvent marshal")
		return
	}
	_ = c.TrySend(data)
}
