// Package relay implements the client side of the relay transport over a
// websocket connection.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/core"
	"github.com/JPKrishna28/yt-sync/internal/protocol"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const writeWait = 5 * time.Second

// Conn is one live relay connection. Events() is closed when the connection
// dies; the session controller owns any reconnect policy.
type Conn struct {
	ws     *websocket.Conn
	send   chan core.Frame
	events chan protocol.Envelope

	mu     sync.Mutex
	closed bool
}

// Dial makes a single connection attempt.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ws:     ws,
		send:   make(chan core.Frame, 32),
		events: make(chan protocol.Envelope, 32),
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

func (c *Conn) Emit(event string, payload any) error {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	return c.trySend(data)
}

func (c *Conn) Events() <-chan protocol.Envelope { return c.events }

func (c *Conn) trySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	return c.ws.Close()
}

func (c *Conn) writePump() {
	for data := range c.send {
		if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Error().Err(err).Str("module", "relay").Msg("writePump set deadline")
			return
		}
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "relay").Msg("writePump write error")
			return
		}
	}
}

func (c *Conn) readPump() {
	defer func() {
		close(c.events)
		_ = c.Close()
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Str("module", "relay").Msg("readPump read error")
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			log.Error().Err(err).Str("module", "relay").Msg("bad json")
			continue
		}
		c.events <- env
	}
}
